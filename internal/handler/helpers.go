package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	result := uint(parsed)
	return &result, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return strings.ToLower(strings.TrimSpace(role))
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) lifecycle.Actor {
	return lifecycle.Actor{
		ID:   userIDFromContext(c),
		Role: models.UserRole(userRoleFromContext(c)),
	}
}

// requestContext carries the correlation id into the service layer.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// handleError maps service and lifecycle errors onto the JSON envelope.
// Anything unrecognised is logged and reported as a 500 with fallback.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var details interface{}
	var stepErr *service.StepError
	if errors.As(err, &stepErr) {
		step := fiber.Map{"step": stepErr.Step}
		if stepErr.SubmissionID != 0 {
			step["submission_id"] = stepErr.SubmissionID
		}
		details = step
	}

	var policy *lifecycle.Error
	if errors.As(err, &policy) {
		status := fiber.StatusInternalServerError
		switch policy.Kind {
		case lifecycle.KindPermission, lifecycle.KindDeadlinePolicy:
			status = fiber.StatusForbidden
		case lifecycle.KindStateConflict:
			status = fiber.StatusConflict
		case lifecycle.KindValidation:
			status = fiber.StatusUnprocessableEntity
		}
		return utils.SendErrorCode(c, status, policy.Code, policy.Message, details)
	}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "ASSIGNMENT_NOT_FOUND", "assignment not found", details)
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "SUBMISSION_NOT_FOUND", "submission not found", details)
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "USER_NOT_FOUND", "user not found", details)
	case errors.Is(err, service.ErrAssigneeNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "ASSIGNEE_NOT_FOUND", err.Error(), details)
	case errors.Is(err, service.ErrEmptyTitle):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error(), details)
	case errors.As(err, &validationErrors):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "VALIDATION_FAILED", validationErrors.Error(), details)
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, "INTERNAL", fallback, details)
	}
}
