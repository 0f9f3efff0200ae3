package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// GradingHandler wires the teacher grading endpoints. The group is expected
// to be guarded by a teacher role check.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/queue", h.queue)
	router.Post("/materialize", h.materialize)
	router.Post("/missing", h.gradeMissing)
	router.Put("/submissions/:id/grade", h.grade)
	router.Post("/submissions/:id/retake", h.retake)
	router.Post("/submissions/:id/reopen", h.reopen)
}

func (h *GradingHandler) queue(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	queue, err := h.service.Queue(requestContext(c), actorFromContext(c), dto.GradingQueueRequest{AssignmentID: assignmentID})
	if err != nil {
		return handleError(c, h.logger, err, "failed to load grading queue")
	}

	meta := fiber.Map{
		"pending":        len(queue.Pending),
		"overdue_drafts": len(queue.OverdueDrafts),
		"graded":         len(queue.Graded),
	}
	return utils.OK(c, queue, "grading queue retrieved", meta)
}

func (h *GradingHandler) materialize(c *fiber.Ctx) error {
	var payload dto.MaterializeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Materialize(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to materialize submission")
	}

	return utils.SendSuccess(c, "submission materialized", submission)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Grade(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *GradingHandler) gradeMissing(c *fiber.Ctx) error {
	var payload dto.GradeMissingRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.GradeMissing(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to grade missing submission")
	}

	return utils.SendSuccess(c, "missing submission graded", submission)
}

func (h *GradingHandler) retake(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RetakeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	submission, err := h.service.Retake(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to allow retake")
	}

	return utils.SendSuccess(c, "retake allowed", submission)
}

func (h *GradingHandler) reopen(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReopenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	submission, err := h.service.Reopen(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to reopen submission")
	}

	return utils.SendSuccess(c, "submission reopened", submission)
}
