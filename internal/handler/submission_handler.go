package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service        service.SubmissionService
	logger         zerolog.Logger
	autosaveMax    int
	autosaveWindow time.Duration
}

// NewSubmissionHandler builds a submission handler instance. Autosave and
// submit share one per-user rate limit.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger, autosaveMax int, autosaveWindow time.Duration) *SubmissionHandler {
	return &SubmissionHandler{
		service:        service,
		logger:         logger.With().Str("component", "submission_handler").Logger(),
		autosaveMax:    autosaveMax,
		autosaveWindow: autosaveWindow,
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	anyone := middleware.AuthOptions{Role: middleware.AuthRoleAny}
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Get("", middleware.WithAuth(h.list, anyone))
	router.Post("/start", middleware.WithAuth(h.start, student))
	router.Get("/:id", middleware.WithAuth(h.get, anyone))
	router.Get("/:id/transitions", middleware.WithAuth(h.transitions, anyone))
	router.Patch("/:id",
		middleware.RateLimit("submission_autosave", h.autosaveMax, h.autosaveWindow),
		middleware.WithAuth(h.update, student),
	)
	router.Delete("/:id", middleware.WithAuth(h.discard, student))
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	req := dto.SubmissionListRequest{Latest: c.QueryBool("latest", false)}

	var err error
	if req.AssignmentID, err = parseQueryUint(c, "assignment_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.StudentID, err = parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.TeacherID, err = parseQueryUint(c, "teacher_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		req.Status = &status
	}

	submissions, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) start(c *fiber.Ctx) error {
	var payload dto.SubmissionStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Start(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to start submission")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission started", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) transitions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.service.History(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load submission history")
	}

	return utils.SendSuccess(c, "submission history retrieved", history)
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update submission")
	}

	message := "submission saved"
	if submission.Status == string(models.SubmissionStatusSubmitted) {
		message = "submission submitted"
	}
	return utils.SendSuccess(c, message, submission)
}

func (h *SubmissionHandler) discard(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var expected *string
	if value := strings.ToUpper(strings.TrimSpace(c.Query("expected_status"))); value != "" {
		expected = &value
	}

	if err := h.service.Discard(requestContext(c), actorFromContext(c), id, expected); err != nil {
		return handleError(c, h.logger, err, "failed to discard submission")
	}

	return utils.SendSuccess(c, "submission discarded", fiber.Map{"id": id})
}
