package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	teacher := middleware.AuthOptions{Role: middleware.AuthRoleTeacher}
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Get("", middleware.WithAuth(h.list, teacher))
	router.Post("", middleware.WithAuth(h.create, teacher))
	router.Get("/assigned", middleware.WithAuth(h.assigned, student))
	router.Get("/:id", middleware.WithAuth(h.get, teacher))
	router.Patch("/:id", middleware.WithAuth(h.update, teacher))
	router.Delete("/:id", middleware.WithAuth(h.delete, teacher))
	router.Get("/:id/assignees", middleware.WithAuth(h.assignees, teacher))
	router.Post("/:id/students", middleware.WithAuth(h.assign, teacher))
	router.Put("/:id/students/:studentId/due", middleware.WithAuth(h.setDue, teacher))
	router.Delete("/:id/students/:studentId", middleware.WithAuth(h.unassign, teacher))
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	var req dto.AssignmentListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list assignments")
	}

	return utils.OK(c, result.Items, "assignments retrieved", result.Pagination)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load assignment")
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create assignment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update assignment")
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete assignment")
	}

	return utils.SendSuccess(c, "assignment deleted", fiber.Map{"id": id})
}

func (h *AssignmentHandler) assignees(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignees, err := h.service.ListAssignees(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list assignees")
	}

	return utils.SendSuccess(c, "assignees retrieved", assignees)
}

func (h *AssignmentHandler) assign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignStudentsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AssignStudents(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to assign students")
	}

	return utils.SendSuccess(c, "students assigned", result)
}

func (h *AssignmentHandler) setDue(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DueOverrideRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignee, err := h.service.SetStudentDueOverride(requestContext(c), actorFromContext(c), id, studentID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to change due date")
	}

	return utils.SendSuccess(c, "due date updated", assignee)
}

func (h *AssignmentHandler) unassign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Unassign(requestContext(c), actorFromContext(c), id, studentID); err != nil {
		return handleError(c, h.logger, err, "failed to unassign student")
	}

	return utils.SendSuccess(c, "student unassigned", fiber.Map{"assignment_id": id, "student_id": studentID})
}

func (h *AssignmentHandler) assigned(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	assignments, err := h.service.ListAssignedTo(requestContext(c), actor, actor.ID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list assigned work")
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}
