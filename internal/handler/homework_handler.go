package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// HomeworkHandler exposes the student homework overview.
type HomeworkHandler struct {
	service service.HomeworkService
	logger  zerolog.Logger
}

// NewHomeworkHandler creates a new handler instance.
func NewHomeworkHandler(service service.HomeworkService, logger zerolog.Logger) *HomeworkHandler {
	return &HomeworkHandler{
		service: service,
		logger:  logger.With().Str("component", "homework_handler").Logger(),
	}
}

// Register attaches the homework endpoint.
func (h *HomeworkHandler) Register(router fiber.Router) {
	router.Get("/homework", h.homework)
}

func (h *HomeworkHandler) homework(c *fiber.Ctx) error {
	overview, err := h.service.Homework(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load homework")
	}

	return utils.SendSuccess(c, "homework retrieved", overview)
}
