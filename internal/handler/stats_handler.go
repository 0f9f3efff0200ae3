package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// StatsHandler serves aggregate counters.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register binds the stats routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/overview", h.overview)
	router.Get("/me", h.me)
	router.Get("/users/:id", h.user)
}

func (h *StatsHandler) overview(c *fiber.Ctx) error {
	stats, err := h.service.Overview(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *StatsHandler) me(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	stats, err := h.service.ForUser(requestContext(c), actor, actor.ID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *StatsHandler) user(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.service.ForUser(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}
