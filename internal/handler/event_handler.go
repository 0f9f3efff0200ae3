package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// EventHandler streams submission events to connected clients over SSE.
type EventHandler struct {
	service service.EventService
	logger  zerolog.Logger
	timeout time.Duration
}

// NewEventHandler constructs a handler instance.
func NewEventHandler(service service.EventService, logger zerolog.Logger, timeout time.Duration) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger.With().Str("component", "event_handler").Logger(),
		timeout: timeout,
	}
}

// Register binds the event stream route.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)
}

func (h *EventHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	stream, cleanup := h.service.Subscribe(userID)

	keepAliveInterval := h.timeout
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}

	logger := requestLogger(h.logger, c).With().Uint("user_id", userID).Logger()
	logger.Debug().Msg("event stream opened")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
			logger.Debug().Msg("event stream closed")
		}()

		if err := writeKeepAlive(w); err != nil {
			return
		}

		ticker := time.NewTicker(keepAliveInterval / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-stream:
				if !ok {
					return
				}
				if err := writeSubmissionEvent(w, event); err != nil {
					logger.Debug().Err(err).Msg("failed to write submission event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeSubmissionEvent(w *bufio.Writer, event dto.SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
