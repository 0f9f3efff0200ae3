package handler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/service"
	"github.com/noah-isme/mathla-go-api/internal/utils"
)

func TestHandleErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"permission", lifecycle.Permission(lifecycle.CodeNotOwner, "nope"), fiber.StatusForbidden, "NOT_OWNER"},
		{"deadline", lifecycle.DeadlinePolicy(lifecycle.CodeDeadlinePassed, "late"), fiber.StatusForbidden, "DEADLINE_PASSED"},
		{"conflict", lifecycle.Conflict(lifecycle.CodeStaleStatus, "stale"), fiber.StatusConflict, "STALE_STATUS"},
		{"invalid", lifecycle.Invalid(lifecycle.CodeInvalidScore, "bad"), fiber.StatusUnprocessableEntity, "INVALID_SCORE"},
		{"wrapped", fmt.Errorf("grade: %w", lifecycle.Conflict(lifecycle.CodeAlreadyGraded, "done")), fiber.StatusConflict, "ALREADY_GRADED"},
		{"missing", service.ErrSubmissionNotFound, fiber.StatusNotFound, "SUBMISSION_NOT_FOUND"},
		{"title", service.ErrEmptyTitle, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown", errors.New("disk on fire"), fiber.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return handleError(c, zerolog.Nop(), tc.err, "failed")
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body utils.APIResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.False(t, body.Success)
			require.Equal(t, tc.code, body.Code)
			require.Nil(t, body.Details)
		})
	}
}

func TestHandleErrorReportsFailedStep(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return handleError(c, zerolog.Nop(), &service.StepError{Step: service.StepGrade, SubmissionID: 12, Err: errors.New("timeout")}, "failed to grade")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"details":{"step":"grade","submission_id":12}`)
}

func TestParseUintParamRejectsZero(t *testing.T) {
	app := fiber.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return c.SendString(fmt.Sprint(id))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/0", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWriteSubmissionEventFormatsSSE(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	event := dto.SubmissionEvent{Type: "submission.submit", Action: "submit", SubmissionID: 3, Status: "SUBMITTED", OccurredAt: time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, writeSubmissionEvent(w, event))
	require.NoError(t, writeKeepAlive(w))

	out := buf.String()
	require.Contains(t, out, "event: submission.submit\ndata: {")
	require.Contains(t, out, `"submission_id":3`)
	require.Contains(t, out, "\n\n: keep-alive ")
}
