package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRateLimitIsPerUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(c.QueryInt("user")))
		return c.Next()
	})
	app.Patch("/", RateLimit("autosave", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPatch, "/?user="+user, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, call("1"))
	require.Equal(t, fiber.StatusOK, call("1"))
	require.Equal(t, fiber.StatusTooManyRequests, call("1"))
	require.Equal(t, fiber.StatusOK, call("2"))
}
