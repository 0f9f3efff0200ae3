package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mathla-go-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleTeacher = "teacher"
	AuthRoleStudent = "student"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role           string
	AllowAnonymous bool
}

// WithAuth wraps a handler with authentication/authorization guards. Every
// role except AuthRoleAny with AllowAnonymous requires an authenticated user.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	anonymousOK := role == AuthRoleAny && opts.AllowAnonymous

	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			if anonymousOK {
				return handler(c)
			}
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role != AuthRoleAny && normalizeRoleValue(c.Locals("user_role")) != role {
			return utils.SendErrorCode(c, fiber.StatusForbidden, "ROLE_FORBIDDEN", "insufficient permissions", nil)
		}

		return handler(c)
	}
}
