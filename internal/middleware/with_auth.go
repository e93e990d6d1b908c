package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/bookeval-api/internal/utils"
)

// AuthOptions configures the WithAuth guard.
type AuthOptions struct {
	RequireUser     bool
	RequireUsername bool
}

// Principal is the authenticated caller.
type Principal struct {
	UserID   string
	Username string
}

// PrincipalFromContext returns the principal stored by JWTProtected.
func PrincipalFromContext(c *fiber.Ctx) Principal {
	return Principal{
		UserID:   localString(c, LocalUserID),
		Username: localString(c, LocalUsername),
	}
}

// WithAuth wraps a handler and rejects requests without the required identity claims.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFromContext(c)
		if opts.RequireUser && principal.UserID == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if opts.RequireUsername && principal.Username == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		return handler(c)
	}
}

// RequirePrincipal is WithAuth requiring both the user id and the username, as a middleware.
func RequirePrincipal() fiber.Handler {
	return WithAuth(func(c *fiber.Ctx) error { return c.Next() }, AuthOptions{RequireUser: true, RequireUsername: true})
}

func localString(c *fiber.Ctx, key string) string {
	if c == nil {
		return ""
	}
	value, _ := c.Locals(key).(string)
	return strings.TrimSpace(value)
}
