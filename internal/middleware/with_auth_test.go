package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookeval-api/internal/middleware"
)

func withPrincipal(userID, username string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(middleware.LocalUserID, userID)
		}
		if username != "" {
			c.Locals(middleware.LocalUsername, username)
		}
		return c.Next()
	}
}

func TestWithAuthAllowsFullPrincipal(t *testing.T) {
	var principal middleware.Principal
	app := fiber.New()
	app.Use(withPrincipal("user-10", "ada"))
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		principal = middleware.PrincipalFromContext(c)
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{RequireUser: true, RequireUsername: true}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, middleware.Principal{UserID: "user-10", Username: "ada"}, principal)
}

func TestWithAuthRejectsMissingUsername(t *testing.T) {
	app := fiber.New()
	app.Use(withPrincipal("user-10", ""))
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{RequireUser: true, RequireUsername: true}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthRequiresUser(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{RequireUser: true}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAllowsAnonymousWhenNotRequired(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequirePrincipalAsGroupMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(withPrincipal("user-10", "ada"))
	group := app.Group("/", middleware.RequirePrincipal())
	group.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })

	resp := perform(t, app)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	return performWithHeaders(t, app, nil)
}

func performWithHeaders(t *testing.T, app *fiber.App, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
