package middleware_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookeval-api/internal/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newJWTApp(captured *middleware.Principal) *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		*captured = middleware.PrincipalFromContext(c)
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestJWTProtectedExtractsPrincipal(t *testing.T) {
	var principal middleware.Principal
	app := newJWTApp(&principal)

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":      "u-42",
		"username": "ada",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	resp := performWithHeaders(t, app, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, middleware.Principal{UserID: "u-42", Username: "ada"}, principal)
}

func TestJWTProtectedFallsBackToAlternateClaims(t *testing.T) {
	var principal middleware.Principal
	app := newJWTApp(&principal)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id":            float64(7),
		"preferred_username": "grace",
	})

	resp := performWithHeaders(t, app, map[string]string{"Authorization": "bearer " + token})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, middleware.Principal{UserID: "7", Username: "grace"}, principal)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	var principal middleware.Principal
	app := newJWTApp(&principal)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "u-1"}),
		"expired":        "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(-time.Hour).Unix()}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			headers := map[string]string{}
			if header != "" {
				headers["Authorization"] = header
			}
			resp := performWithHeaders(t, app, headers)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}
