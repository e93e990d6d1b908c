package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/bookeval-api/internal/utils"
)

// Locals keys holding the authenticated principal.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

var (
	userIDClaims   = []string{"sub", "user_id", "id"}
	usernameClaims = []string{"username", "preferred_username", "name"}
)

// JWTProtected validates HMAC signed bearer tokens and stores the principal in fiber locals.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if userID := firstClaim(claims, userIDClaims); userID != "" {
			c.Locals(LocalUserID, userID)
		}
		if username := firstClaim(claims, usernameClaims); username != "" {
			c.Locals(LocalUsername, username)
		}

		return c.Next()
	}
}

func firstClaim(claims jwt.MapClaims, keys []string) string {
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized := claimString(value); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func claimString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return ""
		}
		return strconv.FormatInt(int64(v), 10)
	case int:
		if v < 0 {
			return ""
		}
		return strconv.Itoa(v)
	default:
		return ""
	}
}
