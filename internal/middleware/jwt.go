package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/counsel-vault/internal/utils"
)

// SessionChecker reports whether a session is still open.
type SessionChecker interface {
	Active(sessionID string) bool
}

// JWTProtected validates bearer tokens and rejects tokens whose session was closed.
// It stores user_id, user_role, and session_id in the request locals.
func JWTProtected(secret string, sessions SessionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
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

		userID := stringClaim(claims, "sub")
		sessionID := stringClaim(claims, "sid")
		if userID == "" || sessionID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}
		if sessions != nil && !sessions.Active(sessionID) {
			return utils.SendError(c, fiber.StatusUnauthorized, "session expired")
		}

		c.Locals("user_id", userID)
		c.Locals("session_id", sessionID)
		if role := strings.ToLower(stringClaim(claims, "role")); role != "" {
			c.Locals("user_role", role)
		}

		return c.Next()
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
