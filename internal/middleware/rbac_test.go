package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/models"
)

func roleApp(role any) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != nil {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole(models.RoleAdmin))
	app.Delete("/snapshot", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		role   any
		status int
	}{
		{"admin", "Admin", fiber.StatusNoContent},
		{"teacher", models.RoleTeacher, fiber.StatusForbidden},
		{"anonymous", nil, fiber.StatusForbidden},
		{"non-string", 42, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/snapshot", nil)
			resp, err := roleApp(tc.role).Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
