package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/ecomdemo/cardsync/internal/pkg/config"
	icuser "github.com/ecomdemo/cardsync/internal/pkg/usercontext"
)

// RequireAPIAuth rejects requests without an authenticated user with a JSON 401.
func RequireAPIAuth(c *fiber.Ctx) error {
	v := c.Locals(icuser.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// AdminBasicAuth protects operator endpoints (/metrics, /admin) with the
// configured credentials and marks the request as admin. The password is
// compared in constant time by basicauth; config validation rejects an empty one.
func AdminBasicAuth(cfg config.AdminConfig) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Users: map[string]string{
			cfg.User: cfg.Password,
		},
		Realm: "Restricted",
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `basic realm="Restricted"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "admin credentials required"})
		},
		ContextUsername: icuser.KeyUsername,
	})
}

// RequireAdmin must run after AdminBasicAuth.
func RequireAdmin(c *fiber.Ctx) error {
	name, _ := c.Locals(icuser.KeyUsername).(string)
	if name == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "admin credentials required"})
	}
	icuser.SetUserContext(c, icuser.UserContext{Username: name, IsLoggedIn: true, IsAdmin: true})
	return c.Next()
}
