package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/app/repository"
	"github.com/ecomdemo/cardsync/internal/pkg/config"
	"github.com/ecomdemo/cardsync/internal/pkg/testutil"
	"github.com/ecomdemo/cardsync/internal/pkg/usercontext"
)

func newAPIKeyApp(db *gorm.DB) *fiber.App {
	app := fiber.New()
	app.Get("/me", APIKeyAuthMiddleware(repository.NewUserRepository(db)), RequireAPIAuth, func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	return app
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	user, raw := testutil.CreateUserWithAPIKey(t, db, "jane@example.com")
	app := newAPIKeyApp(db)

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{name: "bearer", header: "Authorization", value: "Bearer " + raw, want: fiber.StatusOK},
		{name: "x-api-key", header: "X-API-Key", value: raw, want: fiber.StatusOK},
		{name: "missing", want: fiber.StatusUnauthorized},
		{name: "wrong key", header: "Authorization", value: "Bearer cs_nope", want: fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	require.NoError(t, db.Model(user).Update("status", models.STATUS_DISABLED).Error)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminBasicAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", AdminBasicAuth(config.AdminConfig{User: "ops", Password: "change-me-please"}), RequireAdmin, func(c *fiber.Ctx) error {
		if !usercontext.IsAdmin(c) {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	basic := func(user, pass string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", basic("ops", "change-me-please"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	for _, creds := range [][2]string{
		{"ops", "change-me-pleasf"},
		{"root", "change-me-please"},
		{"", ""},
	} {
		req = httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", basic(creds[0], creds[1]))
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "user=%q", creds[0])
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", basic("ops", "wrong"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
