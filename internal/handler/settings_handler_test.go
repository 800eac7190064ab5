package handler_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/handler"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/service"
)

type failingSettings struct {
	service.SettingsCache
	err error
}

func (f failingSettings) UpdateSettings(context.Context, dto.SettingsPatch) (models.AppSettings, error) {
	return models.AppSettings{}, f.err
}

func newSettingsApp(svc service.SettingsCache) *fiber.App {
	app := fiber.New()
	handler.NewSettingsHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/settings"))
	return app
}

func TestSettingsHandlerGetReturnsDefaults(t *testing.T) {
	app := newSettingsApp(newStack(t).settings)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data models.AppSettings `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, models.DefaultSettings().Semesters, body.Data.Semesters)
}

func TestSettingsHandlerPatchMergesShallowly(t *testing.T) {
	app := newSettingsApp(newStack(t).settings)

	resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/settings", map[string]interface{}{
		"schoolName": "Lycée El Idrissi",
		"sections":   map[string]bool{"reports": false},
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data models.AppSettings `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "Lycée El Idrissi", body.Data.SchoolName)
	require.Equal(t, map[string]bool{"reports": false}, body.Data.Sections)
	require.Equal(t, models.DefaultSettings().Levels, body.Data.Levels)
}

func TestSettingsHandlerPatchErrors(t *testing.T) {
	t.Run("empty patch", func(t *testing.T) {
		app := newSettingsApp(newStack(t).settings)
		resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/settings", map[string]interface{}{}))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		app := newSettingsApp(newStack(t).settings)
		resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/settings", map[string]string{"timezone": "Mars/Olympus"}))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("durable write failed", func(t *testing.T) {
		svc := failingSettings{err: fmt.Errorf("%w: disk full", service.ErrPersistenceFailure)}
		app := newSettingsApp(svc)
		resp, err := app.Test(jsonRequest(t, http.MethodPatch, "/api/v1/settings", map[string]string{"schoolName": "X"}))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}
