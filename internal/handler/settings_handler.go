package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

// SettingsHandler exposes the school settings.
type SettingsHandler struct {
	service service.SettingsCache
	logger  zerolog.Logger
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(service service.SettingsCache, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register wires settings routes.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("", h.get)
	router.Patch("", h.update)
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	settings, err := h.service.GetSettings(c.UserContext())
	if err != nil {
		return h.settingsError(c, err)
	}
	return utils.SendSuccess(c, "settings retrieved", settings)
}

func (h *SettingsHandler) update(c *fiber.Ctx) error {
	var patch dto.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if patch.IsEmpty() {
		return utils.SendError(c, fiber.StatusBadRequest, "no settings supplied")
	}

	settings, err := h.service.UpdateSettings(c.UserContext(), patch)
	if err != nil {
		return h.settingsError(c, err)
	}
	return utils.SendSuccess(c, "settings updated", settings)
}

func (h *SettingsHandler) settingsError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidationFailure):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPersistenceFailure):
		requestLogger(h.logger, c).Error().Err(err).Msg("settings not persisted")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "settings could not be saved")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("settings operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "settings operation failed")
	}
}
