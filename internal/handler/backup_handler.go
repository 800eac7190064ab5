package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

// BackupHandler exposes the automatic backup scheduler.
type BackupHandler struct {
	service   service.BackupService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBackupHandler constructs a backup handler.
func NewBackupHandler(service service.BackupService, validate *validator.Validate, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "backup_handler").Logger(),
	}
}

// Register wires read-only backup routes.
func (h *BackupHandler) Register(router fiber.Router) {
	router.Get("", h.status)
}

// RegisterAdmin wires backup routes that change state behind guards.
func (h *BackupHandler) RegisterAdmin(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", guarded(guards, h.run)...)
	router.Put("/enabled", guarded(guards, h.toggle)...)
	router.Post("/:stamp/restore", guarded(guards, h.restore)...)
}

func (h *BackupHandler) status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.UserContext())
	if err != nil {
		return h.backupError(c, err)
	}
	return utils.SendSuccess(c, "backup status", status)
}

func (h *BackupHandler) run(c *fiber.Ctx) error {
	info, err := h.service.RunOnce(c.UserContext())
	if err != nil {
		return h.backupError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "backup created", info)
}

func (h *BackupHandler) toggle(c *fiber.Ctx) error {
	var payload dto.BackupToggleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "enabled is required")
	}

	if err := h.service.SetEnabled(c.UserContext(), *payload.Enabled); err != nil {
		return h.backupError(c, err)
	}

	status, err := h.service.Status(c.UserContext())
	if err != nil {
		return h.backupError(c, err)
	}
	return utils.SendSuccess(c, "automatic backups updated", status)
}

func (h *BackupHandler) restore(c *fiber.Ctx) error {
	report, err := h.service.RestoreStamp(c.UserContext(), c.Params("stamp"))
	if err != nil {
		return h.backupError(c, err)
	}
	return utils.SendSuccess(c, "backup restored", report)
}

func (h *BackupHandler) backupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBackupNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "backup not found")
	case errors.Is(err, service.ErrInvalidSnapshot):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "stored backup is not a valid snapshot", err.Error())
	case errors.Is(err, service.ErrImportFailed):
		requestLogger(h.logger, c).Error().Err(err).Msg("backup restore rolled back")
		return utils.SendError(c, fiber.StatusInternalServerError, "restore failed; previous data kept")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("backup operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "backup operation failed")
	}
}
