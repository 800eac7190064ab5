package handler

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

const maxSnapshotUpload = 64 << 20

// SnapshotHandler exports, restores, and clears the whole store.
type SnapshotHandler struct {
	snapshots service.SnapshotService
	backups   service.BackupService
	seeder    service.SeedService
	logger    zerolog.Logger
}

// NewSnapshotHandler constructs a snapshot handler. backups and seeder are optional.
func NewSnapshotHandler(snapshots service.SnapshotService, backups service.BackupService, seeder service.SeedService, logger zerolog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		backups:   backups,
		seeder:    seeder,
		logger:    logger.With().Str("component", "snapshot_handler").Logger(),
	}
}

// Register wires read-only snapshot routes.
func (h *SnapshotHandler) Register(router fiber.Router) {
	router.Get("", h.export)
	router.Get("/schema", h.schema)
	router.Get("/state", h.state)
}

// RegisterAdmin wires the destructive snapshot routes behind guards.
func (h *SnapshotHandler) RegisterAdmin(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", guarded(guards, h.restore)...)
	router.Delete("", guarded(guards, h.clear)...)
}

func (h *SnapshotHandler) export(c *fiber.Ctx) error {
	document, err := h.snapshots.ExportDocument(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("export failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export snapshot")
	}

	filename := fmt.Sprintf("counsel-vault-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(document)
}

func (h *SnapshotHandler) schema(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(service.SnapshotSchemaDocument())
}

func (h *SnapshotHandler) state(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "restore state", fiber.Map{"state": h.snapshots.State()})
}

func (h *SnapshotHandler) restore(c *fiber.Ctx) error {
	document, err := h.readDocument(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if len(document) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "snapshot document is required")
	}

	detected := mimetype.Detect(document)
	if !detected.Is("application/json") {
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, fmt.Sprintf("snapshot must be a JSON document, got %s", detected.String()))
	}

	if err := h.snapshots.Validate(document); err != nil {
		return h.snapshotError(c, err)
	}

	ctx := c.UserContext()
	if h.backups != nil {
		if err := h.backups.CapturePreRestore(ctx); err != nil {
			requestLogger(h.logger, c).Error().Err(err).Msg("pre-restore backup failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to capture pre-restore backup")
		}
	}

	report, err := h.snapshots.ImportDocument(ctx, document)
	if err != nil {
		return h.snapshotError(c, err)
	}
	requestLogger(h.logger, c).Info().Str("user_id", userIDFromContext(c)).Int("records", report.Total()).Msg("snapshot restored")

	return utils.SendSuccess(c, "snapshot restored", report)
}

func (h *SnapshotHandler) clear(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if err := h.snapshots.ClearAll(ctx); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("clear failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to clear the store")
	}

	var seeded service.SeedReport
	if h.seeder != nil {
		report, err := h.seeder.EnsureDefaults(ctx)
		if err != nil {
			requestLogger(h.logger, c).Error().Err(err).Msg("reseed after clear failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "store cleared but defaults could not be restored")
		}
		seeded = report
	}
	requestLogger(h.logger, c).Info().Str("user_id", userIDFromContext(c)).Msg("store cleared")

	return utils.SendSuccess(c, "store cleared", seeded)
}

// readDocument accepts either a multipart "file" field or a raw JSON body.
func (h *SnapshotHandler) readDocument(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Body(), nil
	}
	if fileHeader.Size > maxSnapshotUpload {
		return nil, fmt.Errorf("snapshot file exceeds %d bytes", maxSnapshotUpload)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSnapshotUpload))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file")
	}
	return data, nil
}

func (h *SnapshotHandler) snapshotError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidSnapshot):
		return utils.Fail(c, fiber.StatusBadRequest, "snapshot rejected", err.Error())
	case errors.Is(err, service.ErrImportFailed):
		requestLogger(h.logger, c).Error().Err(err).Msg("snapshot import rolled back")
		return utils.SendError(c, fiber.StatusInternalServerError, "import failed; previous data kept")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("snapshot import failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to import snapshot")
	}
}
