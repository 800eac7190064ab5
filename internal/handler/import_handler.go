package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

// ImportHandler accepts already-parsed spreadsheet rows.
type ImportHandler struct {
	service service.ImportService
	logger  zerolog.Logger
}

// NewImportHandler constructs an import handler.
func NewImportHandler(service service.ImportService, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		service: service,
		logger:  logger.With().Str("component", "import_handler").Logger(),
	}
}

// Register wires import routes.
func (h *ImportHandler) Register(router fiber.Router) {
	router.Post("/students", h.students)
	router.Post("/grades", h.grades)
}

type studentRowsRequest struct {
	Rows []dto.StudentRow `json:"rows"`
}

type gradeRowsRequest struct {
	Rows []dto.GradeRow `json:"rows"`
}

func (h *ImportHandler) students(c *fiber.Ctx) error {
	var payload studentRowsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if len(payload.Rows) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "rows are required")
	}

	summary, err := h.service.BulkUpsertStudents(c.UserContext(), payload.Rows)
	if err != nil {
		return h.importError(c, err, summary)
	}
	return utils.SendSuccess(c, "students imported", summary)
}

func (h *ImportHandler) grades(c *fiber.Ctx) error {
	var payload gradeRowsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if len(payload.Rows) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "rows are required")
	}

	summary, err := h.service.BulkUpsertGrades(c.UserContext(), payload.Rows)
	if err != nil {
		return h.importError(c, err, summary)
	}
	return utils.SendSuccess(c, "grades imported", summary)
}

// importError reports a batch stopped by a storage failure together with the
// rows that were already committed.
func (h *ImportHandler) importError(c *fiber.Ctx, err error, summary dto.ImportSummary) error {
	requestLogger(h.logger, c).Error().Err(err).Int("applied", summary.Applied()).Msg("import stopped")
	return utils.Fail(c, fiber.StatusInternalServerError, "import stopped; earlier rows were saved", summary)
}
