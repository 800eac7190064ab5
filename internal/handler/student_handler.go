package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
	"github.com/noah-isme/counsel-vault/internal/utils"
)

// StudentHandler serves the student record screens.
type StudentHandler struct {
	service service.StudentService
	logger  zerolog.Logger
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(service service.StudentService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register wires student routes.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/by-number/:number", h.byNumber)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "page must be a number")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "page_size must be a number")
	}

	resp, err := h.service.List(c.UserContext(), dto.StudentListRequest{
		Search:   c.Query("search"),
		Level:    c.Query("level"),
		Group:    c.Query("group"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return h.studentError(c, err)
	}

	return utils.OK(c, resp.Items, "students retrieved", resp.Pagination)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	student, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.studentError(c, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) byNumber(c *fiber.Ctx) error {
	student, err := h.service.FindByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return h.studentError(c, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(c.UserContext(), payload)
	if err != nil {
		return h.studentError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Update(c.UserContext(), c.Params("id"), payload)
	if err != nil {
		return h.studentError(c, err)
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.studentError(c, err)
	}
	return utils.SendSuccess(c, "student deleted", nil)
}

func (h *StudentHandler) studentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidationFailure):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrDuplicateStudent):
		return utils.SendError(c, fiber.StatusConflict, "student number already in use")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("student operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "student operation failed")
	}
}
