package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

var (
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrDuplicateStudent indicates the student number is already taken.
	ErrDuplicateStudent = errors.New("student number already in use")
)

const (
	defaultStudentPageSize = 20
	maxStudentPageSize     = 100
)

// StudentService manages student records from the record screens.
type StudentService interface {
	List(ctx context.Context, req dto.StudentListRequest) (dto.StudentListResponse, error)
	Get(ctx context.Context, id string) (dto.StudentResponse, error)
	FindByNumber(ctx context.Context, number string) (dto.StudentResponse, error)
	Create(ctx context.Context, req dto.StudentRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, id string, req dto.StudentRequest) (dto.StudentResponse, error)
	Delete(ctx context.Context, id string) error
}

type studentService struct {
	students  repository.Collection[models.Student]
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewStudentService constructs the student service.
func NewStudentService(store repository.RecordStore, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		students:  repository.NewCollection[models.Student](store, repository.CollectionStudents),
		validator: validate,
		logger:    logger.With().Str("component", "student_service").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *studentService) List(ctx context.Context, req dto.StudentListRequest) (dto.StudentListResponse, error) {
	search := strings.ToLower(strings.TrimSpace(req.Search))
	level := strings.TrimSpace(req.Level)
	group := strings.TrimSpace(req.Group)

	matched := make([]models.Student, 0)
	for student, err := range s.students.All(ctx) {
		if err != nil {
			return dto.StudentListResponse{}, err
		}
		if level != "" && student.Level != level {
			continue
		}
		if group != "" && student.Group != group {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(student.FullName()), search) &&
			!strings.Contains(strings.ToLower(student.StudentID), search) {
			continue
		}
		matched = append(matched, student)
	}

	slices.SortFunc(matched, func(a, b models.Student) int {
		return cmp.Or(
			strings.Compare(a.LastName, b.LastName),
			strings.Compare(a.FirstName, b.FirstName),
			strings.Compare(a.ID, b.ID),
		)
	})

	page := max(req.Page, 1)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultStudentPageSize
	}
	pageSize = min(pageSize, maxStudentPageSize)

	total := len(matched)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	items := make([]dto.StudentResponse, 0, end-start)
	for _, student := range matched[start:end] {
		items = append(items, dto.NewStudentResponse(student))
	}

	return dto.StudentListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: int64(total),
			TotalPages: max(int(math.Ceil(float64(total)/float64(pageSize))), 1),
		},
	}, nil
}

func (s *studentService) Get(ctx context.Context, id string) (dto.StudentResponse, error) {
	student, err := s.get(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) FindByNumber(ctx context.Context, number string) (dto.StudentResponse, error) {
	key := models.StudentKey(number)
	student, err := s.students.Find(ctx, func(candidate models.Student) bool {
		return candidate.NaturalKey() == key
	})
	if errors.Is(err, repository.ErrNotFound) {
		return dto.StudentResponse{}, ErrStudentNotFound
	}
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, req dto.StudentRequest) (dto.StudentResponse, error) {
	if err := s.validate(req); err != nil {
		return dto.StudentResponse{}, err
	}
	if isBlank(req.StudentID) || isBlank(req.FirstName) || isBlank(req.LastName) {
		return dto.StudentResponse{}, fmt.Errorf("%w: studentId, firstName and lastName are required", ErrValidationFailure)
	}
	if err := s.ensureUnique(ctx, *req.StudentID, ""); err != nil {
		return dto.StudentResponse{}, err
	}

	now := s.now().UTC()
	student := applyStudentRequest(models.Student{
		ID:             s.newID(),
		EnrollmentDate: now.Format(time.DateOnly),
		CreatedAt:      now,
	}, req)
	student.UpdatedAt = now

	if err := s.students.Put(ctx, student.ID, student); err != nil {
		return dto.StudentResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Msg("student created")
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, id string, req dto.StudentRequest) (dto.StudentResponse, error) {
	if err := s.validate(req); err != nil {
		return dto.StudentResponse{}, err
	}

	required := []struct {
		field string
		value *string
	}{
		{"studentId", req.StudentID},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
	}
	for _, r := range required {
		if r.value != nil && isBlank(r.value) {
			return dto.StudentResponse{}, fmt.Errorf("%w: %s cannot be blank", ErrValidationFailure, r.field)
		}
	}

	student, err := s.get(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	if req.StudentID != nil && models.StudentKey(*req.StudentID) != student.NaturalKey() {
		if err := s.ensureUnique(ctx, *req.StudentID, id); err != nil {
			return dto.StudentResponse{}, err
		}
	}

	student = applyStudentRequest(student, req)
	student.UpdatedAt = s.now().UTC()
	if err := s.students.Put(ctx, id, student); err != nil {
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.students.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("student_id", id).Msg("student deleted")
	return nil
}

func (s *studentService) get(ctx context.Context, id string) (models.Student, error) {
	student, err := s.students.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Student{}, ErrStudentNotFound
	}
	return student, err
}

func (s *studentService) validate(req dto.StudentRequest) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailure, err)
	}
	return nil
}

func (s *studentService) ensureUnique(ctx context.Context, number, selfID string) error {
	_, id, err := s.students.FindByKey(ctx, models.StudentKey(number))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case id != selfID:
		return ErrDuplicateStudent
	default:
		return nil
	}
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

func applyStudentRequest(student models.Student, req dto.StudentRequest) models.Student {
	assign := func(target *string, value *string) {
		if value != nil {
			*target = strings.TrimSpace(*value)
		}
	}
	assign(&student.StudentID, req.StudentID)
	assign(&student.FirstName, req.FirstName)
	assign(&student.LastName, req.LastName)
	assign(&student.Level, req.Level)
	assign(&student.Group, req.Group)
	assign(&student.Gender, req.Gender)
	assign(&student.BirthDate, req.BirthDate)
	assign(&student.Phone, req.Phone)
	assign(&student.Address, req.Address)
	assign(&student.GuardianName, req.GuardianName)
	assign(&student.GuardianPhone, req.GuardianPhone)
	assign(&student.Notes, req.Notes)
	assign(&student.HealthNotes, req.HealthNotes)
	if req.IsRepeating != nil {
		student.IsRepeating = *req.IsRepeating
	}
	return student
}
