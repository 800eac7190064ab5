package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/observability"
	"github.com/noah-isme/counsel-vault/internal/repository"
	"github.com/noah-isme/counsel-vault/pkg/events"
)

// ImportService reconciles externally supplied rows with stored records by
// natural key. Rows are applied one by one; a storage failure stops the batch
// but leaves earlier rows committed.
type ImportService interface {
	BulkUpsertStudents(ctx context.Context, rows []dto.StudentRow) (dto.ImportSummary, error)
	BulkUpsertGrades(ctx context.Context, rows []dto.GradeRow) (dto.ImportSummary, error)
}

type importService struct {
	students  repository.Collection[models.Student]
	grades    repository.Collection[models.GradeRecord]
	settings  SettingsCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewImportService constructs the reconciling importer.
func NewImportService(store repository.RecordStore, settings SettingsCache, validate *validator.Validate, publisher events.Publisher, logger zerolog.Logger) ImportService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &importService{
		students:  repository.NewCollection[models.Student](store, repository.CollectionStudents),
		grades:    repository.NewCollection[models.GradeRecord](store, repository.CollectionGrades),
		settings:  settings,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    publisher,
		logger:    logger.With().Str("component", "import_service").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *importService) BulkUpsertStudents(ctx context.Context, rows []dto.StudentRow) (dto.ImportSummary, error) {
	ctx, span := observability.Tracer("service").Start(ctx, "import.students")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	summary := dto.ImportSummary{Total: len(rows), Issues: []dto.RowIssue{}}
	for index, raw := range rows {
		row := raw.Trimmed()
		if err := s.validateRow(row); err != nil {
			summary.Skip(index, err.Error())
			observability.ImportRows().WithLabelValues("students", "skipped").Inc()
			continue
		}

		created, err := s.upsertStudent(ctx, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "student import aborted")
			s.logger.Error().Err(err).Int("row", index+1).Msg("student import aborted")
			return summary, fmt.Errorf("row %d: %w", index+1, err)
		}

		if created {
			summary.Created++
			observability.ImportRows().WithLabelValues("students", "created").Inc()
		} else {
			summary.Updated++
			observability.ImportRows().WithLabelValues("students", "updated").Inc()
		}
	}

	s.finish(ctx, "students", summary)
	return summary, nil
}

func (s *importService) BulkUpsertGrades(ctx context.Context, rows []dto.GradeRow) (dto.ImportSummary, error) {
	ctx, span := observability.Tracer("service").Start(ctx, "import.grades")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.ImportSummary{Total: len(rows), Issues: []dto.RowIssue{}}, err
	}

	summary := dto.ImportSummary{Total: len(rows), Issues: []dto.RowIssue{}}
	for index, raw := range rows {
		row := raw.Trimmed()
		if err := s.validateRow(row); err != nil {
			summary.Skip(index, err.Error())
			observability.ImportRows().WithLabelValues("grades", "skipped").Inc()
			continue
		}
		if !settings.HasSemester(row.Semester) {
			summary.Skip(index, fmt.Sprintf("unknown semester %q", row.Semester))
			observability.ImportRows().WithLabelValues("grades", "skipped").Inc()
			continue
		}

		created, err := s.upsertGrade(ctx, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "grade import aborted")
			s.logger.Error().Err(err).Int("row", index+1).Msg("grade import aborted")
			return summary, fmt.Errorf("row %d: %w", index+1, err)
		}

		if created {
			summary.Created++
			observability.ImportRows().WithLabelValues("grades", "created").Inc()
		} else {
			summary.Updated++
			observability.ImportRows().WithLabelValues("grades", "updated").Inc()
		}
	}

	s.finish(ctx, "grades", summary)
	return summary, nil
}

func (s *importService) upsertStudent(ctx context.Context, row dto.StudentRow) (bool, error) {
	now := s.now().UTC()
	row.Notes = s.sanitize(row.Notes)
	row.HealthNotes = s.sanitize(row.HealthNotes)
	row.Address = s.sanitize(row.Address)

	existing, id, err := s.students.FindByKey(ctx, models.StudentKey(row.StudentID))
	switch {
	case err == nil:
		merged := mergeStudent(existing, row)
		merged.ID = id
		merged.UpdatedAt = now
		return false, s.students.Put(ctx, id, merged)
	case errors.Is(err, repository.ErrNotFound):
		student := newStudent(row, now)
		student.ID = s.newID()
		return true, s.students.Put(ctx, student.ID, student)
	default:
		return false, err
	}
}

func (s *importService) upsertGrade(ctx context.Context, row dto.GradeRow) (bool, error) {
	now := s.now().UTC()
	key := models.GradeKey(row.StudentID, row.Semester, row.Subject)

	existing, id, err := s.grades.FindByKey(ctx, key)
	switch {
	case err == nil:
		existing.ID = id
		existing.Score = *row.Score
		existing.UpdatedAt = now
		return false, s.grades.Put(ctx, id, existing)
	case errors.Is(err, repository.ErrNotFound):
		grade := models.GradeRecord{
			ID:        s.newID(),
			StudentID: row.StudentID,
			Semester:  models.NormalizeKey(row.Semester),
			Subject:   row.Subject,
			Score:     *row.Score,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return true, s.grades.Put(ctx, grade.ID, grade)
	default:
		return false, err
	}
}

func (s *importService) validateRow(row any) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fieldErr := range verrs {
				fields = append(fields, fieldErr.Field())
			}
			return fmt.Errorf("%w: missing or invalid %s", ErrValidationFailure, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrValidationFailure, err)
	}
	return nil
}

// maxSanitizePasses bounds how many layers of entity encoding are peeled off
// free text before it is stored.
const maxSanitizePasses = 8

// literalEntities are the escapes bluemonday adds to plain text that cannot
// form markup on their own.
var literalEntities = strings.NewReplacer("&#39;", "'", "&#34;", `"`, "&amp;", "&")

func (s *importService) sanitize(value string) string {
	if value == "" {
		return value
	}

	cleaned := value
	for range maxSanitizePasses {
		next := s.sanitizer.Sanitize(html.UnescapeString(cleaned))
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.TrimSpace(literalEntities.Replace(cleaned))
}

func (s *importService) finish(ctx context.Context, entity string, summary dto.ImportSummary) {
	s.logger.Info().
		Str("entity", entity).
		Int("total", summary.Total).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("bulk upsert completed")

	payload := map[string]any{"entity": entity, "summary": summary}
	if err := s.events.Publish(ctx, events.RowsImported, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish import event")
	}
}

func newStudent(row dto.StudentRow, now time.Time) models.Student {
	return models.Student{
		StudentID:      row.StudentID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Level:          row.Level,
		Group:          row.Group,
		Gender:         row.Gender,
		BirthDate:      row.BirthDate,
		EnrollmentDate: now.Format(time.DateOnly),
		Phone:          row.Phone,
		Address:        row.Address,
		GuardianName:   row.GuardianName,
		GuardianPhone:  row.GuardianPhone,
		IsRepeating:    row.IsRepeating != nil && *row.IsRepeating,
		Notes:          row.Notes,
		HealthNotes:    row.HealthNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// mergeStudent applies the non-empty fields of row over existing.
func mergeStudent(existing models.Student, row dto.StudentRow) models.Student {
	merged := existing
	overwrite(&merged.FirstName, row.FirstName)
	overwrite(&merged.LastName, row.LastName)
	overwrite(&merged.Level, row.Level)
	overwrite(&merged.Group, row.Group)
	overwrite(&merged.Gender, row.Gender)
	overwrite(&merged.BirthDate, row.BirthDate)
	overwrite(&merged.Phone, row.Phone)
	overwrite(&merged.Address, row.Address)
	overwrite(&merged.GuardianName, row.GuardianName)
	overwrite(&merged.GuardianPhone, row.GuardianPhone)
	overwrite(&merged.Notes, row.Notes)
	overwrite(&merged.HealthNotes, row.HealthNotes)
	if row.IsRepeating != nil {
		merged.IsRepeating = *row.IsRepeating
	}
	return merged
}

func overwrite(target *string, value string) {
	if value != "" {
		*target = value
	}
}
