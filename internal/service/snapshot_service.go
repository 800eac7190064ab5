package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/observability"
	"github.com/noah-isme/counsel-vault/internal/repository"
	"github.com/noah-isme/counsel-vault/pkg/events"
)

// RestoreState tracks the progress of a snapshot import.
type RestoreState string

// Restore states. Validating falls back to Idle on rejection; Clearing and
// Repopulating fail into Failed.
const (
	RestoreIdle         RestoreState = "idle"
	RestoreValidating   RestoreState = "validating"
	RestoreClearing     RestoreState = "clearing"
	RestoreRepopulating RestoreState = "repopulating"
	RestoreDone         RestoreState = "done"
	RestoreFailed       RestoreState = "failed"
)

// SnapshotService exports, imports, and clears the whole store.
type SnapshotService interface {
	Export(ctx context.Context) (models.Snapshot, error)
	// ExportDocument renders the export as the canonical snapshot file.
	ExportDocument(ctx context.Context) ([]byte, error)
	// Import replaces every collection with the snapshot contents.
	Import(ctx context.Context, snapshot models.Snapshot) (dto.SnapshotReport, error)
	ImportDocument(ctx context.Context, raw []byte) (dto.SnapshotReport, error)
	// Validate checks a snapshot document without touching the store.
	Validate(raw []byte) error
	ClearAll(ctx context.Context) error
	State() RestoreState
}

type snapshotService struct {
	store     repository.RecordStore
	settings  SettingsCache
	sessions  *SessionTable
	validator *validator.Validate
	events    events.Publisher
	logger    zerolog.Logger

	opMu    sync.Mutex
	stateMu sync.RWMutex
	state   RestoreState
}

// NewSnapshotService constructs the snapshot engine. Sessions whose user is
// removed or replaced by a clear or an import are ended; sessions may be nil.
func NewSnapshotService(store repository.RecordStore, settings SettingsCache, sessions *SessionTable, validate *validator.Validate, publisher events.Publisher, logger zerolog.Logger) SnapshotService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &snapshotService{
		store:     store,
		settings:  settings,
		sessions:  sessions,
		validator: validate,
		events:    publisher,
		logger:    logger.With().Str("component", "snapshot_service").Logger(),
		state:     RestoreIdle,
	}
}

func (s *snapshotService) State() RestoreState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *snapshotService) Export(ctx context.Context) (snapshot models.Snapshot, err error) {
	started := time.Now()
	ctx, span := observability.Tracer("service").Start(ctx, "snapshot.export")
	defer func() {
		observability.ObserveSnapshot("export", started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "export failed")
		}
		span.End()
	}()

	if snapshot.Students, err = listSorted(ctx, repository.NewCollection[models.Student](s.store, repository.CollectionStudents), func(v models.Student) string { return v.ID }); err != nil {
		return models.Snapshot{}, err
	}
	if snapshot.Users, err = listSorted(ctx, repository.NewCollection[models.User](s.store, repository.CollectionUsers), func(v models.User) string { return v.ID }); err != nil {
		return models.Snapshot{}, err
	}
	if snapshot.Tests, err = listSorted(ctx, repository.NewCollection[models.Test](s.store, repository.CollectionTests), func(v models.Test) string { return v.ID }); err != nil {
		return models.Snapshot{}, err
	}
	if snapshot.TestResults, err = listSorted(ctx, repository.NewCollection[models.TestResult](s.store, repository.CollectionTestResults), func(v models.TestResult) string { return v.ID }); err != nil {
		return models.Snapshot{}, err
	}
	if snapshot.Grades, err = listSorted(ctx, repository.NewCollection[models.GradeRecord](s.store, repository.CollectionGrades), func(v models.GradeRecord) string { return v.ID }); err != nil {
		return models.Snapshot{}, err
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	snapshot.Settings = &settings

	span.SetAttributes(attribute.Int("records", snapshot.RecordCount()))
	s.logger.Info().Int("records", snapshot.RecordCount()).Msg("snapshot exported")
	return snapshot, nil
}

func (s *snapshotService) ExportDocument(ctx context.Context) ([]byte, error) {
	snapshot, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return EncodeSnapshot(snapshot)
}

func (s *snapshotService) Import(ctx context.Context, snapshot models.Snapshot) (dto.SnapshotReport, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setState(RestoreValidating)
	if err := s.validate(snapshot); err != nil {
		s.setState(RestoreIdle)
		observability.SnapshotOperations().WithLabelValues("import", "rejected").Inc()
		return dto.SnapshotReport{}, err
	}

	return s.restore(ctx, snapshot)
}

func (s *snapshotService) ImportDocument(ctx context.Context, raw []byte) (dto.SnapshotReport, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setState(RestoreValidating)
	snapshot, err := s.decode(raw)
	if err != nil {
		s.setState(RestoreIdle)
		observability.SnapshotOperations().WithLabelValues("import", "rejected").Inc()
		return dto.SnapshotReport{}, err
	}

	return s.restore(ctx, snapshot)
}

func (s *snapshotService) Validate(raw []byte) error {
	_, err := s.decode(raw)
	return err
}

func (s *snapshotService) ClearAll(ctx context.Context) (err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	started := time.Now()
	ctx, span := observability.Tracer("service").Start(ctx, "snapshot.clear")
	defer func() {
		observability.ObserveSnapshot("clear", started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "clear failed")
		}
		span.End()
	}()

	err = s.store.WithTx(ctx, func(tx repository.RecordStore) error {
		for _, collection := range repository.Collections {
			if err := tx.Clear(ctx, collection); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("clear failed")
		return err
	}

	s.endSessions(nil)

	if err = s.settings.Invalidate(ctx); err != nil {
		return err
	}

	s.logger.Info().Msg("store cleared")
	s.publish(ctx, events.SnapshotCleared, map[string]any{"cleared_at": time.Now().UTC()})
	return nil
}

// restore runs Clearing and Repopulating inside one transaction, writing
// settings last. A failure rolls the store back to its previous contents.
func (s *snapshotService) restore(ctx context.Context, snapshot models.Snapshot) (report dto.SnapshotReport, err error) {
	started := time.Now()
	ctx, span := observability.Tracer("service").Start(ctx, "snapshot.import")
	defer func() {
		observability.ObserveSnapshot("import", started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "import failed")
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("records", snapshot.RecordCount()))

	err = s.store.WithTx(ctx, func(tx repository.RecordStore) error {
		s.setState(RestoreClearing)
		for _, collection := range repository.Collections {
			if err := tx.Clear(ctx, collection); err != nil {
				return fmt.Errorf("clear %s: %w", collection, err)
			}
		}

		s.setState(RestoreRepopulating)
		if err := putAll(ctx, tx, repository.CollectionStudents, snapshot.Students, func(v models.Student) string { return v.ID }); err != nil {
			return err
		}
		if err := putAll(ctx, tx, repository.CollectionUsers, snapshot.Users, func(v models.User) string { return v.ID }); err != nil {
			return err
		}
		if err := putAll(ctx, tx, repository.CollectionTests, snapshot.Tests, func(v models.Test) string { return v.ID }); err != nil {
			return err
		}
		if err := putAll(ctx, tx, repository.CollectionTestResults, snapshot.TestResults, func(v models.TestResult) string { return v.ID }); err != nil {
			return err
		}
		if err := putAll(ctx, tx, repository.CollectionGrades, snapshot.Grades, func(v models.GradeRecord) string { return v.ID }); err != nil {
			return err
		}

		if snapshot.Settings != nil {
			if err := tx.Put(ctx, repository.CollectionSettings, SettingsRecordID, *snapshot.Settings); err != nil {
				return fmt.Errorf("put settings: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.setState(RestoreFailed)
		s.logger.Error().Err(err).Msg("snapshot import failed, store rolled back")
		return dto.SnapshotReport{}, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	s.endSessions(snapshot.Users)

	if snapshot.Settings != nil {
		err = s.settings.Prime(ctx, *snapshot.Settings)
	} else {
		err = s.settings.Invalidate(ctx)
	}
	if err != nil {
		s.setState(RestoreFailed)
		s.logger.Error().Err(err).Msg("snapshot imported but settings cache is stale")
		return dto.SnapshotReport{}, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	s.setState(RestoreDone)
	report = dto.NewSnapshotReport(snapshot)
	s.logger.Info().Int("records", report.Total()).Bool("settings", report.Settings).Msg("snapshot imported")
	s.publish(ctx, events.SnapshotImported, report)
	return report, nil
}

func (s *snapshotService) decode(raw []byte) (models.Snapshot, error) {
	if err := validateSnapshotDocument(raw); err != nil {
		return models.Snapshot{}, err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if err := s.validate(snapshot); err != nil {
		return models.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *snapshotService) validate(snapshot models.Snapshot) error {
	if s.validator != nil {
		if err := s.validator.Struct(snapshot); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}

	checks := []struct {
		name string
		ids  []string
	}{
		{"students", idsOf(snapshot.Students, func(v models.Student) string { return v.ID })},
		{"users", idsOf(snapshot.Users, func(v models.User) string { return v.ID })},
		{"tests", idsOf(snapshot.Tests, func(v models.Test) string { return v.ID })},
		{"testResults", idsOf(snapshot.TestResults, func(v models.TestResult) string { return v.ID })},
		{"grades", idsOf(snapshot.Grades, func(v models.GradeRecord) string { return v.ID })},
	}
	for _, check := range checks {
		if duplicate := firstDuplicate(check.ids); duplicate != "" {
			return fmt.Errorf("%w: duplicate id %q in %s", ErrInvalidSnapshot, duplicate, check.name)
		}
	}
	return nil
}

// endSessions drops every session whose user is not in users with the same
// role.
func (s *snapshotService) endSessions(users []models.User) {
	if s.sessions == nil {
		return
	}
	roles := make(map[string]string, len(users))
	for _, user := range users {
		roles[user.ID] = user.Role
	}
	ended := s.sessions.Retain(func(session Session) bool {
		role, ok := roles[session.UserID]
		return ok && role == session.Role
	})
	if ended > 0 {
		s.logger.Info().Int("sessions", ended).Msg("sessions ended after store replacement")
	}
}

func (s *snapshotService) setState(state RestoreState) {
	s.stateMu.Lock()
	previous := s.state
	s.state = state
	s.stateMu.Unlock()

	s.logger.Debug().Str("from", string(previous)).Str("to", string(state)).Msg("restore state changed")
}

func (s *snapshotService) publish(ctx context.Context, event string, payload any) {
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event")
	}
}

// EncodeSnapshot renders a snapshot as the indented document used for files
// and backups.
func EncodeSnapshot(snapshot models.Snapshot) ([]byte, error) {
	document, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(document, '\n'), nil
}

func listSorted[T any](ctx context.Context, collection repository.Collection[T], id func(T) string) ([]T, error) {
	items, err := collection.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b T) int { return strings.Compare(id(a), id(b)) })
	return items, nil
}

func putAll[T any](ctx context.Context, store repository.RecordStore, collection repository.CollectionName, items []T, id func(T) string) error {
	for _, item := range items {
		if err := store.Put(ctx, collection, id(item), item); err != nil {
			return fmt.Errorf("put %s/%s: %w", collection, id(item), err)
		}
	}
	return nil
}

func idsOf[T any](items []T, id func(T) string) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, id(item))
	}
	return ids
}

func firstDuplicate(ids []string) string {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return ""
}
