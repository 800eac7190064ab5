package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/database"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
)

const testCacheKey = "test:settings"

var fixtureTime = time.Date(2024, time.September, 1, 8, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type testEnv struct {
	store    repository.RecordStore
	backups  repository.BackupRepository
	meta     repository.MetaRepository
	cache    *redis.Client
	mini     *miniredis.Miniredis
	validate *validator.Validate
	sessions *SessionTable
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenDurable("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{
		store:    repository.NewRecordStore(db),
		backups:  repository.NewBackupRepository(db),
		meta:     repository.NewMetaRepository(db),
		cache:    client,
		mini:     mini,
		validate: validator.New(),
		sessions: NewSessionTable(),
	}
}

func (e *testEnv) settingsCache(store repository.RecordStore) SettingsCache {
	if store == nil {
		store = e.store
	}
	return NewSettingsCache(store, e.cache, testCacheKey, e.validate, testLogger())
}

func (e *testEnv) snapshotService() SnapshotService {
	return NewSnapshotService(e.store, e.settingsCache(nil), e.sessions, e.validate, nil, testLogger())
}

// failingStore injects storage failures into selected writes.
type failingStore struct {
	repository.RecordStore
	failPut func(collection repository.CollectionName, id string) bool
}

func (f *failingStore) Put(ctx context.Context, collection repository.CollectionName, id string, value any) error {
	if f.failPut != nil && f.failPut(collection, id) {
		return fmt.Errorf("%w: put: disk full", repository.ErrStorageFailure)
	}
	return f.RecordStore.Put(ctx, collection, id, value)
}

func (f *failingStore) WithTx(ctx context.Context, fn func(tx repository.RecordStore) error) error {
	return f.RecordStore.WithTx(ctx, func(tx repository.RecordStore) error {
		return fn(&failingStore{RecordStore: tx, failPut: f.failPut})
	})
}

// failAfter fails every write to collection after the first n succeed.
func failAfter(collection repository.CollectionName, n int64) func(repository.CollectionName, string) bool {
	var writes atomic.Int64
	return func(target repository.CollectionName, _ string) bool {
		if target != collection {
			return false
		}
		return writes.Add(1) > n
	}
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ any) error {
	p.events = append(p.events, event)
	return nil
}

func fixtureSnapshot() models.Snapshot {
	settings := models.DefaultSettings()
	settings.SchoolName = "Lycee Ibn Khaldoun"
	settings.CounselorName = "Nadia Benali"

	return models.Snapshot{
		Students: []models.Student{
			{
				ID: "st-1", StudentID: "1001", FirstName: "Amina", LastName: "Haddad",
				Level: "السنة الأولى", Group: "1", Gender: "F", BirthDate: "2010-03-14",
				EnrollmentDate: "2024-09-01", Phone: "0550000001", GuardianName: "Karim Haddad",
				CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
			},
			{
				ID: "st-2", StudentID: "1002", FirstName: "Yacine", LastName: "Mansouri",
				Level: "السنة الثانية", Group: "2", Gender: "M", EnrollmentDate: "2024-09-01",
				IsRepeating: true, Notes: "Needs follow-up",
				CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
			},
		},
		Users: []models.User{
			{ID: "us-1", Email: "admin@school.local", Password: "$2a$10$fixturehash", Role: models.RoleAdmin, CreatedAt: fixtureTime},
		},
		Settings: &settings,
		Tests: []models.Test{
			{
				ID: "te-1", Title: "Orientation survey", Type: "survey", Description: "Start of year", Duration: 20,
				Questions: []models.Question{
					{ID: "q-1", Text: "Preferred stream?", Type: models.QuestionMultipleChoice, Options: []string{"Sciences", "Letters"}, CorrectAnswer: "Sciences"},
					{ID: "q-2", Text: "Do you study daily?", Type: models.QuestionTrueFalse, CorrectAnswer: true},
				},
				CreatedAt: fixtureTime,
			},
		},
		TestResults: []models.TestResult{
			{
				ID: "tr-1", TestID: "te-1", StudentID: "st-1",
				Answers: []models.Answer{
					{QuestionID: "q-1", Answer: "Sciences", IsCorrect: true},
					{QuestionID: "q-2", Answer: false, IsCorrect: false},
				},
				Score: 50, CompletedAt: fixtureTime,
			},
		},
		Grades: []models.GradeRecord{
			{ID: "gr-1", StudentID: "1001", Semester: models.SemesterFirst, Subject: "Math", Score: 12, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
			{ID: "gr-2", StudentID: "1002", Semester: models.SemesterFirst, Subject: "Physics", Score: 15.5, CreatedAt: fixtureTime, UpdatedAt: fixtureTime},
		},
	}
}

func floatPtr(value float64) *float64 {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func stringPtr(value string) *string {
	return &value
}
