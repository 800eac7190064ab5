package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/repository"
	"github.com/noah-isme/counsel-vault/pkg/events"
)

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	fixture := fixtureSnapshot()
	report, err := svc.Import(ctx, fixture)
	require.NoError(t, err)
	require.Equal(t, 7, report.Total())
	require.True(t, report.Settings)
	require.Equal(t, RestoreDone, svc.State())

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Equal(t, fixture, exported)

	_, err = svc.Import(ctx, exported)
	require.NoError(t, err)

	again, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Equal(t, exported, again)
}

func TestSnapshotExportGolden(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	document, err := svc.ExportDocument(ctx)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "snapshot_export", document)
}

func TestSnapshotExportMatchesSchema(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	document, err := svc.ExportDocument(ctx)
	require.NoError(t, err)

	schema, err := SnapshotSchema()
	require.NoError(t, err)

	var payload any
	require.NoError(t, json.Unmarshal(document, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestSnapshotClearThenRestore(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	fixture := fixtureSnapshot()
	fixture.Students = append(fixture.Students, models.Student{
		ID: "st-3", StudentID: "1003", FirstName: "Lina", LastName: "Saadi",
		Level: "السنة الأولى", Group: "3", CreatedAt: fixtureTime, UpdatedAt: fixtureTime,
	})
	_, err := svc.Import(ctx, fixture)
	require.NoError(t, err)

	saved, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, saved.Students, 3)
	require.Len(t, saved.Grades, 2)

	require.NoError(t, svc.ClearAll(ctx))
	for _, collection := range repository.Collections {
		total, err := env.store.Count(ctx, collection)
		require.NoError(t, err)
		require.Zero(t, total, "collection %s must be empty", collection)
	}
	require.False(t, env.mini.Exists(testCacheKey), "cached settings must be dropped")

	_, err = svc.Import(ctx, saved)
	require.NoError(t, err)

	restored, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, restored.Students, 3)
	require.Len(t, restored.Grades, 2)
	require.Equal(t, saved.Students, restored.Students)
	require.Equal(t, saved.Grades, restored.Grades)
}

func TestSnapshotImportSkipsAbsentCollections(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	report, err := svc.ImportDocument(ctx, []byte(`{"students": [{"id": "st-9", "studentId": "9009", "firstName": "Sami", "lastName": "Kaci"}], "grades": null}`))
	require.NoError(t, err)
	require.Equal(t, 1, report.Students)
	require.False(t, report.Settings)

	exported, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, exported.Students, 1)
	require.Empty(t, exported.Grades)
	require.Empty(t, exported.Users)
	require.Equal(t, models.DefaultSettings(), *exported.Settings, "settings fall back to defaults once cleared")
}

func TestSnapshotImportRejectsInvalidDocumentsBeforeClearing(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	cases := map[string]string{
		"malformed":     `{"students": [`,
		"not an object": `[1, 2, 3]`,
		"unknown only":  `{"pupils": []}`,
		"missing id":    `{"students": [{"firstName": "Nobody"}]}`,
		"wrong type":    `{"grades": [{"id": "g", "studentId": "1", "semester": "x", "subject": "Math", "score": "high"}]}`,
		"duplicate id":  `{"users": [{"id": "u-1"}, {"id": "u-1"}]}`,
	}
	for name, document := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ImportDocument(ctx, []byte(document))
			require.ErrorIs(t, err, ErrInvalidSnapshot)
			require.Equal(t, RestoreIdle, svc.State())

			total, err := env.store.Count(ctx, repository.CollectionStudents)
			require.NoError(t, err)
			require.Equal(t, int64(2), total, "store must be untouched")
		})
	}
}

func TestSnapshotImportFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.snapshotService().Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	broken := &failingStore{RecordStore: env.store, failPut: failAfter(repository.CollectionGrades, 1)}
	svc := NewSnapshotService(broken, env.settingsCache(nil), nil, env.validate, nil, testLogger())

	replacement := fixtureSnapshot()
	replacement.Students = replacement.Students[:1]
	_, err = svc.Import(ctx, replacement)
	require.ErrorIs(t, err, ErrImportFailed)
	require.ErrorIs(t, err, repository.ErrStorageFailure)
	require.Equal(t, RestoreFailed, svc.State())

	students, err := env.store.Count(ctx, repository.CollectionStudents)
	require.NoError(t, err)
	require.Equal(t, int64(2), students, "failed import must leave previous contents")

	grades, err := env.store.Count(ctx, repository.CollectionGrades)
	require.NoError(t, err)
	require.Equal(t, int64(2), grades)
}

func TestSnapshotPublishesEvents(t *testing.T) {
	env := newTestEnv(t)
	publisher := &recordingPublisher{}
	svc := NewSnapshotService(env.store, env.settingsCache(nil), nil, env.validate, publisher, testLogger())
	ctx := context.Background()

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)
	require.NoError(t, svc.ClearAll(ctx))

	require.Equal(t, []string{events.SnapshotImported, events.SnapshotCleared}, publisher.events)
}

func TestSnapshotReplacementEndsStaleSessions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()
	ctx := context.Background()
	future := fixtureTime.Add(time.Hour)

	env.sessions.Add(Session{ID: "kept", UserID: "us-1", Role: models.RoleAdmin, ExpiresAt: future})
	env.sessions.Add(Session{ID: "demoted", UserID: "us-1", Role: models.RoleTeacher, ExpiresAt: future})
	env.sessions.Add(Session{ID: "gone", UserID: "us-9", Role: models.RoleAdmin, ExpiresAt: future})

	_, err := svc.Import(ctx, fixtureSnapshot())
	require.NoError(t, err)

	_, ok := env.sessions.Get("kept", fixtureTime)
	require.True(t, ok)
	_, ok = env.sessions.Get("demoted", fixtureTime)
	require.False(t, ok)
	_, ok = env.sessions.Get("gone", fixtureTime)
	require.False(t, ok)

	require.NoError(t, svc.ClearAll(ctx))
	require.Zero(t, env.sessions.Len())
}

func TestRejectedSnapshotKeepsSessions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.snapshotService()

	env.sessions.Add(Session{ID: "s-1", UserID: "us-9", Role: models.RoleAdmin, ExpiresAt: fixtureTime.Add(time.Hour)})

	_, err := svc.ImportDocument(context.Background(), []byte(`{"students":[{"studentId":"no id"}]}`))
	require.ErrorIs(t, err, ErrInvalidSnapshot)
	require.Equal(t, 1, env.sessions.Len())
}
