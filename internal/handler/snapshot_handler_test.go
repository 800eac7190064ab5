package handler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/handler"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/service"
)

type mockSnapshotService struct {
	state       service.RestoreState
	document    []byte
	imported    []byte
	importErr   error
	validateErr error
	clearErr    error
	clearCalls  int
	calls       *[]string
}

func (m *mockSnapshotService) Export(context.Context) (models.Snapshot, error) {
	return models.Snapshot{}, nil
}

func (m *mockSnapshotService) ExportDocument(context.Context) ([]byte, error) {
	return m.document, nil
}

func (m *mockSnapshotService) Import(context.Context, models.Snapshot) (dto.SnapshotReport, error) {
	return dto.SnapshotReport{}, m.importErr
}

func (m *mockSnapshotService) ImportDocument(_ context.Context, raw []byte) (dto.SnapshotReport, error) {
	m.record("import")
	m.imported = raw
	if m.importErr != nil {
		return dto.SnapshotReport{}, m.importErr
	}
	return dto.SnapshotReport{Students: 1, Settings: true}, nil
}

func (m *mockSnapshotService) Validate([]byte) error {
	m.record("validate")
	return m.validateErr
}

func (m *mockSnapshotService) ClearAll(context.Context) error {
	m.record("clear")
	m.clearCalls++
	return m.clearErr
}

func (m *mockSnapshotService) State() service.RestoreState {
	return m.state
}

func (m *mockSnapshotService) record(call string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, call)
	}
}

type mockSeedService struct {
	calls *[]string
}

func (m *mockSeedService) EnsureDefaults(context.Context) (service.SeedReport, error) {
	if m.calls != nil {
		*m.calls = append(*m.calls, "seed")
	}
	return service.SeedReport{UsersCreated: 2}, nil
}

func newSnapshotApp(snapshots service.SnapshotService, backups service.BackupService, seeder service.SeedService) *fiber.App {
	app := fiber.New()
	h := handler.NewSnapshotHandler(snapshots, backups, seeder, zerolog.New(io.Discard))
	group := app.Group("/api/v1/snapshot")
	h.Register(group)
	h.RegisterAdmin(group)
	return app
}

func TestSnapshotHandlerExport(t *testing.T) {
	document := []byte("{\n  \"students\": []\n}\n")
	app := newSnapshotApp(&mockSnapshotService{document: document}, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "counsel-vault-")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, document, body)
}

func TestSnapshotHandlerRestoreCapturesSafetyCopyFirst(t *testing.T) {
	var calls []string
	snapshots := &mockSnapshotService{calls: &calls}
	backups := &mockBackupService{calls: &calls}
	app := newSnapshotApp(snapshots, backups, nil)

	document := []byte(`{"students":[{"id":"s-1","studentId":"2024-001"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", bytes.NewReader(document))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"validate", "pre-restore", "import"}, calls)
	require.Equal(t, document, snapshots.imported)
}

func TestSnapshotHandlerRejectedDocumentKeepsSafetyCopy(t *testing.T) {
	var calls []string
	snapshots := &mockSnapshotService{
		calls:       &calls,
		validateErr: fmt.Errorf("%w: students.0.id is required", service.ErrInvalidSnapshot),
	}
	backups := &mockBackupService{calls: &calls}
	app := newSnapshotApp(snapshots, backups, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v1/snapshot", map[string]interface{}{
		"students": []interface{}{map[string]interface{}{"studentId": "no id"}},
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, []string{"validate"}, calls)
	require.Nil(t, snapshots.imported)
}

func TestSnapshotHandlerRestoreFromMultipartUpload(t *testing.T) {
	snapshots := &mockSnapshotService{}
	app := newSnapshotApp(snapshots, nil, nil)

	req := multipartUpload(t, "/api/v1/snapshot", "backup.json", []byte(`{"settings":{"schoolName":"Ibn Sina"}}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, string(snapshots.imported), "Ibn Sina")
}

func TestSnapshotHandlerRejectsNonJSONUpload(t *testing.T) {
	snapshots := &mockSnapshotService{}
	app := newSnapshotApp(snapshots, nil, nil)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	resp, err := app.Test(multipartUpload(t, "/api/v1/snapshot", "photo.png", png))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
	require.Nil(t, snapshots.imported)
}

func TestSnapshotHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "invalid", err: fmt.Errorf("%w: duplicate id", service.ErrInvalidSnapshot), statusCode: fiber.StatusBadRequest},
		{name: "rolled back", err: fmt.Errorf("%w: disk full", service.ErrImportFailed), statusCode: fiber.StatusInternalServerError},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSnapshotApp(&mockSnapshotService{importErr: tc.err}, nil, nil)
			req := jsonRequest(t, http.MethodPost, "/api/v1/snapshot", map[string]interface{}{"students": []interface{}{}})

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
		})
	}
}

func TestSnapshotHandlerClearReseeds(t *testing.T) {
	var calls []string
	snapshots := &mockSnapshotService{calls: &calls}
	app := newSnapshotApp(snapshots, nil, &mockSeedService{calls: &calls})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/snapshot", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"clear", "seed"}, calls)

	var body struct {
		Data service.SeedReport `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, 2, body.Data.UsersCreated)
}

func TestSnapshotHandlerClearFailureSkipsSeeding(t *testing.T) {
	var calls []string
	snapshots := &mockSnapshotService{calls: &calls, clearErr: errors.New("locked")}
	app := newSnapshotApp(snapshots, nil, &mockSeedService{calls: &calls})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/snapshot", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, []string{"clear"}, calls)
}

func TestSnapshotHandlerSchema(t *testing.T) {
	app := newSnapshotApp(&mockSnapshotService{}, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/snapshot/schema", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, service.SnapshotSchemaDocument(), body)
}

func multipartUpload(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
