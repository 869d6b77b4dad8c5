package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-qa-be/internal/dto"
	"pdf-qa-be/internal/entity"
	"pdf-qa-be/internal/pkg/serverutils"
	"pdf-qa-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocumentService struct {
	service.IDocumentService

	uploadedName string
	uploadedData []byte
	skip, limit  int
	deleted      uint
}

func (f *fakeDocumentService) Upload(_ context.Context, filename string, data []byte) (*dto.DocumentResponse, error) {
	f.uploadedName = filename
	f.uploadedData = data
	return &dto.DocumentResponse{Id: 1, Filename: filename, Status: string(entity.DocumentStatusPending)}, nil
}

func (f *fakeDocumentService) List(_ context.Context, skip, limit int) ([]*dto.DocumentResponse, error) {
	f.skip, f.limit = skip, limit
	return []*dto.DocumentResponse{{Id: 1}}, nil
}

func (f *fakeDocumentService) Show(_ context.Context, id uint) (*dto.DocumentResponse, error) {
	if id != 1 {
		return nil, service.ErrDocumentNotFound
	}
	return &dto.DocumentResponse{Id: 1}, nil
}

func (f *fakeDocumentService) Delete(_ context.Context, id uint) error {
	f.deleted = id
	return nil
}

func newTestApp(svc service.IDocumentService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: serverutils.NewErrorHandler(func(err error) (int, bool) {
			if errors.Is(err, service.ErrDocumentNotFound) {
				return fiber.StatusNotFound, true
			}
			return 0, false
		}),
	})
	NewDocumentController(svc, nil).RegisterRoutes(app.Group("/api"))
	return app
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestUploadPassesFileToService(t *testing.T) {
	svc := &fakeDocumentService{}
	app := newTestApp(svc)

	body, contentType := multipartBody(t, "file", "report.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "report.pdf", svc.uploadedName)
	assert.Equal(t, []byte("%PDF-1.4 test"), svc.uploadedData)

	var res serverutils.Response[dto.DocumentResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, "pending", res.Data.Status)
}

func TestUploadRequiresFileField(t *testing.T) {
	app := newTestApp(&fakeDocumentService{})

	body, contentType := multipartBody(t, "document", "report.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDefaultsAndValidation(t *testing.T) {
	svc := &fakeDocumentService{}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, svc.skip)
	assert.Equal(t, 10, svc.limit)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/documents?skip=5&limit=100", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, svc.skip)
	assert.Equal(t, 100, svc.limit)

	for _, query := range []string{"?limit=0", "?limit=101", "?skip=-1"} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/documents"+query, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestShowAndDelete(t *testing.T) {
	svc := &fakeDocumentService{}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/documents/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/documents/2", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/documents/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/documents/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, svc.deleted)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	app := fiber.New()
	NewHealthController(pingerFunc(func(context.Context) error { return nil })).RegisterRoutes(app)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app = fiber.New()
	NewHealthController(pingerFunc(func(context.Context) error { return errors.New("down") })).RegisterRoutes(app)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
