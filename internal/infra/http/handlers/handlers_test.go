package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/npi-leads/internal/infra/http/handlers"
	"github.com/xavierca1/npi-leads/internal/infra/queue"
	"github.com/xavierca1/npi-leads/internal/normalizer"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

type MockSyncExecutor struct{ mock.Mock }

func (m *MockSyncExecutor) Execute(ctx context.Context, in usecase.SyncInput) (*usecase.SyncOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.SyncOutput)
	return out, args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishSyncJob(ctx context.Context, job queue.SyncJob) error {
	return m.Called(ctx, job).Error(0)
}

type MockUploadExecutor struct{ mock.Mock }

func (m *MockUploadExecutor) Execute(ctx context.Context, in usecase.UploadInput) (*usecase.UploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.UploadOutput)
	return out, args.Error(1)
}

type MockRowsExecutor struct{ mock.Mock }

func (m *MockRowsExecutor) Execute(ctx context.Context, in usecase.RowsInput) (*usecase.RowsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.RowsOutput)
	return out, args.Error(1)
}

type MockProvisionExecutor struct{ mock.Mock }

func (m *MockProvisionExecutor) Execute(ctx context.Context, in usecase.ProvisionLeadsInput) (*usecase.ProvisionLeadsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*usecase.ProvisionLeadsOutput)
	return out, args.Error(1)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestSyncHandlerEmptyBodyUsesDefaults(t *testing.T) {
	uc := new(MockSyncExecutor)
	uc.On("Execute", mock.Anything, usecase.SyncInput{}).Return(&usecase.SyncOutput{Success: true, Added: 4, SearchKey: "default"}, nil)

	w := httptest.NewRecorder()
	handlers.NewSyncHandler(uc, nil, nil).Handle(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(4), body["added"])
	uc.AssertExpectations(t)
}

func TestSyncHandlerDecodesInput(t *testing.T) {
	uc := new(MockSyncExecutor)
	want := usecase.SyncInput{State: "TX", LastName: "Lee", MaxRecords: 400, Resume: true}
	uc.On("Execute", mock.Anything, want).Return(&usecase.SyncOutput{Success: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"state":"TX","last_name":"Lee","max_records":400,"resume":true}`))
	w := httptest.NewRecorder()
	handlers.NewSyncHandler(uc, nil, nil).Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	uc.AssertExpectations(t)
}

func TestSyncHandlerErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewSyncHandler(new(MockSyncExecutor), nil, nil).
			Handle(w, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader("{state")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, usecase.CodeInvalidInput, decodeBody(t, w)["code"])
	})

	t.Run("storage failure", func(t *testing.T) {
		uc := new(MockSyncExecutor)
		uc.On("Execute", mock.Anything, mock.Anything).
			Return(nil, &usecase.TechnicalError{Code: usecase.CodeDatabaseError, Message: "db", Err: errors.New("conn reset")})
		w := httptest.NewRecorder()
		handlers.NewSyncHandler(uc, nil, nil).Handle(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, usecase.CodeDatabaseError, body["code"])
		assert.NotContains(t, body["error"], "conn reset")
	})
}

func TestSyncHandlerEnqueue(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishSyncJob", mock.Anything, queue.SyncJob{Input: usecase.SyncInput{State: "CA", Resume: true}}).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync/jobs", strings.NewReader(`{"state":"CA"}`))
	w := httptest.NewRecorder()
	handlers.NewSyncHandler(new(MockSyncExecutor), pub, nil).HandleEnqueue(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "state=CA|last_name=Smith*|enumeration_type=NPI-1", body["searchKey"])
	pub.AssertExpectations(t)
}

func TestSyncHandlerEnqueueWithoutBroker(t *testing.T) {
	w := httptest.NewRecorder()
	handlers.NewSyncHandler(new(MockSyncExecutor), nil, nil).
		HandleEnqueue(w, httptest.NewRequest(http.MethodPost, "/api/sync/jobs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func multipartRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandlerFile(t *testing.T) {
	up := new(MockUploadExecutor)
	content := []byte("NPI,First Name,Last Name\n1234567890,Ana,Lima\n")
	up.On("Execute", mock.Anything, usecase.UploadInput{FileName: "providers.csv", Data: content}).
		Return(&usecase.UploadOutput{Success: true, Added: 1, TotalProcessed: 1}, nil)

	w := httptest.NewRecorder()
	handlers.NewUploadHandler(up, new(MockRowsExecutor), nil).HandleFile(w, multipartRequest(t, "file", "providers.csv", content))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["added"])
	up.AssertExpectations(t)
}

func TestUploadHandlerRejects(t *testing.T) {
	t.Run("missing file field", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewUploadHandler(new(MockUploadExecutor), nil, nil).
			HandleFile(w, multipartRequest(t, "attachment", "a.csv", []byte("npi\n")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewUploadHandler(new(MockUploadExecutor), nil, nil).
			HandleFile(w, httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("npi\n")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported format", func(t *testing.T) {
		up := new(MockUploadExecutor)
		up.On("Execute", mock.Anything, mock.Anything).
			Return(nil, &usecase.DomainError{Code: usecase.CodeUnsupportedFormat, Message: "Unsupported file format"})
		w := httptest.NewRecorder()
		handlers.NewUploadHandler(up, nil, nil).HandleFile(w, multipartRequest(t, "file", "a.pdf", []byte("%PDF")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, usecase.CodeUnsupportedFormat, decodeBody(t, w)["code"])
	})

	t.Run("file too large", func(t *testing.T) {
		up := new(MockUploadExecutor)
		up.On("Execute", mock.Anything, mock.Anything).
			Return(nil, &usecase.DomainError{Code: usecase.CodeFileTooLarge, Message: "too large"})
		w := httptest.NewRecorder()
		handlers.NewUploadHandler(up, nil, nil).HandleFile(w, multipartRequest(t, "file", "a.csv", []byte("npi\n")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestUploadHandlerRows(t *testing.T) {
	rows := new(MockRowsExecutor)
	rows.On("Execute", mock.Anything, usecase.RowsInput{Rows: []normalizer.RequiredRow{{NPI: "111", FirstName: "Ana", LastName: "Lima"}}}).
		Return(&usecase.RowsOutput{Success: true, Added: 1, Total: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/rows", strings.NewReader(`{"rows":[{"npi":"111","first_name":"Ana","last_name":"Lima"}]}`))
	w := httptest.NewRecorder()
	handlers.NewUploadHandler(nil, rows, nil).HandleRows(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rows.AssertExpectations(t)
}

func TestProviderHandlerSaveAll(t *testing.T) {
	prov := new(MockProvisionExecutor)
	prov.On("Execute", mock.Anything, usecase.ProvisionLeadsInput{SaveAll: true}).
		Return(&usecase.ProvisionLeadsOutput{Success: true, Saved: 7, Duplicates: 3, Total: 10}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/providers/save-all", strings.NewReader(`{"saveAll":true}`))
	w := httptest.NewRecorder()
	handlers.NewProviderHandler(prov, nil).HandleSaveAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(7), body["saved"])
	assert.Equal(t, float64(3), body["duplicates"])
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

type stubConn struct{ closed bool }

func (s stubConn) IsClosed() bool { return s.closed }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewHealthHandler(stubPinger{}, stubConn{}, "https://npiregistry.cms.hhs.gov/api/", "test").
			Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp handlers.HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Dependencies["database"])
		assert.Equal(t, "configured", resp.Dependencies["nppes"])
	})

	t.Run("optional dependencies absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewHealthHandler(stubPinger{}, nil, "", "test").
			Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.NewHealthHandler(stubPinger{err: errors.New("refused")}, stubConn{closed: true}, "", "test").
			Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp handlers.HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy: connection closed", resp.Dependencies["rabbitmq"])
	})
}
