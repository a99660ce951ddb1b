package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/infra/queue"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

type SyncExecutor interface {
	Execute(ctx context.Context, in usecase.SyncInput) (*usecase.SyncOutput, error)
}

type SyncHandler struct {
	UseCase   SyncExecutor
	Publisher queue.SyncJobPublisher
	Logger    *zap.Logger
}

// NewSyncHandler accepts a nil publisher when no broker is configured; the
// enqueue endpoint then answers 503.
func NewSyncHandler(uc SyncExecutor, publisher queue.SyncJobPublisher, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{UseCase: uc, Publisher: publisher, Logger: logger.Named("http.sync")}
}

// decode treats an empty body as a request with every default applied.
func (h *SyncHandler) decode(r *http.Request) (usecase.SyncInput, error) {
	var in usecase.SyncInput
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return in, &usecase.DomainError{Code: usecase.CodeInvalidInput, Message: "Unreadable request body"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return in, &usecase.DomainError{Code: usecase.CodeInvalidInput, Message: "Invalid JSON body"}
	}
	return in, nil
}

// Handle runs one sync invocation synchronously.
func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(r)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}

	out, err := h.UseCase.Execute(r.Context(), in)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type EnqueueResponse struct {
	Success   bool   `json:"success"`
	SearchKey string `json:"searchKey"`
	Message   string `json:"message"`
}

// HandleEnqueue schedules a background sync that keeps resuming until the
// search is complete.
func (h *SyncHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.Publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Code: "QUEUE_UNAVAILABLE", Error: "Background sync is not configured"})
		return
	}
	in, err := h.decode(r)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	in.Resume = true

	if err := h.Publisher.PublishSyncJob(r.Context(), queue.SyncJob{Input: in}); err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		Success:   true,
		SearchKey: usecase.ProgressKey(usecase.BuildSearchParams(in)),
		Message:   "Sync job queued",
	})
}
