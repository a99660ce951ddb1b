package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type UploadExecutor interface {
	Execute(ctx context.Context, in usecase.UploadInput) (*usecase.UploadOutput, error)
}

type RowsExecutor interface {
	Execute(ctx context.Context, in usecase.RowsInput) (*usecase.RowsOutput, error)
}

type UploadHandler struct {
	Upload UploadExecutor
	Rows   RowsExecutor
	Logger *zap.Logger
}

func NewUploadHandler(upload UploadExecutor, rows RowsExecutor, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{Upload: upload, Rows: rows, Logger: logger.Named("http.upload")}
}

// HandleFile accepts a multipart form with a "file" field.
func (h *UploadHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	// headroom for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, usecase.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, h.Logger, &usecase.DomainError{Code: usecase.CodeFileTooLarge, Message: "File exceeds the 100MB limit"})
			return
		}
		writeErrorResponse(w, h.Logger, &usecase.DomainError{Code: usecase.CodeInvalidInput, Message: "Expected a multipart form with a file"})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, h.Logger, &usecase.DomainError{Code: usecase.CodeInvalidInput, Message: "No file uploaded"})
		return
	}
	defer file.Close()

	if header.Size > usecase.MaxUploadBytes {
		writeErrorResponse(w, h.Logger, &usecase.DomainError{Code: usecase.CodeFileTooLarge, Message: "File exceeds the 100MB limit"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}

	out, err := h.Upload.Execute(r.Context(), usecase.UploadInput{FileName: header.Filename, Data: data})
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRows accepts {"rows": [...]} with at most 500 entries.
func (h *UploadHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	var in usecase.RowsInput
	if err := decodeJSON(r, &in); err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}

	out, err := h.Rows.Execute(r.Context(), in)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
