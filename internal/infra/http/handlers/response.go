package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeErrorResponse maps DomainError to 400 and anything else to 500.
func writeErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error) {
	var domainErr *usecase.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusBadRequest
		if domainErr.Code == usecase.CodeFileTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResponse{Code: domainErr.Code, Error: domainErr.Message})
		return
	}

	logger.Error("request failed", zap.Error(err))
	code := "INTERNAL_ERROR"
	var techErr *usecase.TechnicalError
	if errors.As(err, &techErr) {
		code = techErr.Code
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: code, Error: "Internal server error"})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &usecase.DomainError{Code: usecase.CodeInvalidInput, Message: "Invalid JSON body"}
	}
	return nil
}
