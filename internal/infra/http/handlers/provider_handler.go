package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type ProvisionExecutor interface {
	Execute(ctx context.Context, in usecase.ProvisionLeadsInput) (*usecase.ProvisionLeadsOutput, error)
}

type ProviderHandler struct {
	Provision ProvisionExecutor
	Logger    *zap.Logger
}

func NewProviderHandler(provision ProvisionExecutor, logger *zap.Logger) *ProviderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderHandler{Provision: provision, Logger: logger.Named("http.providers")}
}

// HandleSaveAll creates NEW leads for the selected providers that have none.
func (h *ProviderHandler) HandleSaveAll(w http.ResponseWriter, r *http.Request) {
	var in usecase.ProvisionLeadsInput
	if err := decodeJSON(r, &in); err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}

	out, err := h.Provision.Execute(r.Context(), in)
	if err != nil {
		writeErrorResponse(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
