package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/normalizer"
)

// MaxRowsPerRequest bounds the JSON rows endpoint.
const MaxRowsPerRequest = 500

type ImportRowsUseCase struct {
	Reconciler *Reconciler
	Metrics    MetricsRecorder
	Logger     *zap.Logger
}

func NewImportRowsUseCase(reconciler *Reconciler, metrics MetricsRecorder, logger *zap.Logger) *ImportRowsUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportRowsUseCase{Reconciler: reconciler, Metrics: metrics, Logger: logger.Named("rows")}
}

func (uc *ImportRowsUseCase) Execute(ctx context.Context, in RowsInput) (*RowsOutput, error) {
	if len(in.Rows) == 0 {
		return nil, &DomainError{Code: CodeInvalidInput, Message: "No rows provided"}
	}
	if len(in.Rows) > MaxRowsPerRequest {
		return nil, &DomainError{
			Code:    CodeTooManyRows,
			Message: fmt.Sprintf("At most %d rows are accepted per request", MaxRowsPerRequest),
		}
	}

	records := make([]*entity.Provider, 0, len(in.Rows))
	for _, row := range in.Rows {
		if p := normalizer.FromRequired(row); p != nil {
			records = append(records, p)
		}
	}

	res, err := uc.Reconciler.Reconcile(ctx, records, ReconcileOptions{})
	if err != nil {
		return nil, err
	}
	uc.Metrics.RecordReconcile("rows", res.Added, res.Updated, res.Duplicates, res.LeadsCreated)

	return &RowsOutput{
		Success: true,
		Added:   res.Added,
		Updated: res.Updated,
		Total:   res.Added + res.Updated,
	}, nil
}
