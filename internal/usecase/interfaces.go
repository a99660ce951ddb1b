package usecase

import (
	"context"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
)

type ProviderRepositoryInterface interface {
	FindExistingByNPI(ctx context.Context, npis []string) (map[string]string, error)
	CreateWithLeads(ctx context.Context, items []entity.ProviderLead) error
	UpdateBatch(ctx context.Context, providers []*entity.Provider) error
	FindWithoutLeads(ctx context.Context, providerIDs []string) ([]string, error)
	CreateLeads(ctx context.Context, leads []*entity.Lead) error
	FilterExistingIDs(ctx context.Context, ids []string) ([]string, error)
	ListIDsAfter(ctx context.Context, afterID string, limit int) ([]string, error)
}

type SyncProgressRepositoryInterface interface {
	Load(ctx context.Context, key string) (*entity.SyncProgress, error)
	Save(ctx context.Context, p *entity.SyncProgress) error
}

type RegistryClient interface {
	FetchAll(ctx context.Context, req nppes.FetchRequest) (*nppes.FetchResult, error)
}

// UploadArchiver keeps a copy of raw uploads.
type UploadArchiver interface {
	Archive(ctx context.Context, fileName string, data []byte) (string, error)
}

type MetricsRecorder interface {
	RecordReconcile(source string, added, updated, duplicates, leadsCreated int)
	RecordRegistryPageFailures(n int)
	RecordSyncProgress(searchKey string, fraction float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordReconcile(string, int, int, int, int) {}
func (noopMetrics) RecordRegistryPageFailures(int)             {}
func (noopMetrics) RecordSyncProgress(string, float64)         {}
