package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/entity"
)

// ChunkSize bounds every write transaction.
const ChunkSize = 50

type ReconcileOptions struct {
	// CreateLeadsForExisting also provisions a NEW lead for already stored
	// providers that have none.
	CreateLeadsForExisting bool
}

type ReconcileResult struct {
	Added        int
	Updated      int
	Processed    int
	Duplicates   int
	LeadsCreated int
}

func (r *ReconcileResult) merge(other ReconcileResult) {
	r.Added += other.Added
	r.Updated += other.Updated
	r.Processed += other.Processed
	r.Duplicates += other.Duplicates
	r.LeadsCreated += other.LeadsCreated
}

type Reconciler struct {
	Repo   ProviderRepositoryInterface
	Logger *zap.Logger
	Now    func() time.Time
}

func NewReconciler(repo ProviderRepositoryInterface, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		Repo:   repo,
		Logger: logger.Named("reconcile"),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile upserts a batch of canonical records. Existence is resolved with a
// single lookup; writes go out in independent chunks of ChunkSize. On error the
// returned result holds the counts of the chunks that were committed.
func (r *Reconciler) Reconcile(ctx context.Context, records []*entity.Provider, opts ReconcileOptions) (ReconcileResult, error) {
	unique, valid := dedupeByNPI(records)
	result := ReconcileResult{
		Processed:  valid,
		Duplicates: valid - len(unique),
	}
	if len(unique) == 0 {
		return result, nil
	}

	npis := make([]string, len(unique))
	for i, p := range unique {
		npis[i] = p.NPI
	}
	existing, err := r.Repo.FindExistingByNPI(ctx, npis)
	if err != nil {
		return result, storageError(err)
	}

	now := r.Now()
	var creates []entity.ProviderLead
	var updates []*entity.Provider
	for _, p := range unique {
		p.UpdatedAt = now
		if id, ok := existing[p.NPI]; ok {
			p.ID = id
			updates = append(updates, p)
			continue
		}
		p.ID = uuid.NewString()
		p.CreatedAt = now
		creates = append(creates, entity.ProviderLead{Provider: p, Lead: entity.NewLead(p.ID, now)})
	}

	// 1. Creates, each provider with its lead
	for start := 0; start < len(creates); start += ChunkSize {
		chunk := creates[start:min(start+ChunkSize, len(creates))]
		if err := r.Repo.CreateWithLeads(ctx, chunk); err != nil {
			r.Logger.Error("create chunk failed", zap.Int("offset", start), zap.Int("size", len(chunk)), zap.Error(err))
			return result, storageError(err)
		}
		result.Added += len(chunk)
		result.LeadsCreated += len(chunk)
	}

	// 2. Updates, leads untouched
	for start := 0; start < len(updates); start += ChunkSize {
		chunk := updates[start:min(start+ChunkSize, len(updates))]
		if err := r.Repo.UpdateBatch(ctx, chunk); err != nil {
			r.Logger.Error("update chunk failed", zap.Int("offset", start), zap.Int("size", len(chunk)), zap.Error(err))
			return result, storageError(err)
		}
		result.Updated += len(chunk)
	}

	// 3. Backfill leads for existing providers without one
	if opts.CreateLeadsForExisting && len(updates) > 0 {
		ids := make([]string, len(updates))
		for i, p := range updates {
			ids[i] = p.ID
		}
		created, err := r.provisionLeads(ctx, ids)
		result.LeadsCreated += created
		if err != nil {
			return result, err
		}
	}

	r.Logger.Debug("batch reconciled",
		zap.Int("processed", result.Processed),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("leads_created", result.LeadsCreated),
	)
	return result, nil
}

// provisionLeads creates NEW leads for the ids that have none, using one
// lookup query and ChunkSize transactions. It returns how many were created.
func (r *Reconciler) provisionLeads(ctx context.Context, providerIDs []string) (int, error) {
	missing, err := r.Repo.FindWithoutLeads(ctx, providerIDs)
	if err != nil {
		return 0, storageError(err)
	}

	now := r.Now()
	created := 0
	for start := 0; start < len(missing); start += ChunkSize {
		ids := missing[start:min(start+ChunkSize, len(missing))]
		leads := make([]*entity.Lead, len(ids))
		for i, id := range ids {
			leads[i] = entity.NewLead(id, now)
		}
		if err := r.Repo.CreateLeads(ctx, leads); err != nil {
			return created, storageError(err)
		}
		created += len(leads)
	}
	return created, nil
}

// dedupeByNPI keeps one record per NPI. The values of the last occurrence win
// and the position of the first occurrence is kept. valid counts the records
// that carried an NPI.
func dedupeByNPI(records []*entity.Provider) (unique []*entity.Provider, valid int) {
	index := make(map[string]int, len(records))
	unique = make([]*entity.Provider, 0, len(records))
	for _, p := range records {
		if p == nil || p.NPI == "" {
			continue
		}
		valid++
		if i, ok := index[p.NPI]; ok {
			unique[i] = p
			continue
		}
		index[p.NPI] = len(unique)
		unique = append(unique, p)
	}
	return unique, valid
}
