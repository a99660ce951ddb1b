package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
	"github.com/xavierca1/npi-leads/internal/normalizer"
)

// IngestBatchSize is the number of records handed to one Reconcile call.
const IngestBatchSize = 1000

const msgNoProviders = "No providers found. Try different search criteria."

type SyncProvidersUseCase struct {
	Registry   RegistryClient
	Reconciler *Reconciler
	Progress   SyncProgressRepositoryInterface
	Metrics    MetricsRecorder
	Logger     *zap.Logger
}

func NewSyncProvidersUseCase(
	registry RegistryClient,
	reconciler *Reconciler,
	progress SyncProgressRepositoryInterface,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *SyncProvidersUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncProvidersUseCase{
		Registry:   registry,
		Reconciler: reconciler,
		Progress:   progress,
		Metrics:    metrics,
		Logger:     logger.Named("sync"),
	}
}

// Execute runs one resumable registry sync. Registry problems come back as an
// unsuccessful output; invalid input and storage failures are returned as
// errors.
func (uc *SyncProvidersUseCase) Execute(ctx context.Context, in SyncInput) (*SyncOutput, error) {
	if err := validationFailure(ValidateSyncInput(in)); err != nil {
		return nil, err
	}
	params := BuildSearchParams(in)
	key := ProgressKey(params)
	out := &SyncOutput{SearchKey: key}
	log := uc.Logger.With(zap.String("search_key", key))

	// 1. Cursor
	startSkip, previouslyFetched := 0, 0
	if in.Resume {
		saved, err := uc.Progress.Load(ctx, key)
		switch {
		case errors.Is(err, entity.ErrNotFound):
		case err != nil:
			return nil, storageError(err)
		case saved.IsComplete():
			log.Info("previous sync complete, starting over", zap.Int("total_available", saved.TotalAvailable))
		default:
			startSkip = saved.LastFetchedSkip
			previouslyFetched = saved.TotalFetched
		}
	}

	// 2. Registry
	fetched, err := uc.Registry.FetchAll(ctx, nppes.FetchRequest{
		Params:     params,
		PageSize:   in.Limit,
		MaxRecords: in.MaxRecords,
		StartSkip:  startSkip,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("registry fetch failed", zap.Int("start_skip", startSkip), zap.Error(err))
		out.LastFetchedSkip = startSkip
		out.Error = fmt.Sprintf("Registry request failed: %v", err)
		return out, nil
	}
	out.TotalAvailable = fetched.TotalAvailable
	out.LastFetchedSkip = fetched.LastSkip
	out.FailedPages = fetched.FailedPages
	out.IsComplete, out.Progress = completion(fetched.LastSkip, fetched.TotalAvailable)
	uc.Metrics.RecordRegistryPageFailures(len(fetched.FailedPages))

	if len(fetched.Providers) == 0 {
		// the cursor is closed out so the next resume starts over
		closed := max(fetched.LastSkip, fetched.TotalAvailable)
		if err := uc.Progress.Save(ctx, &entity.SyncProgress{
			SearchKey:       key,
			LastFetchedSkip: closed,
			TotalFetched:    previouslyFetched + max(0, fetched.LastSkip-startSkip),
			TotalAvailable:  fetched.TotalAvailable,
		}); err != nil {
			return nil, storageError(err)
		}
		uc.Metrics.RecordSyncProgress(key, 1)
		log.Info("no providers returned, cursor closed", zap.Int("start_skip", startSkip), zap.Int("total_available", fetched.TotalAvailable))
		out.Error = msgNoProviders
		out.ProgressMessage = msgNoProviders
		return out, nil
	}

	// 3. Normalize
	records := make([]*entity.Provider, 0, len(fetched.Providers))
	for _, rec := range fetched.Providers {
		if p := normalizer.FromRegistry(rec); p != nil {
			records = append(records, p)
		}
	}

	// 4. Reconcile
	var total ReconcileResult
	for start := 0; start < len(records); start += IngestBatchSize {
		batch := records[start:min(start+IngestBatchSize, len(records))]
		res, err := uc.Reconciler.Reconcile(ctx, batch, ReconcileOptions{CreateLeadsForExisting: true})
		total.merge(res)
		if err != nil {
			log.Error("reconcile failed", zap.Int("added", total.Added), zap.Int("updated", total.Updated), zap.Error(err))
			return nil, err
		}
	}
	uc.Metrics.RecordReconcile("registry", total.Added, total.Updated, total.Duplicates, total.LeadsCreated)

	// 5. Progress
	progress := &entity.SyncProgress{
		SearchKey:       key,
		LastFetchedSkip: fetched.LastSkip,
		TotalFetched:    previouslyFetched + (fetched.LastSkip - startSkip),
		TotalAvailable:  fetched.TotalAvailable,
	}
	if err := uc.Progress.Save(ctx, progress); err != nil {
		return nil, storageError(err)
	}
	uc.Metrics.RecordSyncProgress(key, out.Progress)

	out.Success = true
	out.Added = total.Added
	out.Updated = total.Updated
	out.Total = len(records)
	out.LeadsCreated = total.LeadsCreated
	out.ProgressMessage = progressMessage(out)

	log.Info("sync finished",
		zap.Int("added", out.Added),
		zap.Int("updated", out.Updated),
		zap.Int("leads_created", out.LeadsCreated),
		zap.Int("last_skip", out.LastFetchedSkip),
		zap.Int("total_available", out.TotalAvailable),
		zap.Bool("complete", out.IsComplete),
	)
	return out, nil
}

func completion(lastSkip, totalAvailable int) (bool, float64) {
	if totalAvailable <= 0 {
		return true, 1
	}
	if lastSkip >= totalAvailable {
		return true, 1
	}
	return false, float64(lastSkip) / float64(totalAvailable)
}

func progressMessage(out *SyncOutput) string {
	var msg string
	if out.IsComplete {
		msg = fmt.Sprintf("Synced all %d available providers for this search.", out.TotalAvailable)
	} else {
		msg = fmt.Sprintf("Synced %d of %d available providers (%.1f%%). Run sync again to continue from offset %d.",
			out.LastFetchedSkip, out.TotalAvailable, out.Progress*100, out.LastFetchedSkip)
	}
	if n := len(out.FailedPages); n > 0 {
		msg += fmt.Sprintf(" %d page(s) failed and will be fetched again on the next run.", n)
	}
	return msg
}
