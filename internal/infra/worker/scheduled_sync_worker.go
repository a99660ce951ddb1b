package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/usecase"
)

type SyncExecutor interface {
	Execute(ctx context.Context, in usecase.SyncInput) (*usecase.SyncOutput, error)
}

type ReportSender interface {
	SendSyncReport(ctx context.Context, out *usecase.SyncOutput) error
}

// ScheduledSyncWorker resumes a fixed set of searches on every tick. Each
// tick advances every search by one invocation.
type ScheduledSyncWorker struct {
	sync         SyncExecutor
	reports      ReportSender
	searches     []usecase.SyncInput
	tickInterval time.Duration
	logger       *zap.Logger
}

func NewScheduledSyncWorker(sync SyncExecutor, reports ReportSender, searches []usecase.SyncInput, interval time.Duration, logger *zap.Logger) *ScheduledSyncWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduledSyncWorker{
		sync:         sync,
		reports:      reports,
		searches:     searches,
		tickInterval: interval,
		logger:       logger.Named("worker.scheduled_sync"),
	}
}

func (w *ScheduledSyncWorker) Start(ctx context.Context) {
	w.logger.Info("scheduled sync worker started",
		zap.Int("searches", len(w.searches)),
		zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("scheduled sync worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs every configured search once and returns how many completed
// on this pass.
func (w *ScheduledSyncWorker) RunOnce(ctx context.Context) int {
	completed := 0
	for _, in := range w.searches {
		if ctx.Err() != nil {
			return completed
		}
		in.Resume = true

		out, err := w.sync.Execute(ctx, in)
		if err != nil {
			w.logger.Error("scheduled sync failed", zap.Error(err))
			continue
		}
		if !out.Success {
			w.logger.Warn("scheduled sync unsuccessful", zap.String("search_key", out.SearchKey), zap.String("error", out.Error))
			continue
		}

		w.logger.Info("scheduled sync finished",
			zap.String("search_key", out.SearchKey),
			zap.Int("added", out.Added),
			zap.Int("updated", out.Updated),
			zap.String("progress", out.ProgressMessage))

		if !out.IsComplete {
			continue
		}
		completed++
		if w.reports != nil {
			if err := w.reports.SendSyncReport(ctx, out); err != nil {
				w.logger.Warn("failed to send sync report", zap.Error(err))
			}
		}
	}
	return completed
}
