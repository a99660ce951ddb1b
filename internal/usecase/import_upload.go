package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/fileparse"
	"github.com/xavierca1/npi-leads/internal/normalizer"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 100 << 20

type ImportUploadUseCase struct {
	Reconciler *Reconciler
	Archiver   UploadArchiver
	Metrics    MetricsRecorder
	Logger     *zap.Logger
}

// NewImportUploadUseCase accepts a nil archiver when uploads are not kept.
func NewImportUploadUseCase(reconciler *Reconciler, archiver UploadArchiver, metrics MetricsRecorder, logger *zap.Logger) *ImportUploadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportUploadUseCase{
		Reconciler: reconciler,
		Archiver:   archiver,
		Metrics:    metrics,
		Logger:     logger.Named("upload"),
	}
}

func (uc *ImportUploadUseCase) Execute(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	if in.FileName == "" || len(in.Data) == 0 {
		return nil, &DomainError{Code: CodeInvalidInput, Message: "No file uploaded"}
	}
	if len(in.Data) > MaxUploadBytes {
		return nil, &DomainError{Code: CodeFileTooLarge, Message: "File exceeds the 100MB limit"}
	}

	parsed, err := fileparse.Parse(in.FileName, in.Data)
	if err != nil {
		if errors.Is(err, fileparse.ErrUnsupportedFormat) {
			return nil, &DomainError{
				Code:    CodeUnsupportedFormat,
				Message: "Unsupported file type. Upload a .csv, .tsv, .xlsx or .zip file",
			}
		}
		return nil, err
	}

	log := uc.Logger.With(zap.String("file", in.FileName))
	out := &UploadOutput{Errors: parsed.Errors}

	if uc.Archiver != nil {
		key, err := uc.Archiver.Archive(ctx, in.FileName, in.Data)
		if err != nil {
			log.Warn("archiving upload failed", zap.Error(err))
		} else {
			out.ArchiveKey = key
		}
	}

	// Each source is reconciled on its own
	var total ReconcileResult
	for _, src := range parsed.Sources {
		records := make([]*entity.Provider, 0, len(src.Rows))
		for _, row := range src.Rows {
			if p := normalizer.FromRow(row); p != nil {
				records = append(records, p)
			}
		}

		for start := 0; start < len(records); start += IngestBatchSize {
			batch := records[start:min(start+IngestBatchSize, len(records))]
			res, err := uc.Reconciler.Reconcile(ctx, batch, ReconcileOptions{})
			total.merge(res)
			if err != nil {
				log.Error("reconcile failed", zap.String("source", src.Name), zap.Error(err))
				return nil, err
			}
		}
		log.Debug("source reconciled", zap.String("source", src.Name), zap.Int("records", len(records)))
	}
	uc.Metrics.RecordReconcile("upload", total.Added, total.Updated, total.Duplicates, total.LeadsCreated)

	out.Added = total.Added
	out.Updated = total.Updated
	out.TotalProcessed = total.Processed
	out.Duplicates = total.Duplicates

	if total.Processed == 0 {
		out.Message = "No rows with an NPI were found in the upload"
		return out, nil
	}

	out.Success = true
	out.Message = fmt.Sprintf("Processed %d providers: %d added, %d updated", total.Processed, total.Added, total.Updated)
	log.Info("upload processed",
		zap.Int("added", out.Added),
		zap.Int("updated", out.Updated),
		zap.Int("processed", out.TotalProcessed),
		zap.Int("file_errors", len(out.Errors)),
	)
	return out, nil
}
