package usecase

import (
	"context"

	"go.uber.org/zap"
)

const provisionPageSize = 1000

// ProvisionLeadsUseCase gives a NEW lead to stored providers that have none.
type ProvisionLeadsUseCase struct {
	Repo       ProviderRepositoryInterface
	Reconciler *Reconciler
	Logger     *zap.Logger
}

func NewProvisionLeadsUseCase(repo ProviderRepositoryInterface, reconciler *Reconciler, logger *zap.Logger) *ProvisionLeadsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProvisionLeadsUseCase{Repo: repo, Reconciler: reconciler, Logger: logger.Named("provision")}
}

func (uc *ProvisionLeadsUseCase) Execute(ctx context.Context, in ProvisionLeadsInput) (*ProvisionLeadsOutput, error) {
	if !in.SaveAll && len(in.ProviderIDs) == 0 {
		return nil, &DomainError{Code: CodeInvalidInput, Message: "Provide providerIds or set saveAll"}
	}

	out := &ProvisionLeadsOutput{}
	provision := func(ids []string) error {
		saved, err := uc.Reconciler.provisionLeads(ctx, ids)
		out.Saved += saved
		out.Duplicates += len(ids) - saved
		out.Total += len(ids)
		return err
	}

	if in.SaveAll {
		after := ""
		for {
			ids, err := uc.Repo.ListIDsAfter(ctx, after, provisionPageSize)
			if err != nil {
				return nil, storageError(err)
			}
			if len(ids) == 0 {
				break
			}
			if err := provision(ids); err != nil {
				return nil, err
			}
			after = ids[len(ids)-1]
			if len(ids) < provisionPageSize {
				break
			}
		}
	} else {
		requested := uniqueStrings(in.ProviderIDs)
		for start := 0; start < len(requested); start += provisionPageSize {
			ids, err := uc.Repo.FilterExistingIDs(ctx, requested[start:min(start+provisionPageSize, len(requested))])
			if err != nil {
				return nil, storageError(err)
			}
			if err := provision(ids); err != nil {
				return nil, err
			}
		}
	}

	out.Success = true
	uc.Logger.Info("leads provisioned", zap.Int("saved", out.Saved), zap.Int("already_leads", out.Duplicates))
	return out, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
