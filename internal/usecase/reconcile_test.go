package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

func provider(npi, lastName string) *entity.Provider {
	return &entity.Provider{
		NPI:             npi,
		EnumerationType: entity.EnumerationIndividual,
		LastName:        lastName,
		PrimaryAddress:  "{}",
		MailingAddress:  "{}",
		RawData:         "{}",
	}
}

func manyProviders(n, offset int) []*entity.Provider {
	out := make([]*entity.Provider, n)
	for i := range out {
		out[i] = provider(fmt.Sprintf("%010d", offset+i), "Doe")
	}
	return out
}

func TestReconcileDedupesLastOccurrenceWins(t *testing.T) {
	repo := newMemoryRepo()
	r := usecase.NewReconciler(repo, nil)

	res, err := r.Reconcile(context.Background(), []*entity.Provider{
		provider("111", "A"),
		provider("222", "B"),
		provider("111", "C"),
	}, usecase.ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "C", repo.byNPI["111"].LastName)
	assert.Equal(t, 2, repo.leadCount())
	assert.Equal(t, 1, repo.calls["FindExistingByNPI"])
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	r := usecase.NewReconciler(repo, nil)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, []*entity.Provider{provider("111", "A"), provider("222", "B")}, usecase.ReconcileOptions{})
	require.NoError(t, err)

	res, err := r.Reconcile(ctx, []*entity.Provider{provider("111", "A2"), provider("222", "B")}, usecase.ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 0, res.LeadsCreated)
	assert.Len(t, repo.byNPI, 2)
	assert.Equal(t, 2, repo.leadCount(), "updates never create leads")
	assert.Equal(t, "A2", repo.byNPI["111"].LastName)
}

func TestReconcileChunksWritesAndLooksUpOnce(t *testing.T) {
	repo := newMemoryRepo()
	for _, p := range manyProviders(60, 1000) {
		repo.seed(p.NPI, true)
	}
	r := usecase.NewReconciler(repo, nil)

	batch := append(manyProviders(120, 0), manyProviders(60, 1000)...)
	res, err := r.Reconcile(context.Background(), batch, usecase.ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, 120, res.Added)
	assert.Equal(t, 60, res.Updated)
	assert.Equal(t, 1, repo.calls["FindExistingByNPI"])
	assert.Equal(t, 3, repo.calls["CreateWithLeads"])
	assert.Equal(t, 2, repo.calls["UpdateBatch"])
	assert.Equal(t, []int{50, 50, 20, 50, 10}, repo.chunkLogs)
	for _, size := range repo.chunkLogs {
		assert.LessOrEqual(t, size, usecase.ChunkSize)
	}
}

func TestReconcileEveryNewProviderGetsOneLead(t *testing.T) {
	repo := newMemoryRepo()
	r := usecase.NewReconciler(repo, nil)

	res, err := r.Reconcile(context.Background(), manyProviders(75, 0), usecase.ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, 75, res.LeadsCreated)
	for id := range repo.byID {
		require.Len(t, repo.leads[id], 1)
		assert.Equal(t, entity.LeadStatusNew, repo.leads[id][0].Status)
	}
}

func TestReconcileCreatesLeadsForExistingWithoutOne(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("111", true)
	orphan := repo.seed("222", false)
	r := usecase.NewReconciler(repo, nil)

	res, err := r.Reconcile(context.Background(), []*entity.Provider{
		provider("111", "A"),
		provider("222", "B"),
		provider("333", "C"),
	}, usecase.ReconcileOptions{CreateLeadsForExisting: true})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 2, res.LeadsCreated, "one for the new provider, one backfilled")
	assert.Len(t, repo.leads[orphan.ID], 1)
	assert.Len(t, repo.leads["id-111"], 1)
	assert.Equal(t, 1, repo.calls["FindWithoutLeads"])
}

func TestReconcileFailedChunkKeepsCommittedChunks(t *testing.T) {
	repo := newMemoryRepo()
	repo.failCreateOnCall = 2
	r := usecase.NewReconciler(repo, nil)

	res, err := r.Reconcile(context.Background(), manyProviders(120, 0), usecase.ReconcileOptions{})

	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.Equal(t, 50, res.Added)
	assert.Len(t, repo.byNPI, 50)
	assert.Equal(t, 50, repo.leadCount())
}

func TestReconcileEmptyBatchSkipsStorage(t *testing.T) {
	repo := newMemoryRepo()
	r := usecase.NewReconciler(repo, nil)

	res, err := r.Reconcile(context.Background(), []*entity.Provider{nil, {NPI: ""}}, usecase.ReconcileOptions{})

	require.NoError(t, err)
	assert.Equal(t, usecase.ReconcileResult{}, res)
	assert.Zero(t, repo.calls["FindExistingByNPI"])
}
