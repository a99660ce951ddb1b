package usecase_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/npi-leads/internal/normalizer"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImportUploadCSVDropsRowsWithoutNPI(t *testing.T) {
	repo := newMemoryRepo()
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(repo, nil), nil, nil, nil)

	csv := "NPI Number,First Name,Last Name\n111,Ada,Lovelace\n,No,Identifier\n222,Grace,Hopper\n111,Ada,King\n"
	out, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "providers.csv", Data: []byte(csv)})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Added)
	assert.Equal(t, 0, out.Updated)
	assert.Equal(t, 3, out.TotalProcessed)
	assert.Equal(t, 1, out.Duplicates)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "King", repo.byNPI["111"].LastName)
	assert.Equal(t, 2, repo.leadCount())
}

func TestImportUploadZIPReconcilesEachFile(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("333", true)
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(repo, nil), nil, nil, nil)

	data := zipOf(t, map[string]string{
		"a.csv":      "npi,last_name\n111,Smith\n333,Jones\n",
		"b.csv":      "provider_npi,surname\n222,Brown\n",
		"readme.txt": "npi\n999\n",
	})
	out, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "bundle.zip", Data: data})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Added)
	assert.Equal(t, 1, out.Updated)
	assert.Equal(t, 3, out.TotalProcessed)
	assert.NotContains(t, repo.byNPI, "999")
	assert.Equal(t, 2, repo.calls["FindExistingByNPI"], "one lookup per file")
}

func TestImportUploadCorruptArchiveReportsError(t *testing.T) {
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(newMemoryRepo(), nil), nil, nil, nil)

	out, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "bundle.zip", Data: []byte("garbage")})

	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Zero(t, out.Added)
	require.Len(t, out.Errors, 1)
	assert.True(t, strings.HasPrefix(out.Errors[0], "File bundle.zip:"))
}

func TestImportUploadRejectsUnsupportedFormat(t *testing.T) {
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(newMemoryRepo(), nil), nil, nil, nil)

	_, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "legacy.xls", Data: []byte{1}})

	require.Error(t, err)
	assert.True(t, usecase.IsDomainError(err))
}

func TestImportUploadArchivesRawFile(t *testing.T) {
	archiver := new(MockArchiver)
	data := []byte("npi\n111\n")
	archiver.On("Archive", mock.Anything, "providers.csv", data).Return("uploads/2026/10/14/x-providers.csv", nil)
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(newMemoryRepo(), nil), archiver, nil, nil)

	out, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "providers.csv", Data: data})

	require.NoError(t, err)
	assert.Equal(t, "uploads/2026/10/14/x-providers.csv", out.ArchiveKey)
	archiver.AssertExpectations(t)
}

func TestImportUploadArchiveFailureDoesNotBlock(t *testing.T) {
	archiver := new(MockArchiver)
	archiver.On("Archive", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))
	uc := usecase.NewImportUploadUseCase(usecase.NewReconciler(newMemoryRepo(), nil), archiver, nil, nil)

	out, err := uc.Execute(context.Background(), usecase.UploadInput{FileName: "providers.csv", Data: []byte("npi\n111\n")})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.ArchiveKey)
}

func TestImportRowsDedupesAndCounts(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("222", true)
	uc := usecase.NewImportRowsUseCase(usecase.NewReconciler(repo, nil), nil, nil)

	out, err := uc.Execute(context.Background(), usecase.RowsInput{Rows: []normalizer.RequiredRow{
		{NPI: "111", LastName: "A"},
		{NPI: "222", LastName: "B"},
		{NPI: "111", LastName: "C"},
		{NPI: " ", LastName: "dropped"},
	}})

	require.NoError(t, err)
	assert.Equal(t, usecase.RowsOutput{Success: true, Added: 1, Updated: 1, Total: 2}, *out)
	assert.Equal(t, "C", repo.byNPI["111"].LastName)
}

func TestImportRowsRejectsOversizedRequest(t *testing.T) {
	uc := usecase.NewImportRowsUseCase(usecase.NewReconciler(newMemoryRepo(), nil), nil, nil)

	rows := make([]normalizer.RequiredRow, usecase.MaxRowsPerRequest+1)
	_, err := uc.Execute(context.Background(), usecase.RowsInput{Rows: rows})

	var domainErr *usecase.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, usecase.CodeTooManyRows, domainErr.Code)
}

func TestProvisionLeadsSaveAll(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("111", true)
	repo.seed("222", false)
	repo.seed("333", false)
	uc := usecase.NewProvisionLeadsUseCase(repo, usecase.NewReconciler(repo, nil), nil)

	out, err := uc.Execute(context.Background(), usecase.ProvisionLeadsInput{SaveAll: true})

	require.NoError(t, err)
	assert.Equal(t, usecase.ProvisionLeadsOutput{Success: true, Saved: 2, Duplicates: 1, Total: 3}, *out)
	assert.Equal(t, 3, repo.leadCount())
}

func TestProvisionLeadsSelectedIDs(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("111", false)
	repo.seed("222", false)
	uc := usecase.NewProvisionLeadsUseCase(repo, usecase.NewReconciler(repo, nil), nil)

	out, err := uc.Execute(context.Background(), usecase.ProvisionLeadsInput{ProviderIDs: []string{"id-111", "id-111", "unknown"}})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Saved)
	assert.Equal(t, 1, out.Total)
	assert.Empty(t, repo.leads["id-222"])
}

func TestProvisionLeadsRequiresSelection(t *testing.T) {
	uc := usecase.NewProvisionLeadsUseCase(newMemoryRepo(), usecase.NewReconciler(newMemoryRepo(), nil), nil)
	_, err := uc.Execute(context.Background(), usecase.ProvisionLeadsInput{})
	assert.True(t, usecase.IsDomainError(err))
}
