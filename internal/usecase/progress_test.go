package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
	"github.com/xavierca1/npi-leads/internal/usecase"
)

func TestBuildSearchParamsPrecedence(t *testing.T) {
	cases := []struct {
		name string
		in   usecase.SyncInput
		want nppes.SearchParams
	}{
		{
			name: "taxonomy narrowed by state",
			in:   usecase.SyncInput{TaxonomyDescription: "Cardiology", State: "tx", LastName: "Ignored"},
			want: nppes.SearchParams{EnumerationType: "NPI-1", TaxonomyDescription: "Cardiology", State: "TX"},
		},
		{
			name: "state and last name",
			in:   usecase.SyncInput{State: "CA", LastName: "Nguyen", City: "Ignored"},
			want: nppes.SearchParams{EnumerationType: "NPI-1", State: "CA", LastName: "Nguyen"},
		},
		{
			name: "state alone gets a wildcard surname",
			in:   usecase.SyncInput{State: "NY"},
			want: nppes.SearchParams{EnumerationType: "NPI-1", State: "NY", LastName: "Smith*"},
		},
		{
			name: "city",
			in:   usecase.SyncInput{City: "Boston"},
			want: nppes.SearchParams{EnumerationType: "NPI-1", City: "Boston"},
		},
		{
			name: "last name",
			in:   usecase.SyncInput{LastName: "Lee", EnumerationType: "NPI-2"},
			want: nppes.SearchParams{EnumerationType: "NPI-2", LastName: "Lee"},
		},
		{
			name: "default taxonomy",
			in:   usecase.SyncInput{},
			want: nppes.SearchParams{EnumerationType: "NPI-1", TaxonomyDescription: "Internal Medicine"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := usecase.BuildSearchParams(tc.in)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.HasCriteria())
		})
	}
}

func TestProgressKeyIsDeterministic(t *testing.T) {
	a := usecase.ProgressKey(nppes.SearchParams{TaxonomyDescription: "Cardiology", State: "TX"})
	b := usecase.ProgressKey(nppes.SearchParams{State: "TX", TaxonomyDescription: "Cardiology", City: ""})

	assert.Equal(t, "taxonomy=Cardiology|state=TX", a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, usecase.ProgressKey(nppes.SearchParams{TaxonomyDescription: "Cardiology", State: "CA"}))
	assert.Equal(t, usecase.DefaultSearchKey, usecase.ProgressKey(nppes.SearchParams{}))
}
