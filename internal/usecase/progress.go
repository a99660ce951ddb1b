package usecase

import (
	"strings"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
)

const (
	DefaultTaxonomy  = "Internal Medicine"
	SyntheticSurname = "Smith*"
	DefaultSearchKey = "default"
	searchKeySep     = "|"
)

// BuildSearchParams turns a sync request into a registry filter that always
// carries a non-type criterion. Precedence: taxonomy (state and city narrow
// it), then state with last name, state alone with a wildcard surname, city,
// last name, and finally the default taxonomy.
func BuildSearchParams(in SyncInput) nppes.SearchParams {
	enumeration := strings.TrimSpace(in.EnumerationType)
	if enumeration == "" {
		enumeration = entity.EnumerationIndividual
	}
	params := nppes.SearchParams{EnumerationType: enumeration}

	taxonomy := strings.TrimSpace(in.TaxonomyDescription)
	state := strings.ToUpper(strings.TrimSpace(in.State))
	city := strings.TrimSpace(in.City)
	lastName := strings.TrimSpace(in.LastName)

	switch {
	case taxonomy != "":
		params.TaxonomyDescription = taxonomy
		params.State = state
		params.City = city
	case state != "" && lastName != "":
		params.State = state
		params.LastName = lastName
	case state != "":
		params.State = state
		params.LastName = SyntheticSurname
	case city != "":
		params.City = city
	case lastName != "":
		params.LastName = lastName
	default:
		params.TaxonomyDescription = DefaultTaxonomy
	}
	return params
}

// ProgressKey derives the cursor key of a search. Only present fields take
// part, always in the same order, so the key does not depend on which other
// fields were left empty.
func ProgressKey(params nppes.SearchParams) string {
	fields := []struct{ name, value string }{
		{"taxonomy", params.TaxonomyDescription},
		{"state", params.State},
		{"city", params.City},
		{"last_name", params.LastName},
		{"enumeration_type", params.EnumerationType},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			parts = append(parts, f.name+"="+v)
		}
	}
	if len(parts) == 0 {
		return DefaultSearchKey
	}
	return strings.Join(parts, searchKeySep)
}
