package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	stateCodeRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)
	// registry wildcards need two leading characters and only trail
	wildcardRegex = regexp.MustCompile(`^[^*]{2,}\*?$`)
)

func ValidateSyncInput(in SyncInput) []ValidationError {
	var errs []ValidationError

	if s := strings.TrimSpace(in.State); s != "" && !stateCodeRegex.MatchString(s) {
		errs = append(errs, ValidationError{"state", "must be a two-letter state code"})
	}

	switch strings.TrimSpace(in.EnumerationType) {
	case "", entity.EnumerationIndividual, entity.EnumerationOrganization:
	default:
		errs = append(errs, ValidationError{"enumeration_type", "must be NPI-1 or NPI-2"})
	}

	for _, f := range []struct{ name, value string }{
		{"last_name", in.LastName},
		{"city", in.City},
		{"taxonomy_description", in.TaxonomyDescription},
	} {
		v := strings.TrimSpace(f.value)
		if strings.Contains(v, "*") && !wildcardRegex.MatchString(v) {
			errs = append(errs, ValidationError{f.name, "wildcard must follow at least two characters"})
		}
	}

	if in.Limit < 0 || in.Limit > nppes.MaxPageSize {
		errs = append(errs, ValidationError{"limit", fmt.Sprintf("must be between 1 and %d", nppes.MaxPageSize)})
	}
	if in.MaxRecords < 0 {
		errs = append(errs, ValidationError{"max_records", "must not be negative"})
	}
	return errs
}

// validationFailure folds errs into a single DomainError, or nil.
func validationFailure(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return &DomainError{Code: CodeInvalidInput, Message: strings.Join(parts, "; ")}
}
