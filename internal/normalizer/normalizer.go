// Package normalizer maps registry results and uploaded rows onto the
// canonical entity.Provider. Every function returns nil for input without an
// NPI so callers can drop those records silently.
package normalizer

import (
	"encoding/json"
	"strings"

	"github.com/xavierca1/npi-leads/internal/entity"
	"github.com/xavierca1/npi-leads/internal/infra/integration/nppes"
)

const emptyObject = "{}"

// RequiredRow is the minimal shape accepted by the rows upload path.
type RequiredRow struct {
	NPI              string `json:"npi"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
}

func FromRegistry(rec nppes.Provider) *entity.Provider {
	npi := strings.TrimSpace(rec.Number)
	if npi == "" {
		return nil
	}

	var primary, mailing *nppes.Address
	if len(rec.Addresses) > 0 {
		primary = &rec.Addresses[0]
	}
	if len(rec.Addresses) > 1 {
		mailing = &rec.Addresses[1]
	}

	p := &entity.Provider{
		NPI:              npi,
		EnumerationType:  enumerationType(rec.EnumerationType),
		FirstName:        strings.TrimSpace(rec.Basic.FirstName),
		LastName:         strings.TrimSpace(rec.Basic.LastName),
		OrganizationName: strings.TrimSpace(rec.Basic.OrganizationName),
		Phone:            registryPhone(primary, mailing, rec.PracticeLocations),
		Email:            registryEmail(rec.Endpoints),
		Taxonomy:         primaryTaxonomy(rec.Taxonomies),
		PrimaryAddress:   addressJSON(primary),
		MailingAddress:   addressJSON(mailing),
		RawData:          rawJSON(rec),
	}
	if primary != nil {
		p.City = strings.TrimSpace(primary.City)
		p.State = strings.TrimSpace(primary.State)
		p.PostalCode = strings.TrimSpace(primary.PostalCode)
	}
	return p
}

// FromRow maps a spreadsheet or delimited-text row keyed by its header names.
func FromRow(row map[string]string) *entity.Provider {
	fields := canonicalRow(row)
	npi := fields[FieldNPI]
	if npi == "" {
		return nil
	}

	address := map[string]string{}
	for key, field := range map[string]Field{"city": FieldCity, "state": FieldState, "postal_code": FieldPostalCode} {
		if v := fields[field]; v != "" {
			address[key] = v
		}
	}

	return &entity.Provider{
		NPI:              npi,
		EnumerationType:  enumerationType(fields[FieldEnumerationType]),
		FirstName:        fields[FieldFirstName],
		LastName:         fields[FieldLastName],
		OrganizationName: fields[FieldOrganizationName],
		City:             fields[FieldCity],
		State:            fields[FieldState],
		PostalCode:       fields[FieldPostalCode],
		Phone:            fields[FieldPhone],
		Email:            fields[FieldEmail],
		Taxonomy:         fields[FieldTaxonomy],
		PrimaryAddress:   jsonText(address),
		MailingAddress:   emptyObject,
		RawData:          jsonText(row),
	}
}

func FromRequired(row RequiredRow) *entity.Provider {
	npi := strings.TrimSpace(row.NPI)
	if npi == "" {
		return nil
	}
	trimmed := RequiredRow{
		NPI:              npi,
		FirstName:        strings.TrimSpace(row.FirstName),
		LastName:         strings.TrimSpace(row.LastName),
		OrganizationName: strings.TrimSpace(row.OrganizationName),
	}
	return &entity.Provider{
		NPI:              npi,
		EnumerationType:  entity.EnumerationIndividual,
		FirstName:        trimmed.FirstName,
		LastName:         trimmed.LastName,
		OrganizationName: trimmed.OrganizationName,
		PrimaryAddress:   emptyObject,
		MailingAddress:   emptyObject,
		RawData:          jsonText(trimmed),
	}
}

func enumerationType(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "NPI-2", "2", "ORGANIZATION", "ORG":
		return entity.EnumerationOrganization
	default:
		return entity.EnumerationIndividual
	}
}

func registryPhone(primary, mailing *nppes.Address, locations []nppes.Address) string {
	if primary != nil {
		if v := strings.TrimSpace(primary.TelephoneNumber); v != "" {
			return v
		}
	}
	if mailing != nil {
		if v := strings.TrimSpace(mailing.TelephoneNumber); v != "" {
			return v
		}
	}
	for _, loc := range locations {
		if v := strings.TrimSpace(loc.TelephoneNumber); v != "" {
			return v
		}
	}
	return ""
}

func registryEmail(endpoints []nppes.Endpoint) string {
	for _, ep := range endpoints {
		value := strings.TrimSpace(ep.Endpoint)
		if value == "" {
			value = strings.TrimSpace(ep.EndpointLocation)
		}
		if value == "" {
			continue
		}
		if strings.Contains(value, "@") {
			return value
		}
		switch strings.ToUpper(strings.TrimSpace(ep.EndpointType)) {
		case "EMAIL", "DIRECT":
			return value
		}
	}
	return ""
}

func primaryTaxonomy(taxonomies []nppes.Taxonomy) string {
	for _, t := range taxonomies {
		if t.Primary {
			return strings.TrimSpace(t.Desc)
		}
	}
	if len(taxonomies) > 0 {
		return strings.TrimSpace(taxonomies[0].Desc)
	}
	return ""
}

func addressJSON(addr *nppes.Address) string {
	if addr == nil {
		return emptyObject
	}
	return jsonText(addr)
}

func rawJSON(rec nppes.Provider) string {
	if len(rec.Raw) > 0 {
		return string(rec.Raw)
	}
	return jsonText(rec)
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return emptyObject
	}
	return string(b)
}
