package entity

import "time"

const (
	EnumerationIndividual   = "NPI-1"
	EnumerationOrganization = "NPI-2"
)

// Provider is the canonical provider record, unique by NPI.
// Optional text fields use "" for absent and are stored as NULL.
type Provider struct {
	ID               string    `json:"id"`
	NPI              string    `json:"npi"`
	EnumerationType  string    `json:"enumeration_type"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	OrganizationName string    `json:"organization_name,omitempty"`
	City             string    `json:"city,omitempty"`
	State            string    `json:"state,omitempty"`
	PostalCode       string    `json:"postal_code,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Email            string    `json:"email,omitempty"`
	Taxonomy         string    `json:"taxonomy,omitempty"`
	PrimaryAddress   string    `json:"primary_address"`
	MailingAddress   string    `json:"mailing_address"`
	RawData          string    `json:"raw_data"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProviderLead pairs a provider that is about to be created with the NEW lead
// that has to be committed in the same transaction.
type ProviderLead struct {
	Provider *Provider
	Lead     *Lead
}

// DisplayName returns the person name for individuals and the organization
// name otherwise.
func (p *Provider) DisplayName() string {
	if p.FirstName != "" || p.LastName != "" {
		if p.FirstName == "" {
			return p.LastName
		}
		if p.LastName == "" {
			return p.FirstName
		}
		return p.FirstName + " " + p.LastName
	}
	return p.OrganizationName
}
