package nppes

import "encoding/json"

// SearchParams are the registry filters. At least one field other than
// EnumerationType must be set.
type SearchParams struct {
	EnumerationType     string `json:"enumeration_type,omitempty"`
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	OrganizationName    string `json:"organization_name,omitempty"`
	City                string `json:"city,omitempty"`
	State               string `json:"state,omitempty"`
	PostalCode          string `json:"postal_code,omitempty"`
	TaxonomyDescription string `json:"taxonomy_description,omitempty"`
}

func (p SearchParams) HasCriteria() bool {
	return p.FirstName != "" || p.LastName != "" || p.OrganizationName != "" ||
		p.City != "" || p.State != "" || p.PostalCode != "" || p.TaxonomyDescription != ""
}

type SearchResponse struct {
	ResultCount int        `json:"result_count"`
	Results     []Provider `json:"results"`
	Errors      []APIError `json:"Errors,omitempty"`
}

type APIError struct {
	Description string `json:"description"`
	Field       string `json:"field"`
	Number      string `json:"number"`
}

// Provider is one registry result. Raw keeps the exact bytes received.
type Provider struct {
	Number            string          `json:"number"`
	EnumerationType   string          `json:"enumeration_type"`
	Basic             Basic           `json:"basic"`
	Addresses         []Address       `json:"addresses"`
	PracticeLocations []Address       `json:"practiceLocations"`
	Taxonomies        []Taxonomy      `json:"taxonomies"`
	Endpoints         []Endpoint      `json:"endpoints"`
	Raw               json.RawMessage `json:"-"`
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	type alias Provider
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Provider(decoded)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type Basic struct {
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	MiddleName       string `json:"middle_name,omitempty"`
	Credential       string `json:"credential,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Status           string `json:"status,omitempty"`
}

type Address struct {
	CountryCode     string `json:"country_code,omitempty"`
	CountryName     string `json:"country_name,omitempty"`
	AddressPurpose  string `json:"address_purpose,omitempty"`
	AddressType     string `json:"address_type,omitempty"`
	Address1        string `json:"address_1,omitempty"`
	Address2        string `json:"address_2,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	TelephoneNumber string `json:"telephone_number,omitempty"`
	FaxNumber       string `json:"fax_number,omitempty"`
}

type Taxonomy struct {
	Code    string `json:"code,omitempty"`
	Desc    string `json:"desc,omitempty"`
	Primary bool   `json:"primary"`
	State   string `json:"state,omitempty"`
	License string `json:"license,omitempty"`
}

type Endpoint struct {
	EndpointType     string `json:"endpointType,omitempty"`
	Endpoint         string `json:"endpoint,omitempty"`
	EndpointLocation string `json:"endpointLocation,omitempty"`
}

// PageResult is the outcome of one page request inside FetchAll. A failed
// page carries Err and no providers.
type PageResult struct {
	Skip      int
	Providers []Provider
	Err       error
}

type FetchResult struct {
	Providers      []Provider
	TotalAvailable int
	LastSkip       int
	FailedPages    []int
}
