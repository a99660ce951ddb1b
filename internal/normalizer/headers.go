package normalizer

import (
	"regexp"
	"sort"
	"strings"
)

// Field is a canonical provider column.
type Field string

const (
	FieldNPI              Field = "npi"
	FieldEnumerationType  Field = "enumeration_type"
	FieldFirstName        Field = "first_name"
	FieldLastName         Field = "last_name"
	FieldOrganizationName Field = "organization_name"
	FieldCity             Field = "city"
	FieldState            Field = "state"
	FieldPostalCode       Field = "postal_code"
	FieldPhone            Field = "phone"
	FieldEmail            Field = "email"
	FieldTaxonomy         Field = "taxonomy"
)

type alias struct {
	field   Field
	pattern *regexp.Regexp
}

// Headers are tested after trimming and collapsing whitespace runs to "_".
// The long forms are the column names of the NPPES bulk dissemination file.
var aliases = []alias{
	{FieldNPI, regexp.MustCompile(`(?i)^(npi|npi_number|npi_no|npi_#|npi#|national_provider_identifier|provider_npi)$`)},
	{FieldEnumerationType, regexp.MustCompile(`(?i)^(enumeration_type|entity_type|entity_type_code|npi_type|provider_type)$`)},
	{FieldFirstName, regexp.MustCompile(`(?i)^(first_name|firstname|first|fname|given_name|givenname|provider_first_name)$`)},
	{FieldLastName, regexp.MustCompile(`(?i)^(last_name|lastname|last|lname|family_name|surname|provider_last_name(_\(legal_name\))?)$`)},
	{FieldOrganizationName, regexp.MustCompile(`(?i)^(organization_name|organization|org_name|org|practice_name|business_name|provider_organization_name(_\(legal_business_name\))?)$`)},
	{FieldCity, regexp.MustCompile(`(?i)^(city|city_name|practice_city|provider_business_practice_location_address_city_name)$`)},
	{FieldState, regexp.MustCompile(`(?i)^(state|state_code|st|practice_state|provider_business_practice_location_address_state_name)$`)},
	{FieldPostalCode, regexp.MustCompile(`(?i)^(postal_code|postal|postcode|zip|zip_code|zipcode|provider_business_practice_location_address_postal_code)$`)},
	{FieldPhone, regexp.MustCompile(`(?i)^(phone|phone_number|telephone|telephone_number|tel|provider_business_practice_location_address_telephone_number)$`)},
	{FieldEmail, regexp.MustCompile(`(?i)^(email|email_address|e-mail|e_mail)$`)},
	{FieldTaxonomy, regexp.MustCompile(`(?i)^(taxonomy|taxonomy_desc|taxonomy_description|specialty|speciality|primary_taxonomy)$`)},
}

var whitespace = regexp.MustCompile(`\s+`)

// CanonicalHeader maps a source column name onto its canonical field.
func CanonicalHeader(header string) (Field, bool) {
	h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	if h == "" {
		return "", false
	}
	h = whitespace.ReplaceAllString(h, "_")
	for _, a := range aliases {
		if a.pattern.MatchString(h) {
			return a.field, true
		}
	}
	return "", false
}

// canonicalRow keeps one value per field. When several columns map onto the
// same field, the first non-empty one in sorted header order wins.
func canonicalRow(row map[string]string) map[Field]string {
	headers := make([]string, 0, len(row))
	for header := range row {
		headers = append(headers, header)
	}
	sort.Strings(headers)

	out := make(map[Field]string, len(row))
	for _, header := range headers {
		field, ok := CanonicalHeader(header)
		if !ok {
			continue
		}
		v := strings.TrimSpace(row[header])
		if v == "" {
			continue
		}
		if _, exists := out[field]; !exists {
			out[field] = v
		}
	}
	return out
}
