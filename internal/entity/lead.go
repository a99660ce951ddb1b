package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	LeadStatusNew           = "NEW"
	LeadStatusContacted     = "CONTACTED"
	LeadStatusInterested    = "INTERESTED"
	LeadStatusNotInterested = "NOT_INTERESTED"
	LeadStatusFollowUp      = "FOLLOW_UP"
	LeadStatusConverted     = "CONVERTED"
	LeadStatusDoNotCall     = "DO_NOT_CALL"
)

const (
	ContactTypeCall  = "CALL"
	ContactTypeEmail = "EMAIL"
	ContactTypeBoth  = "BOTH"
)

type Lead struct {
	ID              string     `json:"id"`
	ProviderID      string     `json:"provider_id"`
	Status          string     `json:"status"` // NEW, CONTACTED, INTERESTED, NOT_INTERESTED, FOLLOW_UP, CONVERTED, DO_NOT_CALL
	Notes           string     `json:"notes,omitempty"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	LastContactType string     `json:"last_contact_type,omitempty"` // CALL, EMAIL, BOTH
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewLead builds a NEW lead for the given provider.
func NewLead(providerID string, now time.Time) *Lead {
	return &Lead{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		Status:     LeadStatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func IsValidLeadStatus(status string) bool {
	switch status {
	case LeadStatusNew, LeadStatusContacted, LeadStatusInterested, LeadStatusNotInterested,
		LeadStatusFollowUp, LeadStatusConverted, LeadStatusDoNotCall:
		return true
	}
	return false
}

func IsValidContactType(contactType string) bool {
	switch contactType {
	case ContactTypeCall, ContactTypeEmail, ContactTypeBoth:
		return true
	}
	return false
}
