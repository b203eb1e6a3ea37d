package models

import (
	"time"
)

// Account is the local record for a verified identity.
type Account struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"subjectId"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           Role      `json:"role"`
	ProfileImage   string    `json:"profileImage,omitempty"`
	Approved       bool      `json:"isApproved"`
	OrganizationID *string   `json:"organizationId,omitempty"`
	SavedEvents    []string  `json:"savedEvents"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasSaved reports whether eventID is in the account's saved list.
func (a *Account) HasSaved(eventID string) bool {
	for _, id := range a.SavedEvents {
		if id == eventID {
			return true
		}
	}
	return false
}
