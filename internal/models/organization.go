package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Address is an organization's postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
}

// SocialMedia holds optional profile links.
type SocialMedia struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Organization is an event-organizing body owned by exactly one Account.
type Organization struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Logo         string          `json:"logo,omitempty"`
	ContactEmail string          `json:"contactEmail"`
	ContactPhone string          `json:"contactPhone,omitempty"`
	Website      string          `json:"website,omitempty"`
	Address      Address         `json:"address"`
	SocialMedia  SocialMedia     `json:"socialMedia"`
	CreatedBy    string          `json:"createdBy"`
	State        ModerationState `json:"-"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// OwnerAccountID returns the owning account.
func (o *Organization) OwnerAccountID() string { return o.CreatedBy }

// MarshalJSON projects the moderation state to isApproved.
func (o Organization) MarshalJSON() ([]byte, error) {
	type alias Organization
	return json.Marshal(struct {
		alias
		IsApproved bool `json:"isApproved"`
	}{alias(o), o.State.Approved()})
}

// Validate checks the required fields of a complete organization.
func (o *Organization) Validate() []string {
	var errs []string
	errs = appendMissing(errs, "name", o.Name)
	errs = appendMissing(errs, "description", o.Description)
	errs = appendMissing(errs, "contactEmail", o.ContactEmail)
	errs = appendMissing(errs, "address.city", o.Address.City)
	if o.ContactEmail != "" && !strings.Contains(o.ContactEmail, "@") {
		errs = append(errs, "contactEmail must be an email address")
	}
	return errs
}

func appendMissing(errs []string, field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(errs, field+" is required")
	}
	return errs
}

// OrganizationPatch carries the owner-editable fields of an update; nil means unchanged.
type OrganizationPatch struct {
	Name         *string
	Description  *string
	Logo         *string
	ContactEmail *string
	ContactPhone *string
	Website      *string
	Address      *Address
	SocialMedia  *SocialMedia
}

// Apply writes the patch onto o.
func (p OrganizationPatch) Apply(o *Organization) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.Logo != nil {
		o.Logo = *p.Logo
	}
	if p.ContactEmail != nil {
		o.ContactEmail = *p.ContactEmail
	}
	if p.ContactPhone != nil {
		o.ContactPhone = *p.ContactPhone
	}
	if p.Website != nil {
		o.Website = *p.Website
	}
	if p.Address != nil {
		o.Address = *p.Address
	}
	if p.SocialMedia != nil {
		o.SocialMedia = *p.SocialMedia
	}
}

// OrganizerSummary is the organization excerpt embedded in event listings.
type OrganizerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Summary returns the listing excerpt of o.
func (o *Organization) Summary() *OrganizerSummary {
	return &OrganizerSummary{ID: o.ID, Name: o.Name, Logo: o.Logo}
}
