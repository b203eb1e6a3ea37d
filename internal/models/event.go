package models

import (
	"encoding/json"
	"time"
)

// EventTypes lists the accepted eventType values.
var EventTypes = []string{
	"workshop",
	"conference",
	"lecture",
	"competition",
	"internship",
	"course",
	"hackathon",
	"exhibition",
	"other",
}

// ValidEventType reports whether t is a known event type.
func ValidEventType(t string) bool {
	for _, v := range EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Age bounds accepted for AgeRange.
const (
	MinAgeBound = 0
	MaxAgeBound = 100
)

// DefaultCurrency is used when a price has no currency.
const DefaultCurrency = "CZK"

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is where an event takes place.
type Location struct {
	Name        string       `json:"name,omitempty"`
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city"`
	PostalCode  string       `json:"postalCode,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// AgeRange is the inclusive audience age range.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Overlaps reports whether r intersects [min, max].
func (r AgeRange) Overlaps(min, max int) bool {
	return r.Min <= max && r.Max >= min
}

// Price of attending an event.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	IsFree   bool    `json:"isFree"`
}

// DefaultPrice is a free event priced in DefaultCurrency.
func DefaultPrice() Price {
	return Price{Amount: 0, Currency: DefaultCurrency, IsFree: true}
}

// Event is a listed activity owned by an Organization.
type Event struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"shortDescription"`
	StartDate        time.Time         `json:"startDate"`
	EndDate          time.Time         `json:"endDate"`
	Location         Location          `json:"location"`
	EventType        string            `json:"eventType"`
	AgeRange         AgeRange          `json:"ageRange"`
	RegistrationURL  string            `json:"registrationUrl,omitempty"`
	Price            Price             `json:"price"`
	OrganizerID      string            `json:"organizerId"`
	Organizer        *OrganizerSummary `json:"organizer,omitempty"`
	CreatedBy        string            `json:"createdBy"`
	State            ModerationState   `json:"-"`
	Images           []string          `json:"images"`
	Tags             []string          `json:"tags"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// OwnerAccountID returns the creating account.
func (e *Event) OwnerAccountID() string { return e.CreatedBy }

// MarshalJSON projects the moderation state to isApproved.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		IsApproved bool `json:"isApproved"`
	}{alias(e), e.State.Approved()})
}

// Validate checks the cross-field invariants of a complete event.
func (e *Event) Validate() []string {
	var errs []string
	errs = appendMissing(errs, "title", e.Title)
	errs = appendMissing(errs, "description", e.Description)
	errs = appendMissing(errs, "shortDescription", e.ShortDescription)
	errs = appendMissing(errs, "location.city", e.Location.City)
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		errs = append(errs, "startDate and endDate are required")
	}
	if e.EndDate.Before(e.StartDate) {
		errs = append(errs, "endDate must not be before startDate")
	}
	if e.AgeRange.Min < MinAgeBound || e.AgeRange.Max > MaxAgeBound {
		errs = append(errs, "ageRange must be within 0-100")
	}
	if e.AgeRange.Min > e.AgeRange.Max {
		errs = append(errs, "ageRange.min must not exceed ageRange.max")
	}
	if !ValidEventType(e.EventType) {
		errs = append(errs, "invalid eventType")
	}
	return errs
}

// CalendarEntry is the calendar projection of an event.
type CalendarEntry struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	ExtendedProps CalendarProps `json:"extendedProps"`
}

// CalendarProps carries the calendar entry details.
type CalendarProps struct {
	Location  string `json:"location"`
	Type      string `json:"type"`
	Organizer string `json:"organizer"`
}

// EventPatch carries the editable fields of an event update; nil means unchanged.
type EventPatch struct {
	Title            *string
	Description      *string
	ShortDescription *string
	StartDate        *time.Time
	EndDate          *time.Time
	Location         *Location
	EventType        *string
	AgeRange         *AgeRange
	RegistrationURL  *string
	Price            *Price
	Images           *[]string
	Tags             *[]string
}

// Apply writes the patch onto e.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.ShortDescription != nil {
		e.ShortDescription = *p.ShortDescription
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.EventType != nil {
		e.EventType = *p.EventType
	}
	if p.AgeRange != nil {
		e.AgeRange = *p.AgeRange
	}
	if p.RegistrationURL != nil {
		e.RegistrationURL = *p.RegistrationURL
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Images != nil {
		e.Images = *p.Images
	}
	if p.Tags != nil {
		e.Tags = *p.Tags
	}
}
