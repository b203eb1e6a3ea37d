// Package store defines the persistence contracts shared by the storage backends.
//
// Every backend translates its driver errors into the models error taxonomy:
// a missing document is models.ErrNotFound and a unique-index violation is
// models.ErrConflict.
package store

import (
	"context"
	"math"
	"time"

	"github.com/campus-events/backend/internal/models"
)

// Accounts persists identity-backed accounts.
type Accounts interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetBySubject(ctx context.Context, subjectID string) (*models.Account, error)
	// Create assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, a *models.Account) error
	// List returns every account, newest first.
	List(ctx context.Context) ([]*models.Account, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.Account, error)
	// UpdateMembership records that the account now owns orgID.
	UpdateMembership(ctx context.Context, id string, role models.Role, orgID string, approved bool) error
	SetApproved(ctx context.Context, id string, approved bool) error
	// SaveEvent adds eventID to the saved list once; UnsaveEvent removes it.
	SaveEvent(ctx context.Context, id, eventID string) error
	UnsaveEvent(ctx context.Context, id, eventID string) error
}

// Organizations persists organizations. At most one organization exists per owner.
type Organizations interface {
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetByOwner(ctx context.Context, accountID string) (*models.Organization, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Organization, error)
	Create(ctx context.Context, o *models.Organization) error
	// Update applies patch and, when state is non-nil, the new moderation state in one write.
	Update(ctx context.Context, id string, patch models.OrganizationPatch, state *models.ModerationState) (*models.Organization, error)
	SetState(ctx context.Context, id string, state models.ModerationState) (*models.Organization, error)
	List(ctx context.Context, f OrganizationFilter, sort Sort, page Page) ([]*models.Organization, int64, error)
}

// Events persists events.
type Events interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Event, error)
	Create(ctx context.Context, e *models.Event) error
	// Update applies patch and, when state is non-nil, the new moderation state in one write.
	Update(ctx context.Context, id string, patch models.EventPatch, state *models.ModerationState) (*models.Event, error)
	SetState(ctx context.Context, id string, state models.ModerationState) (*models.Event, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f EventFilter, sort Sort, page Page) ([]*models.Event, int64, error)
}

// Stores bundles the backends selected at startup.
type Stores struct {
	Accounts      Accounts
	Organizations Organizations
	Events        Events
	// Close releases the backend connection.
	Close func(ctx context.Context) error
}

// Sort selects a listing order.
type Sort int

const (
	SortStartAsc Sort = iota
	SortStartDesc
	SortCreatedDesc
	SortNameAsc
)

// EventFilter narrows event listings. Zero-valued fields do not constrain.
type EventFilter struct {
	// Approved nil lists every state; false lists everything not yet approved.
	Approved    *bool
	City        string
	StartFrom   *time.Time
	EndUntil    *time.Time
	EventType   string
	MinAge      *int
	MaxAge      *int
	OrganizerID string
	// Search is a case-insensitive literal match against title or description.
	Search string
}

// Match evaluates the filter in memory.
func (f EventFilter) Match(e *models.Event) bool {
	if f.Approved != nil && e.State.Approved() != *f.Approved {
		return false
	}
	if f.City != "" && e.Location.City != f.City {
		return false
	}
	if f.StartFrom != nil && e.StartDate.Before(*f.StartFrom) {
		return false
	}
	if f.EndUntil != nil && e.EndDate.After(*f.EndUntil) {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.MinAge != nil || f.MaxAge != nil {
		lo, hi := math.MinInt, math.MaxInt
		if f.MinAge != nil {
			lo = *f.MinAge
		}
		if f.MaxAge != nil {
			hi = *f.MaxAge
		}
		if !e.AgeRange.Overlaps(lo, hi) {
			return false
		}
	}
	if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
		return false
	}
	if f.Search != "" && !containsFold(e.Title, f.Search) && !containsFold(e.Description, f.Search) {
		return false
	}
	return true
}

// OrganizationFilter narrows organization listings.
type OrganizationFilter struct {
	Approved *bool
	// Search is a case-insensitive literal match against name or description.
	Search string
}

// Match evaluates the filter in memory.
func (f OrganizationFilter) Match(o *models.Organization) bool {
	if f.Approved != nil && o.State.Approved() != *f.Approved {
		return false
	}
	if f.Search != "" && !containsFold(o.Name, f.Search) && !containsFold(o.Description, f.Search) {
		return false
	}
	return true
}

// Bool returns a pointer to b, for filter literals.
func Bool(b bool) *bool { return &b }
