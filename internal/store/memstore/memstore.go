// Package memstore is a process-local store backend for development and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

// New returns empty in-memory stores.
func New() *store.Stores {
	db := &db{
		accounts: map[string]*models.Account{},
		orgs:     map[string]*models.Organization{},
		events:   map[string]*models.Event{},
	}
	return &store.Stores{
		Accounts:      &Accounts{db: db},
		Organizations: &Organizations{db: db},
		Events:        &Events{db: db},
		Close:         func(context.Context) error { return nil },
	}
}

type db struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	orgs     map[string]*models.Organization
	events   map[string]*models.Event
	now      func() time.Time
}

func (d *db) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now().UTC()
}

// Accounts is the in-memory store.Accounts.
type Accounts struct{ db *db }

func (s *Accounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *Accounts) GetBySubject(_ context.Context, subjectID string) (*models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, a := range s.db.accounts {
		if a.SubjectID == subjectID {
			return cloneAccount(a), nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Accounts) Create(_ context.Context, a *models.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, x := range s.db.accounts {
		if x.SubjectID == a.SubjectID || strings.EqualFold(x.Email, a.Email) {
			return models.ErrConflict
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = s.db.clock()
	a.UpdatedAt = a.CreatedAt
	if a.SavedEvents == nil {
		a.SavedEvents = []string{}
	}
	s.db.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *Accounts) List(_ context.Context) ([]*models.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	list := make([]*models.Account, 0, len(s.db.accounts))
	for _, a := range s.db.accounts {
		list = append(list, cloneAccount(a))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *Accounts) UpdateRole(_ context.Context, id string, role models.Role) (*models.Account, error) {
	var out *models.Account
	err := s.mutate(id, func(a *models.Account) {
		a.Role = role
		out = a
	})
	if err != nil {
		return nil, err
	}
	return cloneAccount(out), nil
}

func (s *Accounts) UpdateMembership(_ context.Context, id string, role models.Role, orgID string, approved bool) error {
	return s.mutate(id, func(a *models.Account) {
		a.Role = role
		a.OrganizationID = &orgID
		a.Approved = approved
	})
}

func (s *Accounts) SetApproved(_ context.Context, id string, approved bool) error {
	return s.mutate(id, func(a *models.Account) { a.Approved = approved })
}

func (s *Accounts) SaveEvent(_ context.Context, id, eventID string) error {
	return s.mutate(id, func(a *models.Account) {
		if !a.HasSaved(eventID) {
			a.SavedEvents = append(a.SavedEvents, eventID)
		}
	})
}

func (s *Accounts) UnsaveEvent(_ context.Context, id, eventID string) error {
	return s.mutate(id, func(a *models.Account) {
		kept := a.SavedEvents[:0]
		for _, e := range a.SavedEvents {
			if e != eventID {
				kept = append(kept, e)
			}
		}
		a.SavedEvents = kept
	})
}

func (s *Accounts) mutate(id string, fn func(a *models.Account)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = s.db.clock()
	return nil
}

// Organizations is the in-memory store.Organizations.
type Organizations struct{ db *db }

func (s *Organizations) GetByID(_ context.Context, id string) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	o, ok := s.db.orgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (s *Organizations) GetByOwner(_ context.Context, accountID string) (*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, o := range s.db.orgs {
		if o.CreatedBy == accountID {
			c := *o
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Organizations) GetByIDs(_ context.Context, ids []string) ([]*models.Organization, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var list []*models.Organization
	for _, id := range ids {
		if o, ok := s.db.orgs[id]; ok {
			c := *o
			list = append(list, &c)
		}
	}
	return list, nil
}

func (s *Organizations) Create(_ context.Context, o *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, x := range s.db.orgs {
		if x.CreatedBy == o.CreatedBy {
			return models.ErrConflict
		}
	}
	o.ID = uuid.NewString()
	o.CreatedAt = s.db.clock()
	o.UpdatedAt = o.CreatedAt
	c := *o
	s.db.orgs[o.ID] = &c
	return nil
}

func (s *Organizations) Update(_ context.Context, id string, patch models.OrganizationPatch, state *models.ModerationState) (*models.Organization, error) {
	return s.mutate(id, func(o *models.Organization) {
		patch.Apply(o)
		if state != nil {
			o.State = *state
		}
	})
}

func (s *Organizations) SetState(_ context.Context, id string, state models.ModerationState) (*models.Organization, error) {
	return s.mutate(id, func(o *models.Organization) { o.State = state })
}

func (s *Organizations) List(_ context.Context, f store.OrganizationFilter, order store.Sort, page store.Page) ([]*models.Organization, int64, error) {
	s.db.mu.RLock()
	var list []*models.Organization
	for _, o := range s.db.orgs {
		if f.Match(o) {
			c := *o
			list = append(list, &c)
		}
	}
	s.db.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		switch order {
		case store.SortCreatedDesc:
			return list[i].CreatedAt.After(list[j].CreatedAt)
		default:
			return list[i].Name < list[j].Name
		}
	})
	lo, hi := page.Slice(len(list))
	return list[lo:hi], int64(len(list)), nil
}

func (s *Organizations) mutate(id string, fn func(o *models.Organization)) (*models.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orgs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(o)
	o.UpdatedAt = s.db.clock()
	c := *o
	return &c, nil
}

// Events is the in-memory store.Events.
type Events struct{ db *db }

func (s *Events) GetByID(_ context.Context, id string) (*models.Event, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	e, ok := s.db.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *Events) GetByIDs(_ context.Context, ids []string) ([]*models.Event, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var list []*models.Event
	for _, id := range ids {
		if e, ok := s.db.events[id]; ok {
			list = append(list, cloneEvent(e))
		}
	}
	return list, nil
}

func (s *Events) Create(_ context.Context, e *models.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = s.db.clock()
	e.UpdatedAt = e.CreatedAt
	s.db.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *Events) Update(_ context.Context, id string, patch models.EventPatch, state *models.ModerationState) (*models.Event, error) {
	return s.mutate(id, func(e *models.Event) {
		patch.Apply(e)
		if state != nil {
			e.State = *state
		}
	})
}

func (s *Events) SetState(_ context.Context, id string, state models.ModerationState) (*models.Event, error) {
	return s.mutate(id, func(e *models.Event) { e.State = state })
}

func (s *Events) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.db.events, id)
	return nil
}

func (s *Events) List(_ context.Context, f store.EventFilter, order store.Sort, page store.Page) ([]*models.Event, int64, error) {
	s.db.mu.RLock()
	var list []*models.Event
	for _, e := range s.db.events {
		if f.Match(e) {
			list = append(list, cloneEvent(e))
		}
	}
	s.db.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		switch order {
		case store.SortStartDesc:
			return list[i].StartDate.After(list[j].StartDate)
		case store.SortCreatedDesc:
			return list[i].CreatedAt.After(list[j].CreatedAt)
		case store.SortNameAsc:
			return list[i].Title < list[j].Title
		default:
			return list[i].StartDate.Before(list[j].StartDate)
		}
	})
	lo, hi := page.Slice(len(list))
	return list[lo:hi], int64(len(list)), nil
}

func (s *Events) mutate(id string, fn func(e *models.Event)) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(e)
	e.UpdatedAt = s.db.clock()
	return cloneEvent(e), nil
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	c.SavedEvents = append([]string{}, a.SavedEvents...)
	if a.OrganizationID != nil {
		id := *a.OrganizationID
		c.OrganizationID = &id
	}
	return &c
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.Images = append([]string{}, e.Images...)
	c.Tags = append([]string{}, e.Tags...)
	c.Organizer = nil
	if e.Location.Coordinates != nil {
		p := *e.Location.Coordinates
		c.Location.Coordinates = &p
	}
	return &c
}
