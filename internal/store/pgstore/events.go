package pgstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

const eventColumns = `id::text, title, description, short_description, start_date, end_date, location, event_type,
	age_min, age_max, registration_url, price, organizer_id::text, created_by::text, moderation_state,
	images, tags, created_at, updated_at`

// Events persists events in the events table.
type Events struct {
	pool *pgxpool.Pool
}

// NewEvents creates an events store.
func NewEvents(pool *pgxpool.Pool) *Events {
	return &Events{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.ShortDescription, &e.StartDate, &e.EndDate, &e.Location,
		&e.EventType, &e.AgeRange.Min, &e.AgeRange.Max, &e.RegistrationURL, &e.Price, &e.OrganizerID, &e.CreatedBy,
		&e.State, &e.Images, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID returns an event by ID.
func (r *Events) GetByID(ctx context.Context, id string) (*models.Event, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, uid))
	return e, mapErr("get event", err)
}

// GetByIDs returns the events that exist among ids, soonest first.
func (r *Events) GetByIDs(ctx context.Context, ids []string) ([]*models.Event, error) {
	uids := parseIDs(ids)
	if len(uids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ANY($1) ORDER BY start_date ASC`, uids)
}

// Create inserts an event.
func (r *Events) Create(ctx context.Context, e *models.Event) error {
	organizer, err := parseID(e.OrganizerID)
	if err != nil {
		return err
	}
	creator, err := parseID(e.CreatedBy)
	if err != nil {
		return err
	}
	const q = `INSERT INTO events (title, description, short_description, start_date, end_date, location,
			event_type, age_min, age_max, registration_url, price, organizer_id, created_by, moderation_state, images, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id::text, created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, e.Title, e.Description, e.ShortDescription, e.StartDate, e.EndDate, e.Location,
		e.EventType, e.AgeRange.Min, e.AgeRange.Max, e.RegistrationURL, e.Price, organizer, creator, e.State,
		nonNil(e.Images), nonNil(e.Tags)).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapErr("create event", err)
}

// Update applies the patch and optional state in a single statement.
func (r *Events) Update(ctx context.Context, id string, patch models.EventPatch, state *models.ModerationState) (*models.Event, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c := eventSet(patch)
	if state != nil {
		c.add("moderation_state = ?", *state)
	}
	q := `UPDATE events SET ` + c.set() + ` WHERE id = ` + c.next(uid) + ` RETURNING ` + eventColumns
	e, err := scanEvent(r.pool.QueryRow(ctx, q, c.args...))
	return e, mapErr("update event", err)
}

// SetState writes only the moderation state.
func (r *Events) SetState(ctx context.Context, id string, state models.ModerationState) (*models.Event, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	const q = `UPDATE events SET moderation_state = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + eventColumns
	e, err := scanEvent(r.pool.QueryRow(ctx, q, state, uid))
	return e, mapErr("set event state", err)
}

// Delete removes an event by ID.
func (r *Events) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, uid)
	if err != nil {
		return mapErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("delete event", pgx.ErrNoRows)
	}
	return nil
}

// List returns one page of matching events and the total match count.
func (r *Events) List(ctx context.Context, f store.EventFilter, sort store.Sort, page store.Page) ([]*models.Event, int64, error) {
	c := eventWhere(f)
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+c.where(), c.args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count events", err)
	}
	q := `SELECT ` + eventColumns + ` FROM events` + c.where() + eventOrder(sort) + c.paginate(page)
	list, err := r.query(ctx, q, c.args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Events) query(ctx context.Context, q string, args ...any) ([]*models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list events", err)
	}
	defer rows.Close()
	var list []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, mapErr("scan event", err)
		}
		list = append(list, e)
	}
	return list, mapErr("list events", rows.Err())
}

func eventWhere(f store.EventFilter) *clause {
	c := &clause{}
	approvedCondition(c, f.Approved)
	if f.City != "" {
		c.add("city = ?", f.City)
	}
	if f.StartFrom != nil {
		c.add("start_date >= ?", *f.StartFrom)
	}
	if f.EndUntil != nil {
		c.add("end_date <= ?", *f.EndUntil)
	}
	if f.EventType != "" {
		c.add("event_type = ?", f.EventType)
	}
	if f.MaxAge != nil {
		c.add("age_min <= ?", *f.MaxAge)
	}
	if f.MinAge != nil {
		c.add("age_max >= ?", *f.MinAge)
	}
	if f.OrganizerID != "" {
		// an unparsable id matches nothing
		oid, err := uuid.Parse(f.OrganizerID)
		if err != nil {
			c.addRaw("FALSE")
		} else {
			c.add("organizer_id = ?", oid)
		}
	}
	if f.Search != "" {
		c.add("(title ILIKE ? OR description ILIKE ?)", containsPattern(f.Search))
	}
	return c
}

func eventOrder(sort store.Sort) string {
	switch sort {
	case store.SortStartDesc:
		return " ORDER BY start_date DESC, id"
	case store.SortCreatedDesc:
		return " ORDER BY created_at DESC, id"
	case store.SortNameAsc:
		return " ORDER BY title ASC, id"
	default:
		return " ORDER BY start_date ASC, id"
	}
}

func eventSet(p models.EventPatch) *clause {
	c := &clause{}
	if p.Title != nil {
		c.add("title = ?", *p.Title)
	}
	if p.Description != nil {
		c.add("description = ?", *p.Description)
	}
	if p.ShortDescription != nil {
		c.add("short_description = ?", *p.ShortDescription)
	}
	if p.StartDate != nil {
		c.add("start_date = ?", *p.StartDate)
	}
	if p.EndDate != nil {
		c.add("end_date = ?", *p.EndDate)
	}
	if p.Location != nil {
		c.add("location = ?", *p.Location)
	}
	if p.EventType != nil {
		c.add("event_type = ?", *p.EventType)
	}
	if p.AgeRange != nil {
		c.add("age_min = ?", p.AgeRange.Min)
		c.add("age_max = ?", p.AgeRange.Max)
	}
	if p.RegistrationURL != nil {
		c.add("registration_url = ?", *p.RegistrationURL)
	}
	if p.Price != nil {
		c.add("price = ?", *p.Price)
	}
	if p.Images != nil {
		c.add("images = ?", nonNil(*p.Images))
	}
	if p.Tags != nil {
		c.add("tags = ?", nonNil(*p.Tags))
	}
	return c
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
