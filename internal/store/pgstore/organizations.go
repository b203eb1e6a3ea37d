package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

const organizationColumns = `id::text, name, description, logo, contact_email, contact_phone, website,
	address, social_media, created_by::text, moderation_state, created_at, updated_at`

// Organizations persists organizations in the organizations table.
type Organizations struct {
	pool *pgxpool.Pool
}

// NewOrganizations creates an organizations store.
func NewOrganizations(pool *pgxpool.Pool) *Organizations {
	return &Organizations{pool: pool}
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.Logo, &o.ContactEmail, &o.ContactPhone, &o.Website,
		&o.Address, &o.SocialMedia, &o.CreatedBy, &o.State, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID returns an organization by ID.
func (r *Organizations) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	o, err := scanOrganization(r.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, uid))
	return o, mapErr("get organization", err)
}

// GetByOwner returns the organization created by accountID.
func (r *Organizations) GetByOwner(ctx context.Context, accountID string) (*models.Organization, error) {
	uid, err := parseID(accountID)
	if err != nil {
		return nil, err
	}
	o, err := scanOrganization(r.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE created_by = $1`, uid))
	return o, mapErr("get organization by owner", err)
}

// GetByIDs returns the organizations that exist among ids.
func (r *Organizations) GetByIDs(ctx context.Context, ids []string) ([]*models.Organization, error) {
	uids := parseIDs(ids)
	if len(uids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ANY($1)`, uids)
}

// Create inserts an organization. A second organization for the same owner is a conflict.
func (r *Organizations) Create(ctx context.Context, o *models.Organization) error {
	owner, err := parseID(o.CreatedBy)
	if err != nil {
		return err
	}
	const q = `INSERT INTO organizations (name, description, logo, contact_email, contact_phone, website,
			address, social_media, created_by, moderation_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id::text, created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, o.Name, o.Description, o.Logo, o.ContactEmail, o.ContactPhone, o.Website,
		o.Address, o.SocialMedia, owner, o.State).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return mapErr("create organization", err)
}

// Update applies the patch and optional state in a single statement.
func (r *Organizations) Update(ctx context.Context, id string, patch models.OrganizationPatch, state *models.ModerationState) (*models.Organization, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c := organizationSet(patch)
	if state != nil {
		c.add("moderation_state = ?", *state)
	}
	q := `UPDATE organizations SET ` + c.set() + ` WHERE id = ` + c.next(uid) + ` RETURNING ` + organizationColumns
	o, err := scanOrganization(r.pool.QueryRow(ctx, q, c.args...))
	return o, mapErr("update organization", err)
}

// SetState writes only the moderation state.
func (r *Organizations) SetState(ctx context.Context, id string, state models.ModerationState) (*models.Organization, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	const q = `UPDATE organizations SET moderation_state = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + organizationColumns
	o, err := scanOrganization(r.pool.QueryRow(ctx, q, state, uid))
	return o, mapErr("set organization state", err)
}

// List returns one page of matching organizations and the total match count.
func (r *Organizations) List(ctx context.Context, f store.OrganizationFilter, sort store.Sort, page store.Page) ([]*models.Organization, int64, error) {
	c := organizationWhere(f)
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`+c.where(), c.args...).Scan(&total); err != nil {
		return nil, 0, mapErr("count organizations", err)
	}
	q := `SELECT ` + organizationColumns + ` FROM organizations` + c.where() + organizationOrder(sort) + c.paginate(page)
	list, err := r.query(ctx, q, c.args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Organizations) query(ctx context.Context, q string, args ...any) ([]*models.Organization, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr("list organizations", err)
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, mapErr("scan organization", err)
		}
		list = append(list, o)
	}
	return list, mapErr("list organizations", rows.Err())
}

func organizationWhere(f store.OrganizationFilter) *clause {
	c := &clause{}
	approvedCondition(c, f.Approved)
	if f.Search != "" {
		c.add("(name ILIKE ? OR description ILIKE ?)", containsPattern(f.Search))
	}
	return c
}

func organizationOrder(sort store.Sort) string {
	if sort == store.SortCreatedDesc {
		return " ORDER BY created_at DESC, id"
	}
	return " ORDER BY name ASC, id"
}

func organizationSet(p models.OrganizationPatch) *clause {
	c := &clause{}
	if p.Name != nil {
		c.add("name = ?", *p.Name)
	}
	if p.Description != nil {
		c.add("description = ?", *p.Description)
	}
	if p.Logo != nil {
		c.add("logo = ?", *p.Logo)
	}
	if p.ContactEmail != nil {
		c.add("contact_email = ?", *p.ContactEmail)
	}
	if p.ContactPhone != nil {
		c.add("contact_phone = ?", *p.ContactPhone)
	}
	if p.Website != nil {
		c.add("website = ?", *p.Website)
	}
	if p.Address != nil {
		c.add("address = ?", *p.Address)
	}
	if p.SocialMedia != nil {
		c.add("social_media = ?", *p.SocialMedia)
	}
	return c
}
