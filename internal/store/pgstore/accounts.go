package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-events/backend/internal/models"
)

const accountColumns = `id::text, subject_id, email, name, role, profile_image, is_approved,
	organization_id::text, saved_events::text[], created_at, updated_at`

// Accounts persists accounts in the accounts table.
type Accounts struct {
	pool *pgxpool.Pool
}

// NewAccounts creates an accounts store.
func NewAccounts(pool *pgxpool.Pool) *Accounts {
	return &Accounts{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.SubjectID, &a.Email, &a.Name, &a.Role, &a.ProfileImage, &a.Approved,
		&a.OrganizationID, &a.SavedEvents, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID returns an account by ID.
func (r *Accounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, uid))
	return a, mapErr("get account", err)
}

// GetBySubject returns the account of an identity-provider subject.
func (r *Accounts) GetBySubject(ctx context.Context, subjectID string) (*models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE subject_id = $1`, subjectID))
	return a, mapErr("get account by subject", err)
}

// Create inserts an account.
func (r *Accounts) Create(ctx context.Context, a *models.Account) error {
	const q = `INSERT INTO accounts (subject_id, email, name, role, profile_image, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.SubjectID, a.Email, a.Name, a.Role, a.ProfileImage, a.Approved).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapErr("create account", err)
	}
	if a.SavedEvents == nil {
		a.SavedEvents = []string{}
	}
	return nil
}

// List returns all accounts, newest first.
func (r *Accounts) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr("list accounts", err)
	}
	defer rows.Close()
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr("scan account", err)
		}
		list = append(list, a)
	}
	return list, mapErr("list accounts", rows.Err())
}

// UpdateRole changes only the role.
func (r *Accounts) UpdateRole(ctx context.Context, id string, role models.Role) (*models.Account, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	const q = `UPDATE accounts SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + accountColumns
	a, err := scanAccount(r.pool.QueryRow(ctx, q, role, uid))
	return a, mapErr("update account role", err)
}

// UpdateMembership links the account to the organization it owns.
func (r *Accounts) UpdateMembership(ctx context.Context, id string, role models.Role, orgID string, approved bool) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	oid, err := parseID(orgID)
	if err != nil {
		return err
	}
	const q = `UPDATE accounts SET role = $1, organization_id = $2, is_approved = $3, updated_at = NOW() WHERE id = $4`
	return r.exec(ctx, "update account membership", q, role, oid, approved, uid)
}

// SetApproved sets the approval flag.
func (r *Accounts) SetApproved(ctx context.Context, id string, approved bool) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	const q = `UPDATE accounts SET is_approved = $1, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, "set account approval", q, approved, uid)
}

// SaveEvent appends eventID to saved_events unless already present.
func (r *Accounts) SaveEvent(ctx context.Context, id, eventID string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	eid, err := parseID(eventID)
	if err != nil {
		return err
	}
	const q = `UPDATE accounts SET saved_events = CASE WHEN $1 = ANY(saved_events) THEN saved_events
		ELSE array_append(saved_events, $1) END, updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, "save event", q, eid, uid)
}

// UnsaveEvent removes eventID from saved_events.
func (r *Accounts) UnsaveEvent(ctx context.Context, id, eventID string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	eid, err := parseID(eventID)
	if err != nil {
		return err
	}
	const q = `UPDATE accounts SET saved_events = array_remove(saved_events, $1), updated_at = NOW() WHERE id = $2`
	return r.exec(ctx, "unsave event", q, eid, uid)
}

func (r *Accounts) exec(ctx context.Context, op, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr(op, pgx.ErrNoRows)
	}
	return nil
}
