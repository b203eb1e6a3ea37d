// Package pgstore implements the store interfaces on PostgreSQL through pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

const (
	uniqueViolation = "23505"
	// Class 08 covers connection exceptions.
	connectionClass = "08"
)

// New returns Postgres-backed stores sharing pool.
func New(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		Accounts:      NewAccounts(pool),
		Organizations: NewOrganizations(pool),
		Events:        NewEvents(pool),
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}

// mapErr translates pgx errors into the models taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, models.ErrConflict)
		case strings.HasPrefix(pgErr.Code, connectionClass):
			return fmt.Errorf("%s: %v: %w", op, err, models.ErrUpstream)
		}
	}
	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrUpstream)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// parseID rejects ids that cannot exist in a uuid column.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func parseIDs(ids []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}

// clause accumulates SQL fragments with positional arguments. A '?' in a
// fragment is replaced by the next placeholder; repeated '?' share it.
type clause struct {
	parts []string
	args  []any
}

func (c *clause) add(fragment string, arg any) {
	c.args = append(c.args, arg)
	c.parts = append(c.parts, strings.ReplaceAll(fragment, "?", "$"+strconv.Itoa(len(c.args))))
}

func (c *clause) addRaw(fragment string) {
	c.parts = append(c.parts, fragment)
}

func (c *clause) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

func (c *clause) set() string {
	return strings.Join(append(c.parts, "updated_at = NOW()"), ", ")
}

// next returns the placeholder for an argument appended after the current ones.
func (c *clause) next(arg any) string {
	c.args = append(c.args, arg)
	return "$" + strconv.Itoa(len(c.args))
}

func (c *clause) paginate(page store.Page) string {
	if !page.Paged() {
		return ""
	}
	limit := c.next(page.Size)
	offset := c.next(page.Offset())
	return " LIMIT " + limit + " OFFSET " + offset
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func approvedCondition(c *clause, approved *bool) {
	if approved == nil {
		return
	}
	if *approved {
		c.add("moderation_state = ?", models.StateApproved)
	} else {
		c.add("moderation_state <> ?", models.StateApproved)
	}
}
