package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
)

// Directory maps verified identities onto accounts.
type Directory struct {
	accounts store.Accounts
	logger   *zap.Logger
}

// NewDirectory creates a directory over accounts.
func NewDirectory(accounts store.Accounts, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{accounts: accounts, logger: logger}
}

// ResolveOrCreate returns the account for id, creating a student account on first login.
// Existing accounts are returned unchanged.
func (d *Directory) ResolveOrCreate(ctx context.Context, id *Identity) (*models.Account, error) {
	acc, err := d.accounts.GetBySubject(ctx, id.Subject)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	if id.Email == "" {
		return nil, fmt.Errorf("resolve account: %w", models.Invalid("identity has no email"))
	}

	acc = &models.Account{
		SubjectID:    id.Subject,
		Email:        id.Email,
		Name:         displayName(id),
		Role:         models.RoleStudent,
		ProfileImage: id.Picture,
		Approved:     true,
		SavedEvents:  []string{},
	}
	err = d.accounts.Create(ctx, acc)
	if errors.Is(err, models.ErrConflict) {
		// a concurrent first login won the insert
		existing, gerr := d.accounts.GetBySubject(ctx, id.Subject)
		if gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	d.logger.Info("account created", zap.String("account_id", acc.ID), zap.String("subject", id.Subject))
	return acc, nil
}

func displayName(id *Identity) string {
	if id.Name != "" {
		return id.Name
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}
