// Package moderation implements the review lifecycle of organizations and events.
package moderation

import (
	"fmt"

	"github.com/campus-events/backend/internal/models"
)

// Action is a moderation transition.
type Action string

const (
	ActionSubmit  Action = "submitted"
	ActionApprove Action = "approved"
	ActionReject  Action = "rejected"
)

// Initial is the state of a freshly created entity.
func Initial(creator models.Role) models.ModerationState {
	if creator == models.RoleAdmin {
		return models.StateApproved
	}
	return models.StatePending
}

// Approve moves any state to approved. Only admins may approve.
func Approve(current models.ModerationState, actor *models.Account) (models.ModerationState, error) {
	if !isAdmin(actor) {
		return current, fmt.Errorf("approve: %w", models.ErrForbidden)
	}
	return models.StateApproved, nil
}

// Reject moves any state to rejected. Rejection is not terminal.
func Reject(current models.ModerationState, actor *models.Account) (models.ModerationState, error) {
	if !isAdmin(actor) {
		return current, fmt.Errorf("reject: %w", models.ErrForbidden)
	}
	return models.StateRejected, nil
}

// Edit returns the state after a field edit by actor. Admin edits keep the state; any other
// edit forces re-review. The bool reports whether the state must be written.
func Edit(current models.ModerationState, actor models.Role) (models.ModerationState, bool) {
	if actor == models.RoleAdmin {
		return current, false
	}
	return models.StatePending, true
}

// Visible reports whether viewer may see an entity in state owned by ownerID.
// viewer may be nil for anonymous requests.
func Visible(state models.ModerationState, viewer *models.Account, ownerID string) bool {
	return state.Approved() || Privileged(viewer, ownerID)
}

// Privileged reports whether viewer sees unapproved entities owned by ownerID.
func Privileged(viewer *models.Account, ownerID string) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == models.RoleAdmin || viewer.ID == ownerID
}

func isAdmin(a *models.Account) bool {
	return a != nil && a.Role == models.RoleAdmin
}
