// Package policy decides whether an account may perform an action.
package policy

import (
	"fmt"

	"github.com/campus-events/backend/internal/models"
)

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated         Reason = "unauthenticated"
	ReasonInsufficientRole        Reason = "insufficient-role"
	ReasonOrganizationNotApproved Reason = "organization-not-approved"
	ReasonNotOwner                Reason = "not-owner"
)

var reasonMessages = map[Reason]string{
	ReasonUnauthenticated:         "authentication required",
	ReasonInsufficientRole:        "insufficient permissions",
	ReasonOrganizationNotApproved: "organization not approved yet",
	ReasonNotOwner:                "not authorized to modify this resource",
}

// Owned is implemented by entities whose mutation is restricted to their owner.
type Owned interface {
	OwnerAccountID() string
}

// Decision is the outcome of Authorize. The zero value is a denial without reason and is never returned.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the permitting decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denying decision with reason r.
func Deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a denial to an error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DenialError{Reason: d.Reason}
}

// DenialError is returned for denied decisions. It matches models.ErrUnauthenticated or
// models.ErrForbidden under errors.Is.
type DenialError struct {
	Reason Reason
}

func (e *DenialError) Error() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return fmt.Sprintf("denied: %s", e.Reason)
}

// Unwrap maps the reason onto the error taxonomy.
func (e *DenialError) Unwrap() error {
	if e.Reason == ReasonUnauthenticated {
		return models.ErrUnauthenticated
	}
	return models.ErrForbidden
}

// DenialReason exposes the reason to the HTTP layer.
func (e *DenialError) DenialReason() string { return string(e.Reason) }

// Authorize evaluates the access rules in order:
//  1. no account: unauthenticated
//  2. role not in required: insufficient-role
//  3. unapproved organization account, unless admin is among required: organization-not-approved
//  4. owned entity, non-admin actor that is not the owner: not-owner
//
// owned may be nil for actions that are not ownership-gated. Authorize has no side effects.
func Authorize(account *models.Account, required []models.Role, owned Owned) Decision {
	if account == nil {
		return Deny(ReasonUnauthenticated)
	}
	if !hasRole(required, account.Role) {
		return Deny(ReasonInsufficientRole)
	}
	if account.Role == models.RoleOrganization && !account.Approved && !hasRole(required, models.RoleAdmin) {
		return Deny(ReasonOrganizationNotApproved)
	}
	if owned != nil && account.Role != models.RoleAdmin && account.ID != owned.OwnerAccountID() {
		return Deny(ReasonNotOwner)
	}
	return Allow()
}

func hasRole(roles []models.Role, r models.Role) bool {
	for _, v := range roles {
		if v == r {
			return true
		}
	}
	return false
}

// Role sets used by the HTTP routes.
var (
	AdminOnly        = []models.Role{models.RoleAdmin}
	OrganizerOrAdmin = []models.Role{models.RoleOrganization, models.RoleAdmin}
	organizerOnly    = []models.Role{models.RoleOrganization}
)

// AuthorizeEventWrite gates event creation, update and deletion. Admins are checked
// against the admin set and everyone else against the organization set, so an
// unapproved organization account is refused with organization-not-approved.
// owned is nil for creation.
func AuthorizeEventWrite(account *models.Account, owned Owned) Decision {
	required := organizerOnly
	if account != nil && account.Role == models.RoleAdmin {
		required = AdminOnly
	}
	return Authorize(account, required, owned)
}
