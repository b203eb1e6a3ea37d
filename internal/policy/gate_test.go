package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-events/backend/internal/models"
)

type ownedBy string

func (o ownedBy) OwnerAccountID() string { return string(o) }

func account(id string, role models.Role, approved bool) *models.Account {
	return &models.Account{ID: id, Role: role, Approved: approved}
}

var (
	orgAndAdmin = []models.Role{models.RoleOrganization, models.RoleAdmin}
	adminOnly   = []models.Role{models.RoleAdmin}
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		account  *models.Account
		required []models.Role
		owned    Owned
		want     Decision
	}{
		{
			name:     "missing account",
			account:  nil,
			required: orgAndAdmin,
			want:     Deny(ReasonUnauthenticated),
		},
		{
			name:     "student cannot create events",
			account:  account("u1", models.RoleStudent, true),
			required: orgAndAdmin,
			want:     Deny(ReasonInsufficientRole),
		},
		{
			name:     "unapproved organization is denied even though role matches",
			account:  account("u1", models.RoleOrganization, false),
			required: orgAndAdmin[:1],
			want:     Deny(ReasonOrganizationNotApproved),
		},
		{
			name:     "unapproved organization passes when admin is among required roles",
			account:  account("u1", models.RoleOrganization, false),
			required: orgAndAdmin,
			want:     Allow(),
		},
		{
			name:     "role check precedes approval check",
			account:  account("u1", models.RoleOrganization, false),
			required: adminOnly,
			want:     Deny(ReasonInsufficientRole),
		},
		{
			name:     "approved organization not owning the entity",
			account:  account("u1", models.RoleOrganization, true),
			required: orgAndAdmin,
			owned:    ownedBy("u2"),
			want:     Deny(ReasonNotOwner),
		},
		{
			name:     "owner allowed",
			account:  account("u1", models.RoleOrganization, true),
			required: orgAndAdmin,
			owned:    ownedBy("u1"),
			want:     Allow(),
		},
		{
			name:     "admin bypasses ownership",
			account:  account("a1", models.RoleAdmin, true),
			required: orgAndAdmin,
			owned:    ownedBy("u2"),
			want:     Allow(),
		},
		{
			name:     "no ownership gate without entity",
			account:  account("s1", models.RoleStudent, true),
			required: models.AllRoles,
			want:     Allow(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.account, tt.required, tt.owned)
			assert.Equal(t, tt.want, got)
			// identical inputs always yield the identical decision
			assert.Equal(t, got, Authorize(tt.account, tt.required, tt.owned))
		})
	}
}

func TestDecisionErr(t *testing.T) {
	require.NoError(t, Allow().Err())

	err := Deny(ReasonUnauthenticated).Err()
	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
	assert.False(t, errors.Is(err, models.ErrForbidden))

	err = Deny(ReasonNotOwner).Err()
	assert.True(t, errors.Is(err, models.ErrForbidden))

	var denial *DenialError
	require.True(t, errors.As(err, &denial))
	assert.Equal(t, "not-owner", denial.DenialReason())
	assert.Equal(t, "not authorized to modify this resource", err.Error())
}

func TestAuthorizeEventWrite(t *testing.T) {
	assert.Equal(t, Deny(ReasonUnauthenticated), AuthorizeEventWrite(nil, nil))
	assert.Equal(t, Deny(ReasonInsufficientRole), AuthorizeEventWrite(account("s1", models.RoleStudent, true), nil))
	assert.Equal(t, Deny(ReasonOrganizationNotApproved), AuthorizeEventWrite(account("o1", models.RoleOrganization, false), nil))
	assert.Equal(t, Allow(), AuthorizeEventWrite(account("o1", models.RoleOrganization, true), nil))
	assert.Equal(t, Deny(ReasonNotOwner), AuthorizeEventWrite(account("o1", models.RoleOrganization, true), ownedBy("o2")))
	assert.Equal(t, Allow(), AuthorizeEventWrite(account("a1", models.RoleAdmin, true), ownedBy("o2")))
}
