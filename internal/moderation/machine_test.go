package moderation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-events/backend/internal/models"
)

var (
	admin = &models.Account{ID: "admin-1", Role: models.RoleAdmin, Approved: true}
	owner = &models.Account{ID: "owner-1", Role: models.RoleOrganization, Approved: true}
	other = &models.Account{ID: "student-1", Role: models.RoleStudent, Approved: true}

	allStates = []models.ModerationState{models.StatePending, models.StateApproved, models.StateRejected}
)

func TestInitial(t *testing.T) {
	assert.Equal(t, models.StateApproved, Initial(models.RoleAdmin))
	assert.Equal(t, models.StatePending, Initial(models.RoleOrganization))
	assert.Equal(t, models.StatePending, Initial(models.RoleStudent))
}

func TestApproveRejectFromAnyState(t *testing.T) {
	for _, s := range allStates {
		got, err := Approve(s, admin)
		require.NoError(t, err)
		assert.Equal(t, models.StateApproved, got)

		got, err = Reject(s, admin)
		require.NoError(t, err)
		assert.Equal(t, models.StateRejected, got)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	for _, actor := range []*models.Account{nil, owner, other} {
		got, err := Approve(models.StatePending, actor)
		assert.True(t, errors.Is(err, models.ErrForbidden))
		assert.Equal(t, models.StatePending, got)

		_, err = Reject(models.StateApproved, actor)
		assert.True(t, errors.Is(err, models.ErrForbidden))
	}
}

func TestEdit(t *testing.T) {
	for _, s := range allStates {
		got, write := Edit(s, models.RoleOrganization)
		assert.Equal(t, models.StatePending, got, "owner edit from %s", s)
		assert.True(t, write)

		got, write = Edit(s, models.RoleAdmin)
		assert.Equal(t, s, got, "admin edit from %s", s)
		assert.False(t, write)
	}
}

func TestLifecycleScenario(t *testing.T) {
	// organization creates, admin approves, owner edits the title
	s := Initial(owner.Role)
	assert.False(t, s.Approved())

	s, err := Approve(s, admin)
	require.NoError(t, err)
	assert.True(t, s.Approved())

	s, _ = Edit(s, owner.Role)
	assert.False(t, s.Approved())

	// rejection is not terminal
	s, _ = Reject(s, admin)
	s, _ = Approve(s, admin)
	assert.True(t, s.Approved())
}

func TestVisible(t *testing.T) {
	assert.True(t, Visible(models.StateApproved, nil, owner.ID))
	assert.False(t, Visible(models.StatePending, nil, owner.ID))
	assert.False(t, Visible(models.StateRejected, other, owner.ID))
	assert.True(t, Visible(models.StateRejected, owner, owner.ID))
	assert.True(t, Visible(models.StatePending, admin, owner.ID))
}
