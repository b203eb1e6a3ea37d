package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-events/backend/internal/models"
)

func TestLocalVerifierRoundTrip(t *testing.T) {
	v := NewLocalVerifier("secret", 1)
	token, err := v.Issue(Identity{Subject: "sub-1", Email: "jana@example.com", Name: "Jana"})
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", id.Subject)
	assert.Equal(t, "jana@example.com", id.Email)
	assert.Equal(t, "Jana", id.Name)
}

func TestLocalVerifierRejects(t *testing.T) {
	v := NewLocalVerifier("secret", 1)
	other := NewLocalVerifier("other-secret", 1)
	forged, err := other.Issue(Identity{Subject: "sub-1", Email: "x@example.com"})
	require.NoError(t, err)

	expired := NewLocalVerifier("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(Identity{Subject: "sub-1", Email: "x@example.com"})
	require.NoError(t, err)

	noSubject, err := v.Issue(Identity{Email: "x@example.com"})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-jwt",
		"wrong key":  forged,
		"expired":    old,
		"no subject": noSubject,
	} {
		_, err := v.Verify(context.Background(), token)
		assert.True(t, errors.Is(err, models.ErrUnauthenticated), name)
	}
}
