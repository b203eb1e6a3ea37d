// Package auth verifies identity-provider credentials and maps them onto local accounts.
package auth

import (
	"context"
)

// Identity is what a verified credential asserts about its holder.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier validates a bearer credential. Invalid credentials yield errors matching
// models.ErrUnauthenticated; an unreachable provider yields models.ErrUpstream.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Subjects adapts v to the subject-only form used by the authentication middleware.
func Subjects(v Verifier) func(ctx context.Context, credential string) (string, error) {
	return func(ctx context.Context, credential string) (string, error) {
		id, err := v.Verify(ctx, credential)
		if err != nil {
			return "", err
		}
		return id.Subject, nil
	}
}
