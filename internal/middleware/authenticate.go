package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/response"
)

const (
	// ContextAccount is the key for the request's *models.Account in gin context.
	ContextAccount = "account"
	// ContextSubject is the key for the verified identity subject in gin context.
	ContextSubject = "subject"
)

// VerifyFunc validates a bearer credential and returns the identity subject.
type VerifyFunc func(ctx context.Context, credential string) (string, error)

// Authenticate requires a valid bearer credential. The matching account is stored in
// context when one exists; identities that never logged in pass with no account.
func Authenticate(verify VerifyFunc, accounts store.Accounts, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization token")
			c.Abort()
			return
		}
		if err := resolve(c, verify, accounts, token); err != nil {
			if errors.Is(err, models.ErrUnauthenticated) {
				response.Unauthorized(c, "invalid or expired token")
			} else {
				response.Error(c, logger, err)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthenticate resolves the account when a valid credential is present and
// otherwise continues anonymously.
func OptionalAuthenticate(verify VerifyFunc, accounts store.Accounts, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if err := resolve(c, verify, accounts, token); err != nil {
				logger.Debug("optional authentication ignored", zap.Error(err))
			}
		}
		c.Next()
	}
}

func resolve(c *gin.Context, verify VerifyFunc, accounts store.Accounts, token string) error {
	subject, acc, err := lookup(c.Request.Context(), verify, accounts, token)
	if err != nil {
		return err
	}
	c.Set(ContextSubject, subject)
	if acc != nil {
		c.Set(ContextAccount, acc)
	}
	return nil
}

func lookup(ctx context.Context, verify VerifyFunc, accounts store.Accounts, token string) (string, *models.Account, error) {
	subject, err := verify(ctx, token)
	if err != nil {
		return "", nil, err
	}
	acc, err := accounts.GetBySubject(ctx, subject)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return "", nil, err
	}
	return subject, acc, nil
}

// AccountLookup resolves a raw credential to its account outside the header flow,
// e.g. a WebSocket token passed as a query parameter. A nil account means the
// identity is valid but has never logged in.
func AccountLookup(verify VerifyFunc, accounts store.Accounts) func(ctx context.Context, token string) (*models.Account, error) {
	return func(ctx context.Context, token string) (*models.Account, error) {
		_, acc, err := lookup(ctx, verify, accounts, token)
		return acc, err
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// CurrentAccount returns the request's account, or nil when anonymous or not yet registered.
func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(ContextAccount)
	if !ok {
		return nil
	}
	acc, _ := v.(*models.Account)
	return acc
}

// Subject returns the verified identity subject, or "" when anonymous.
func Subject(c *gin.Context) string {
	return c.GetString(ContextSubject)
}
