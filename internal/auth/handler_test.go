package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/internal/store/memstore"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	router   *gin.Engine
	verifier *LocalVerifier
	stores   *store.Stores
}

func newFixture() *fixture {
	stores := memstore.New()
	verifier := NewLocalVerifier("test-secret", 1)
	h := NewHandler(verifier, NewDirectory(stores.Accounts, nil), stores, zap.NewNop())

	r := gin.New()
	authn := middleware.Authenticate(Subjects(verifier), stores.Accounts, zap.NewNop())
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", authn, h.Me)
	r.GET("/auth/me/saved-events", authn, h.SavedEvents)
	return &fixture{router: r, verifier: verifier, stores: stores}
}

func (f *fixture) token(t *testing.T, subject, email string) string {
	t.Helper()
	tok, err := f.verifier.Issue(Identity{Subject: subject, Email: email})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	f := newFixture()
	tok := f.token(t, "sub-1", "eva@example.com")

	w := f.do(http.MethodPost, "/auth/login", "", LoginRequest{Token: tok})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "student", resp.User["role"])
	assert.Equal(t, true, resp.User["isApproved"])
	assert.Equal(t, "eva", resp.User["name"])

	// the alternative field name is accepted too, and repeat logins reuse the account
	w = f.do(http.MethodPost, "/auth/login", "", LoginRequest{Credential: tok})
	require.Equal(t, http.StatusOK, w.Code)
	all, _ := f.stores.Accounts.List(context.Background())
	assert.Len(t, all, 1)
}

func TestLoginErrors(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/auth/login", "", LoginRequest{}).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/login", "", LoginRequest{Token: "junk"}).Code)
}

func TestMe(t *testing.T) {
	f := newFixture()
	tok := f.token(t, "sub-1", "eva@example.com")

	// verified but never logged in
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/auth/me", tok, nil).Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/login", "", LoginRequest{Token: tok}).Code)
	acc, err := f.stores.Accounts.GetBySubject(context.Background(), "sub-1")
	require.NoError(t, err)
	org := &models.Organization{Name: "Club", CreatedBy: acc.ID, State: models.StatePending}
	require.NoError(t, f.stores.Organizations.Create(context.Background(), org))
	require.NoError(t, f.stores.Accounts.UpdateMembership(context.Background(), acc.ID, models.RoleOrganization, org.ID, false))

	w := f.do(http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User         map[string]any `json:"user"`
		Organization map[string]any `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "organization", resp.User["role"])
	assert.Equal(t, "Club", resp.Organization["name"])
	assert.Equal(t, false, resp.Organization["isApproved"])
}

func TestSavedEventsHidesUnapproved(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tok := f.token(t, "sub-1", "eva@example.com")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/auth/login", "", LoginRequest{Token: tok}).Code)
	acc, _ := f.stores.Accounts.GetBySubject(ctx, "sub-1")

	approved := &models.Event{Title: "Open day", CreatedBy: "someone", State: models.StateApproved}
	pending := &models.Event{Title: "Draft", CreatedBy: "someone", State: models.StatePending}
	require.NoError(t, f.stores.Events.Create(ctx, approved))
	require.NoError(t, f.stores.Events.Create(ctx, pending))
	require.NoError(t, f.stores.Accounts.SaveEvent(ctx, acc.ID, approved.ID))
	require.NoError(t, f.stores.Accounts.SaveEvent(ctx, acc.ID, pending.ID))

	w := f.do(http.MethodGet, "/auth/me/saved-events", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Open day", resp.Events[0]["title"])
}
