package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/internal/notify"
	"github.com/campus-events/backend/internal/policy"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/internal/store/memstore"
)

func init() { gin.SetMode(gin.TestMode) }

type notices struct {
	mu  sync.Mutex
	got []notify.Notice
}

func (n *notices) Publish(_ context.Context, notice notify.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notice)
}

type fixture struct {
	router   *gin.Engine
	stores   *store.Stores
	verifier *auth.LocalVerifier
	notices  *notices
	admin    *models.Account
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stores:   memstore.New(),
		verifier: auth.NewLocalVerifier("test-secret", 1),
		notices:  &notices{},
	}
	h := NewHandler(f.stores, f.notices, zap.NewNop())
	verify := auth.Subjects(f.verifier)

	r := gin.New()
	g := r.Group("/admin",
		middleware.Authenticate(verify, f.stores.Accounts, zap.NewNop()),
		middleware.RequireRoles(policy.AdminOnly...),
	)
	g.GET("/organizations", h.Organizations)
	g.GET("/pending-organizations", h.PendingOrganizations)
	g.PUT("/organizations/:id/approve", h.ApproveOrganization)
	g.PUT("/organizations/:id/reject", h.RejectOrganization)
	g.GET("/events", h.Events)
	g.GET("/pending-events", h.PendingEvents)
	g.PUT("/events/:id/approve", h.ApproveEvent)
	g.PUT("/events/:id/reject", h.RejectEvent)
	g.GET("/users", h.Users)
	g.PUT("/users/:id/role", h.UpdateUserRole)
	f.router = r

	f.admin, f.token = f.account(t, "root", models.RoleAdmin, true)
	return f
}

func (f *fixture) account(t *testing.T, subject string, role models.Role, approved bool) (*models.Account, string) {
	t.Helper()
	acc := &models.Account{SubjectID: subject, Email: subject + "@example.com", Name: subject, Role: role, Approved: approved}
	require.NoError(t, f.stores.Accounts.Create(context.Background(), acc))
	tok, err := f.verifier.Issue(auth.Identity{Subject: subject, Email: acc.Email})
	require.NoError(t, err)
	return acc, tok
}

func (f *fixture) org(t *testing.T, owner *models.Account, name string, state models.ModerationState) *models.Organization {
	t.Helper()
	o := &models.Organization{
		Name: name, Description: "d", ContactEmail: "c@example.com",
		Address: models.Address{City: "Brno"}, CreatedBy: owner.ID, State: state,
	}
	require.NoError(t, f.stores.Organizations.Create(context.Background(), o))
	return o
}

func (f *fixture) event(t *testing.T, o *models.Organization, title string, start time.Time, state models.ModerationState) *models.Event {
	t.Helper()
	e := &models.Event{
		Title: title, Description: "d", ShortDescription: "s",
		StartDate: start, EndDate: start.Add(time.Hour),
		Location: models.Location{City: "Brno"}, EventType: "lecture",
		AgeRange: models.AgeRange{Min: 0, Max: 100}, Price: models.DefaultPrice(),
		OrganizerID: o.ID, CreatedBy: o.CreatedBy, State: state,
		Images: []string{}, Tags: []string{},
	}
	require.NoError(t, f.stores.Events.Create(context.Background(), e))
	return e
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

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type wireEntity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	IsApproved bool   `json:"isApproved"`
	Organizer  *struct {
		Name string `json:"name"`
	} `json:"organizer"`
}

func TestRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, orgTok := f.account(t, "club", models.RoleOrganization, true)
	_, studentTok := f.account(t, "stu", models.RoleStudent, true)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/admin/users", "", nil).Code)
	for _, tok := range []string{orgTok, studentTok} {
		w := f.do(http.MethodGet, "/admin/users", tok, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), `"reason":"insufficient-role"`)
	}
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users", f.token, nil).Code)
}

func TestOrganizationLists(t *testing.T) {
	f := newFixture(t)
	a, _ := f.account(t, "a", models.RoleOrganization, true)
	b, _ := f.account(t, "b", models.RoleOrganization, false)
	c, _ := f.account(t, "c", models.RoleOrganization, false)
	f.org(t, a, "Zeta Club", models.StateApproved)
	f.org(t, b, "Alpha Club", models.StatePending)
	f.org(t, c, "Mid Club", models.StateRejected)

	all := decode[[]wireEntity](t, f.do(http.MethodGet, "/admin/organizations", f.token, nil))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Alpha Club", "Mid Club", "Zeta Club"}, []string{all[0].Name, all[1].Name, all[2].Name})

	pending := decode[[]wireEntity](t, f.do(http.MethodGet, "/admin/pending-organizations", f.token, nil))
	names := []string{}
	for _, o := range pending {
		names = append(names, o.Name)
		assert.False(t, o.IsApproved)
	}
	assert.ElementsMatch(t, []string{"Alpha Club", "Mid Club"}, names)
}

func TestApproveOrganizationApprovesOwner(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.account(t, "club", models.RoleOrganization, false)
	o := f.org(t, owner, "Robotics", models.StatePending)

	w := f.do(http.MethodPut, "/admin/organizations/"+o.ID+"/approve", f.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[wireEntity](t, w).IsApproved)

	acc, err := f.stores.Accounts.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.True(t, acc.Approved)

	require.Len(t, f.notices.got, 1)
	n := f.notices.got[0]
	assert.Equal(t, notify.EntityOrganization, n.Entity)
	assert.Equal(t, moderation.ActionApprove, n.Action)
	assert.Equal(t, owner.ID, n.OwnerID)
	assert.Equal(t, f.admin.ID, n.ActorID)
}

func TestRejectOrganization(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.account(t, "club", models.RoleOrganization, true)
	o := f.org(t, owner, "Robotics", models.StateApproved)

	w := f.do(http.MethodPut, "/admin/organizations/"+o.ID+"/reject", f.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[wireEntity](t, w).IsApproved)

	stored, err := f.stores.Organizations.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, stored.State)

	acc, err := f.stores.Accounts.GetByID(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.True(t, acc.Approved, "reject leaves the owner untouched")

	// rejection is not terminal
	w = f.do(http.MethodPut, "/admin/organizations/"+o.ID+"/approve", f.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[wireEntity](t, w).IsApproved)

	w = f.do(http.MethodPut, "/admin/organizations/missing/approve", f.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Organization not found")
}

func TestEventLists(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.account(t, "club", models.RoleOrganization, true)
	o := f.org(t, owner, "Robotics", models.StateApproved)
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	f.event(t, o, "first", base, models.StateApproved)
	f.event(t, o, "second", base.AddDate(0, 0, 1), models.StatePending)
	f.event(t, o, "third", base.AddDate(0, 0, 2), models.StateRejected)

	all := decode[[]wireEntity](t, f.do(http.MethodGet, "/admin/events", f.token, nil))
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{all[0].Title, all[1].Title, all[2].Title})
	require.NotNil(t, all[0].Organizer)
	assert.Equal(t, "Robotics", all[0].Organizer.Name)

	pending := decode[[]wireEntity](t, f.do(http.MethodGet, "/admin/pending-events", f.token, nil))
	titles := []string{}
	for _, e := range pending {
		titles = append(titles, e.Title)
	}
	assert.ElementsMatch(t, []string{"second", "third"}, titles)
}

func TestModerateEvent(t *testing.T) {
	f := newFixture(t)
	owner, _ := f.account(t, "club", models.RoleOrganization, true)
	o := f.org(t, owner, "Robotics", models.StateApproved)
	ev := f.event(t, o, "Hackday", time.Now().Add(24*time.Hour), models.StatePending)

	w := f.do(http.MethodPut, "/admin/events/"+ev.ID+"/approve", f.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[wireEntity](t, w).IsApproved)

	w = f.do(http.MethodPut, "/admin/events/"+ev.ID+"/reject", f.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[wireEntity](t, w).IsApproved)

	require.Len(t, f.notices.got, 2)
	assert.Equal(t, moderation.ActionApprove, f.notices.got[0].Action)
	assert.Equal(t, moderation.ActionReject, f.notices.got[1].Action)
	assert.Equal(t, notify.EntityEvent, f.notices.got[1].Entity)
	assert.Equal(t, "Hackday", f.notices.got[1].Title)

	w = f.do(http.MethodPut, "/admin/events/missing/reject", f.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Event not found")
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	f.account(t, "stu", models.RoleStudent, true)

	users := decode[[]models.Account](t, f.do(http.MethodGet, "/admin/users", f.token, nil))
	assert.Len(t, users, 2)
}

func TestUpdateUserRole(t *testing.T) {
	f := newFixture(t)
	stu, _ := f.account(t, "stu", models.RoleStudent, true)
	path := "/admin/users/" + stu.ID + "/role"

	w := f.do(http.MethodPut, path, f.token, RoleRequest{Role: "organization"})
	require.Equal(t, http.StatusOK, w.Code)
	acc := decode[models.Account](t, w)
	assert.Equal(t, models.RoleOrganization, acc.Role)
	assert.True(t, acc.Approved, "role edits leave approval alone")
	assert.Nil(t, acc.OrganizationID)

	w = f.do(http.MethodPut, path, f.token, RoleRequest{Role: "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid role")

	w = f.do(http.MethodPut, "/admin/users/missing/role", f.token, RoleRequest{Role: "admin"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "User not found")
}
