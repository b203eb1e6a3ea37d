package organizations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"github.com/campus-events/backend/pkg/storage"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeMedia struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

const mediaPrefix = "https://media.test/"

func (m *fakeMedia) PresignPut(_ context.Context, key, _ string) (string, time.Duration, error) {
	return mediaPrefix + key + "?signed", 15 * time.Minute, nil
}

func (m *fakeMedia) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	_, _ = io.Copy(io.Discard, body)
	m.objects[key] = contentType
	return mediaPrefix + key, nil
}

func (m *fakeMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *fakeMedia) PublicURL(key string) string { return mediaPrefix + key }

func (m *fakeMedia) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, mediaPrefix)
	return key, ok && key != ""
}

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
	media    *fakeMedia
	notices  *notices
}

func newFixture(t *testing.T, withMedia bool) *fixture {
	t.Helper()
	f := &fixture{
		stores:   memstore.New(),
		verifier: auth.NewLocalVerifier("test-secret", 1),
		notices:  &notices{},
	}
	var media storage.Media
	if withMedia {
		f.media = &fakeMedia{}
		media = f.media
	}
	h := NewHandler(f.stores, media, f.notices, zap.NewNop())

	verify := auth.Subjects(f.verifier)
	authn := middleware.Authenticate(verify, f.stores.Accounts, zap.NewNop())
	optional := middleware.OptionalAuthenticate(verify, f.stores.Accounts, zap.NewNop())
	organizer := middleware.RequireRoles(policy.OrganizerOrAdmin...)

	r := gin.New()
	r.GET("/organizations", h.List)
	r.GET("/organizations/:id", optional, h.Get)
	r.GET("/organizations/:id/events", optional, h.Events)
	r.POST("/organizations", authn, h.Create)
	r.PUT("/organizations/:id", authn, organizer, h.Update)
	r.POST("/organizations/:id/logo", authn, organizer, h.UploadLogo)
	f.router = r
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
		Name: name, Description: name + " description", ContactEmail: "contact@example.com",
		Address: models.Address{City: "Brno"}, CreatedBy: owner.ID, State: state,
	}
	require.NoError(t, f.stores.Organizations.Create(context.Background(), o))
	return o
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

func validCreate() CreateOrganizationRequest {
	return CreateOrganizationRequest{
		Name:         "Robotics Club",
		Description:  "We build robots",
		ContactEmail: "robots@example.com",
		Address:      models.Address{City: "Ostrava"},
	}
}

func TestCreateByStudentPromotesAndPends(t *testing.T) {
	f := newFixture(t, false)
	student, tok := f.account(t, "stu", models.RoleStudent, true)

	w := f.do(http.MethodPost, "/organizations", tok, validCreate())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, false, created["isApproved"])
	assert.Equal(t, student.ID, created["createdBy"])

	acc, err := f.stores.Accounts.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganization, acc.Role)
	assert.False(t, acc.Approved)
	require.NotNil(t, acc.OrganizationID)
	assert.Equal(t, created["id"], *acc.OrganizationID)

	require.Len(t, f.notices.got, 1)
	assert.Equal(t, moderation.ActionSubmit, f.notices.got[0].Action)
	assert.Equal(t, notify.EntityOrganization, f.notices.got[0].Entity)

	// one organization per owner
	w = f.do(http.MethodPost, "/organizations", tok, validCreate())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateByAdminIsApproved(t *testing.T) {
	f := newFixture(t, false)
	admin, tok := f.account(t, "adm", models.RoleAdmin, true)

	w := f.do(http.MethodPost, "/organizations", tok, validCreate())
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["isApproved"])

	acc, err := f.stores.Accounts.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, acc.Role)
	assert.True(t, acc.Approved)
	assert.NotNil(t, acc.OrganizationID)
	assert.Empty(t, f.notices.got)
}

func TestCreateRejects(t *testing.T) {
	f := newFixture(t, false)
	_, tok := f.account(t, "stu", models.RoleStudent, true)

	req := validCreate()
	req.Address.City = ""
	w := f.do(http.MethodPost, "/organizations", tok, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "address.city is required")

	w = f.do(http.MethodPost, "/organizations", tok, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// verified identity that never logged in
	ghost, err := f.verifier.Issue(auth.Identity{Subject: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/organizations", ghost, validCreate())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/organizations", "", validCreate())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListShowsApprovedOnly(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < 12; i++ {
		owner, _ := f.account(t, fmt.Sprintf("owner-%02d", i), models.RoleOrganization, true)
		f.org(t, owner, fmt.Sprintf("Club %02d", i), models.StateApproved)
	}
	pendingOwner, _ := f.account(t, "pending-owner", models.RoleOrganization, false)
	f.org(t, pendingOwner, "Club Pending", models.StatePending)

	w := f.do(http.MethodGet, "/organizations?page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ListResponse](t, w)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.CurrentPage)
	require.Len(t, resp.Organizations, 5)
	assert.Equal(t, "Club 05", resp.Organizations[0].Name)

	w = f.do(http.MethodGet, "/organizations?search=pending", "", nil)
	resp = decode[ListResponse](t, w)
	assert.Empty(t, resp.Organizations)
	assert.Zero(t, resp.TotalPages)

	w = f.do(http.MethodGet, "/organizations?page=9", "", nil)
	resp = decode[ListResponse](t, w)
	assert.NotNil(t, resp.Organizations)
	assert.Empty(t, resp.Organizations)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t, false)
	owner, ownerTok := f.account(t, "owner", models.RoleOrganization, false)
	_, adminTok := f.account(t, "adm", models.RoleAdmin, true)
	_, otherTok := f.account(t, "other", models.RoleStudent, true)
	o := f.org(t, owner, "Chess Club", models.StateRejected)

	path := "/organizations/" + o.ID
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, path, otherTok, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, path, ownerTok, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, path, adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/organizations/missing", "", nil).Code)
}

func TestEventsOfOrganization(t *testing.T) {
	f := newFixture(t, false)
	owner, ownerTok := f.account(t, "owner", models.RoleOrganization, true)
	o := f.org(t, owner, "Chess Club", models.StateApproved)
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	for i, state := range []models.ModerationState{models.StateApproved, models.StatePending, models.StateApproved} {
		e := &models.Event{
			Title: fmt.Sprintf("Round %d", i), Description: "d", ShortDescription: "s",
			StartDate: start.AddDate(0, 0, i), EndDate: start.AddDate(0, 0, i).Add(time.Hour),
			Location: models.Location{City: "Brno"}, EventType: "competition",
			OrganizerID: o.ID, CreatedBy: owner.ID, State: state,
		}
		require.NoError(t, f.stores.Events.Create(context.Background(), e))
	}

	w := f.do(http.MethodGet, "/organizations/"+o.ID+"/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[EventsResponse](t, w)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "Round 0", resp.Events[0].Title)
	require.NotNil(t, resp.Events[0].Organizer)
	assert.Equal(t, "Chess Club", resp.Events[0].Organizer.Name)

	w = f.do(http.MethodGet, "/organizations/"+o.ID+"/events", ownerTok, nil)
	assert.Len(t, decode[EventsResponse](t, w).Events, 3)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/organizations/nope/events", "", nil).Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, false)
	owner, ownerTok := f.account(t, "owner", models.RoleOrganization, true)
	_, adminTok := f.account(t, "adm", models.RoleAdmin, true)
	intruder, intruderTok := f.account(t, "intruder", models.RoleOrganization, true)
	_, studentTok := f.account(t, "stu", models.RoleStudent, true)
	f.org(t, intruder, "Intruder Club", models.StateApproved)
	o := f.org(t, owner, "Chess Club", models.StateApproved)
	path := "/organizations/" + o.ID

	// admin edits keep the approval
	w := f.do(http.MethodPut, path, adminTok, map[string]string{"website": "https://chess.example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["isApproved"])
	assert.Empty(t, f.notices.got)

	// owner edits send it back to review; unknown fields are ignored
	w = f.do(http.MethodPut, path, ownerTok, map[string]any{"description": "Blitz on Fridays", "isApproved": true, "createdBy": intruder.ID})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, false, body["isApproved"])
	assert.Equal(t, owner.ID, body["createdBy"])
	assert.Equal(t, "Blitz on Fridays", body["description"])
	assert.Equal(t, "https://chess.example.com", body["website"])
	require.Len(t, f.notices.got, 1)
	assert.Equal(t, moderation.ActionSubmit, f.notices.got[0].Action)

	w = f.do(http.MethodPut, path, intruderTok, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"not-owner"`)

	w = f.do(http.MethodPut, path, studentTok, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"insufficient-role"`)

	w = f.do(http.MethodPut, path, ownerTok, map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/organizations/missing", ownerTok, map[string]string{}).Code)
}

func TestUpdateByUnapprovedOwnerIsAllowed(t *testing.T) {
	f := newFixture(t, false)
	owner, tok := f.account(t, "owner", models.RoleOrganization, false)
	o := f.org(t, owner, "Chess Club", models.StateRejected)

	w := f.do(http.MethodPut, "/organizations/"+o.ID, tok, map[string]string{"description": "fixed"})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := f.stores.Organizations.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, got.State)
}

func multipartFile(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(path, token, filename string, t *testing.T) *httptest.ResponseRecorder {
	body, contentType := multipartFile(t, filename, []byte("\x89PNG fake image"))
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadLogo(t *testing.T) {
	f := newFixture(t, true)
	owner, tok := f.account(t, "owner", models.RoleOrganization, true)
	o := f.org(t, owner, "Chess Club", models.StateApproved)
	o.Logo = mediaPrefix + "organizations/" + o.ID + "/logo-old.png"
	logo := o.Logo
	_, err := f.stores.Organizations.Update(context.Background(), o.ID, models.OrganizationPatch{Logo: &logo}, nil)
	require.NoError(t, err)

	w := f.upload("/organizations/"+o.ID+"/logo", tok, "logo.png", t)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	newLogo, _ := body["logo"].(string)
	assert.True(t, strings.HasPrefix(newLogo, mediaPrefix+"organizations/"+o.ID+"/logo-"))
	assert.Equal(t, false, body["isApproved"])

	require.Len(t, f.media.objects, 1)
	for _, ct := range f.media.objects {
		assert.Equal(t, "image/png", ct)
	}
	assert.Equal(t, []string{"organizations/" + o.ID + "/logo-old.png"}, f.media.deleted)

	w = f.upload("/organizations/"+o.ID+"/logo", tok, "notes.pdf", t)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadLogoWithoutStorage(t *testing.T) {
	f := newFixture(t, false)
	owner, tok := f.account(t, "owner", models.RoleOrganization, true)
	o := f.org(t, owner, "Chess Club", models.StateApproved)

	w := f.upload("/organizations/"+o.ID+"/logo", tok, "logo.png", t)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
