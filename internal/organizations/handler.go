package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/internal/notify"
	"github.com/campus-events/backend/internal/policy"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/response"
	"github.com/campus-events/backend/pkg/storage"
	"github.com/campus-events/backend/pkg/utils"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	stores   *store.Stores
	media    storage.Media
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewHandler creates an organizations handler. media may be nil when no bucket is configured.
func NewHandler(stores *store.Stores, media storage.Media, notifier notify.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{stores: stores, media: media, notifier: notifier, logger: logger}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name         string             `json:"name" binding:"required"`
	Description  string             `json:"description" binding:"required"`
	Logo         string             `json:"logo"`
	ContactEmail string             `json:"contactEmail" binding:"required"`
	ContactPhone string             `json:"contactPhone"`
	Website      string             `json:"website"`
	Address      models.Address     `json:"address"`
	SocialMedia  models.SocialMedia `json:"socialMedia"`
}

// UpdateOrganizationRequest is the body for PUT /organizations/:id. Only these fields are editable;
// anything else in the body is ignored.
type UpdateOrganizationRequest struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	Logo         *string             `json:"logo"`
	ContactEmail *string             `json:"contactEmail"`
	ContactPhone *string             `json:"contactPhone"`
	Website      *string             `json:"website"`
	Address      *models.Address     `json:"address"`
	SocialMedia  *models.SocialMedia `json:"socialMedia"`
}

// Patch converts the request to a store patch.
func (r UpdateOrganizationRequest) Patch() models.OrganizationPatch {
	return models.OrganizationPatch{
		Name:         r.Name,
		Description:  r.Description,
		Logo:         r.Logo,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Website:      r.Website,
		Address:      r.Address,
		SocialMedia:  r.SocialMedia,
	}
}

// ListResponse is the paginated organization listing.
type ListResponse struct {
	Organizations []*models.Organization `json:"organizations"`
	TotalPages    int                    `json:"totalPages"`
	CurrentPage   int                    `json:"currentPage"`
}

// EventsResponse is the paginated listing of one organization's events.
type EventsResponse struct {
	Events      []*models.Event `json:"events"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// List handles GET /organizations: approved organizations by name, with optional search.
func (h *Handler) List(c *gin.Context) {
	page := store.NewPage(utils.PageParams(c))
	filter := store.OrganizationFilter{Approved: store.Bool(true), Search: c.Query("search")}
	orgs, total, err := h.stores.Organizations.List(c.Request.Context(), filter, store.SortNameAsc, page)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, ListResponse{
		Organizations: nonNil(orgs),
		TotalPages:    page.TotalPages(total),
		CurrentPage:   page.Number,
	})
}

// Get handles GET /organizations/:id. Unapproved organizations are shown to their owner and admins only.
func (h *Handler) Get(c *gin.Context) {
	org, ok := h.load(c)
	if !ok {
		return
	}
	if !moderation.Visible(org.State, middleware.CurrentAccount(c), org.OwnerAccountID()) {
		response.Forbidden(c, "Organization not approved yet")
		return
	}
	response.OK(c, org)
}

// Events handles GET /organizations/:id/events. Owner and admins also see unapproved events.
func (h *Handler) Events(c *gin.Context) {
	org, ok := h.load(c)
	if !ok {
		return
	}
	page := store.NewPage(utils.PageParams(c))
	filter := store.EventFilter{OrganizerID: org.ID}
	if !moderation.Privileged(middleware.CurrentAccount(c), org.OwnerAccountID()) {
		filter.Approved = store.Bool(true)
	}
	ctx := c.Request.Context()
	events, total, err := h.stores.Events.List(ctx, filter, store.SortStartAsc, page)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	summary := org.Summary()
	for _, e := range events {
		e.Organizer = summary
	}
	response.OK(c, EventsResponse{
		Events:      nonNil(events),
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Number,
	})
}

// Create handles POST /organizations. The creator becomes the owner; a non-admin creator is
// promoted to the organization role and waits for approval.
func (h *Handler) Create(c *gin.Context) {
	acc := middleware.CurrentAccount(c)
	if d := policy.Authorize(acc, models.AllRoles, nil); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	if _, err := h.stores.Organizations.GetByOwner(ctx, acc.ID); err == nil {
		response.Conflict(c, "user already has an organization")
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		response.Error(c, h.logger, err)
		return
	}

	org := &models.Organization{
		Name:         req.Name,
		Description:  req.Description,
		Logo:         req.Logo,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Website:      req.Website,
		Address:      req.Address,
		SocialMedia:  req.SocialMedia,
		CreatedBy:    acc.ID,
		State:        moderation.Initial(acc.Role),
	}
	if problems := org.Validate(); len(problems) > 0 {
		response.Error(c, h.logger, models.Invalid(problems...))
		return
	}
	if err := h.stores.Organizations.Create(ctx, org); err != nil {
		if errors.Is(err, models.ErrConflict) {
			response.Conflict(c, "user already has an organization")
			return
		}
		response.Error(c, h.logger, err)
		return
	}

	role, approved := models.RoleOrganization, org.State.Approved()
	if acc.Role == models.RoleAdmin {
		role, approved = models.RoleAdmin, true
	}
	if err := h.stores.Accounts.UpdateMembership(ctx, acc.ID, role, org.ID, approved); err != nil {
		h.logger.Error("organization created but owner not updated",
			zap.String("organization_id", org.ID),
			zap.String("account_id", acc.ID),
			zap.Error(err),
		)
		response.Error(c, h.logger, err)
		return
	}

	if !org.State.Approved() {
		h.submitted(ctx, org, acc)
	}
	response.Created(c, org)
}

// Update handles PUT /organizations/:id. Owner edits send the organization back to review.
func (h *Handler) Update(c *gin.Context) {
	org, ok := h.load(c)
	if !ok {
		return
	}
	acc := middleware.CurrentAccount(c)
	if d := policy.Authorize(acc, policy.OrganizerOrAdmin, org); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	updated, err := h.edit(c.Request.Context(), acc, org, req.Patch())
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, updated)
}

// UploadLogo handles POST /organizations/:id/logo (multipart field "file").
func (h *Handler) UploadLogo(c *gin.Context) {
	org, ok := h.load(c)
	if !ok {
		return
	}
	acc := middleware.CurrentAccount(c)
	if d := policy.Authorize(acc, policy.OrganizerOrAdmin, org); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if file.Size > storage.MaxImageSize {
		response.BadRequest(c, "file exceeds 5MB")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, file.Filename) {
		response.BadRequest(c, "logo must be a jpeg, png, webp or gif image")
		return
	}
	if _, ok := storage.AllowedImageTypes[contentType]; !ok {
		contentType = storage.ContentTypeForFilename(file.Filename)
	}
	body, err := file.Open()
	if err != nil {
		response.BadRequest(c, "cannot read file")
		return
	}
	defer body.Close()

	ctx := c.Request.Context()
	key := storage.LogoKey(org.ID, contentType, file.Filename)
	url, err := h.media.Upload(ctx, key, contentType, body, file.Size)
	if err != nil {
		response.Error(c, h.logger, errors.Join(models.ErrUpstream, err))
		return
	}
	updated, err := h.edit(ctx, acc, org, models.OrganizationPatch{Logo: &url})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if old, ok := h.media.KeyFromURL(org.Logo); ok && org.Logo != url {
		if err := h.media.Delete(ctx, old); err != nil {
			h.logger.Warn("old logo not deleted", zap.String("key", old), zap.Error(err))
		}
	}
	response.OK(c, updated)
}

// edit validates the merged result and writes patch together with the moderation consequence.
func (h *Handler) edit(ctx context.Context, actor *models.Account, org *models.Organization, patch models.OrganizationPatch) (*models.Organization, error) {
	merged := *org
	patch.Apply(&merged)
	if problems := merged.Validate(); len(problems) > 0 {
		return nil, models.Invalid(problems...)
	}
	var statePtr *models.ModerationState
	if next, changed := moderation.Edit(org.State, actor.Role); changed {
		statePtr = &next
	}
	updated, err := h.stores.Organizations.Update(ctx, org.ID, patch, statePtr)
	if err != nil {
		return nil, err
	}
	if statePtr != nil {
		h.submitted(ctx, updated, actor)
	}
	return updated, nil
}

func (h *Handler) submitted(ctx context.Context, org *models.Organization, actor *models.Account) {
	h.notifier.Publish(ctx, notify.Notice{
		Entity:   notify.EntityOrganization,
		EntityID: org.ID,
		Title:    org.Name,
		OwnerID:  org.OwnerAccountID(),
		ActorID:  actor.ID,
		Action:   moderation.ActionSubmit,
		At:       time.Now().UTC(),
	})
}

func (h *Handler) load(c *gin.Context) (*models.Organization, bool) {
	org, err := h.stores.Organizations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "Organization not found")
		} else {
			response.Error(c, h.logger, err)
		}
		return nil, false
	}
	return org, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
