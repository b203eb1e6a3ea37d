// Package events serves the public event directory and the organizer event endpoints.
package events

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

// UnknownOrganizer labels calendar entries whose organization is gone.
const UnknownOrganizer = "Unknown organizer"

// Handler handles event HTTP endpoints.
type Handler struct {
	stores   *store.Stores
	media    storage.Media
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewHandler creates an events handler. media may be nil when no bucket is configured.
func NewHandler(stores *store.Stores, media storage.Media, notifier notify.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{stores: stores, media: media, notifier: notifier, logger: logger}
}

// ListResponse is the paginated event listing.
type ListResponse struct {
	Events      []*models.Event `json:"events"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// List handles GET /events with the directory filters.
func (h *Handler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	filter.Approved = store.Bool(true)
	page := store.NewPage(utils.PageParams(c))

	ctx := c.Request.Context()
	events, total, err := h.stores.Events.List(ctx, filter, store.SortStartAsc, page)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := store.PopulateOrganizers(ctx, h.stores.Organizations, events); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	response.OK(c, ListResponse{Events: events, TotalPages: page.TotalPages(total), CurrentPage: page.Number})
}

// Calendar handles GET /events/calendar?start&end.
func (h *Handler) Calendar(c *gin.Context) {
	start, err := utils.QueryTime(c, "start")
	if err != nil {
		response.Error(c, h.logger, models.Invalid(err.Error()))
		return
	}
	end, err := utils.QueryTime(c, "end")
	if err != nil {
		response.Error(c, h.logger, models.Invalid(err.Error()))
		return
	}
	filter := store.EventFilter{Approved: store.Bool(true), StartFrom: start, EndUntil: end}

	ctx := c.Request.Context()
	events, _, err := h.stores.Events.List(ctx, filter, store.SortStartAsc, store.Unpaged())
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if err := store.PopulateOrganizers(ctx, h.stores.Organizations, events); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	entries := make([]models.CalendarEntry, 0, len(events))
	for _, e := range events {
		organizer := UnknownOrganizer
		if e.Organizer != nil {
			organizer = e.Organizer.Name
		}
		entries = append(entries, models.CalendarEntry{
			ID:    e.ID,
			Title: e.Title,
			Start: e.StartDate,
			End:   e.EndDate,
			ExtendedProps: models.CalendarProps{
				Location:  e.Location.City,
				Type:      e.EventType,
				Organizer: organizer,
			},
		})
	}
	response.OK(c, entries)
}

// Get handles GET /events/:id. Unapproved events are shown to their creator and admins only.
func (h *Handler) Get(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	if !moderation.Visible(ev.State, middleware.CurrentAccount(c), ev.OwnerAccountID()) {
		response.Forbidden(c, "Event not approved yet")
		return
	}
	single := []*models.Event{ev}
	if err := store.PopulateOrganizers(c.Request.Context(), h.stores.Organizations, single); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, ev)
}

// Create handles POST /events. The event belongs to the organization the caller owns.
func (h *Handler) Create(c *gin.Context) {
	acc := middleware.CurrentAccount(c)
	if d := policy.AuthorizeEventWrite(acc, nil); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	org, err := h.stores.Organizations.GetByOwner(ctx, acc.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "Organization not found")
			return
		}
		response.Error(c, h.logger, err)
		return
	}

	ev := req.Event()
	ev.OrganizerID = org.ID
	ev.CreatedBy = acc.ID
	ev.State = moderation.Initial(acc.Role)
	if problems := ev.Validate(); len(problems) > 0 {
		response.Error(c, h.logger, models.Invalid(problems...))
		return
	}
	if err := h.stores.Events.Create(ctx, ev); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if !ev.State.Approved() {
		h.submitted(ctx, ev, acc)
	}
	response.Created(c, ev)
}

// Update handles PUT /events/:id. Any edit by a non-admin sends the event back to review.
func (h *Handler) Update(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	acc := middleware.CurrentAccount(c)
	if d := policy.AuthorizeEventWrite(acc, ev); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	patch := req.Patch()
	merged := *ev
	patch.Apply(&merged)
	if problems := merged.Validate(); len(problems) > 0 {
		response.Error(c, h.logger, models.Invalid(problems...))
		return
	}

	var statePtr *models.ModerationState
	if next, changed := moderation.Edit(ev.State, acc.Role); changed {
		statePtr = &next
	}
	ctx := c.Request.Context()
	updated, err := h.stores.Events.Update(ctx, ev.ID, patch, statePtr)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if statePtr != nil {
		h.submitted(ctx, updated, acc)
	}
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id. Images stored in the media bucket are removed best effort.
func (h *Handler) Delete(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	if d := policy.AuthorizeEventWrite(middleware.CurrentAccount(c), ev); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	ctx := c.Request.Context()
	if err := h.stores.Events.Delete(ctx, ev.ID); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.deleteImages(ctx, ev)
	response.OK(c, response.Message{Message: "Event deleted successfully"})
}

// Save handles POST /events/:id/save.
func (h *Handler) Save(c *gin.Context) {
	h.toggleSaved(c, true)
}

// Unsave handles DELETE /events/:id/save.
func (h *Handler) Unsave(c *gin.Context) {
	h.toggleSaved(c, false)
}

func (h *Handler) toggleSaved(c *gin.Context, save bool) {
	acc := middleware.CurrentAccount(c)
	if d := policy.Authorize(acc, models.AllRoles, nil); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	ctx := c.Request.Context()
	if save {
		ev, ok := h.load(c)
		if !ok {
			return
		}
		if !moderation.Visible(ev.State, acc, ev.OwnerAccountID()) {
			response.NotFound(c, "Event not found")
			return
		}
		if err := h.stores.Accounts.SaveEvent(ctx, acc.ID, ev.ID); err != nil {
			response.Error(c, h.logger, err)
			return
		}
	} else if err := h.stores.Accounts.UnsaveEvent(ctx, acc.ID, c.Param("id")); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	updated, err := h.stores.Accounts.GetByID(ctx, acc.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	saved := updated.SavedEvents
	if saved == nil {
		saved = []string{}
	}
	response.OK(c, gin.H{"savedEvents": saved})
}

// UploadURLRequest is the body for POST /events/:id/images/upload-url.
type UploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	Filename    string `json:"filename"`
}

// UploadURLResponse tells the client where to PUT the image and the URL to store in images.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// ImageUploadURL handles POST /events/:id/images/upload-url.
func (h *Handler) ImageUploadURL(c *gin.Context) {
	ev, ok := h.load(c)
	if !ok {
		return
	}
	if d := policy.AuthorizeEventWrite(middleware.CurrentAccount(c), ev); !d.Allowed {
		response.Error(c, h.logger, d.Err())
		return
	}
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "contentType is required")
		return
	}
	if _, ok := storage.AllowedImageTypes[req.ContentType]; !ok {
		response.BadRequest(c, "contentType must be a jpeg, png, webp or gif image")
		return
	}
	key := storage.EventImageKey(ev.ID, req.ContentType, req.Filename)
	url, expires, err := h.media.PresignPut(c.Request.Context(), key, req.ContentType)
	if err != nil {
		response.Error(c, h.logger, errors.Join(models.ErrUpstream, err))
		return
	}
	response.OK(c, UploadURLResponse{
		UploadURL: url,
		Key:       key,
		PublicURL: h.media.PublicURL(key),
		ExpiresIn: int(expires.Seconds()),
	})
}

func (h *Handler) deleteImages(ctx context.Context, ev *models.Event) {
	if h.media == nil {
		return
	}
	for _, img := range ev.Images {
		key, ok := h.media.KeyFromURL(img)
		if !ok {
			continue
		}
		if err := h.media.Delete(ctx, key); err != nil {
			h.logger.Warn("event image not deleted", zap.String("event_id", ev.ID), zap.String("key", key), zap.Error(err))
		}
	}
}

func (h *Handler) submitted(ctx context.Context, ev *models.Event, actor *models.Account) {
	h.notifier.Publish(ctx, notify.Notice{
		Entity:   notify.EntityEvent,
		EntityID: ev.ID,
		Title:    ev.Title,
		OwnerID:  ev.OwnerAccountID(),
		ActorID:  actor.ID,
		Action:   moderation.ActionSubmit,
		At:       time.Now().UTC(),
	})
}

func (h *Handler) load(c *gin.Context) (*models.Event, bool) {
	ev, err := h.stores.Events.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "Event not found")
		} else {
			response.Error(c, h.logger, err)
		}
		return nil, false
	}
	return ev, true
}
