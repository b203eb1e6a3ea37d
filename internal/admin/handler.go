// Package admin serves the moderation and user management endpoints.
package admin

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
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/response"
)

// Handler handles admin HTTP endpoints. Every route is mounted behind RequireRoles(admin).
type Handler struct {
	stores   *store.Stores
	notifier notify.Publisher
	logger   *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(stores *store.Stores, notifier notify.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Handler{stores: stores, notifier: notifier, logger: logger}
}

// RoleRequest is the body for PUT /admin/users/:id/role.
type RoleRequest struct {
	Role string `json:"role"`
}

type transition func(models.ModerationState, *models.Account) (models.ModerationState, error)

// Organizations handles GET /admin/organizations: every organization by name.
func (h *Handler) Organizations(c *gin.Context) {
	h.listOrganizations(c, store.OrganizationFilter{}, store.SortNameAsc)
}

// PendingOrganizations handles GET /admin/pending-organizations: unapproved organizations, newest first.
func (h *Handler) PendingOrganizations(c *gin.Context) {
	h.listOrganizations(c, store.OrganizationFilter{Approved: store.Bool(false)}, store.SortCreatedDesc)
}

func (h *Handler) listOrganizations(c *gin.Context, filter store.OrganizationFilter, sort store.Sort) {
	orgs, _, err := h.stores.Organizations.List(c.Request.Context(), filter, sort, store.Unpaged())
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if orgs == nil {
		orgs = []*models.Organization{}
	}
	response.OK(c, orgs)
}

// ApproveOrganization handles PUT /admin/organizations/:id/approve. The owning account is approved too.
func (h *Handler) ApproveOrganization(c *gin.Context) {
	h.moderateOrganization(c, moderation.Approve, moderation.ActionApprove)
}

// RejectOrganization handles PUT /admin/organizations/:id/reject. The owning account is left as is.
func (h *Handler) RejectOrganization(c *gin.Context) {
	h.moderateOrganization(c, moderation.Reject, moderation.ActionReject)
}

func (h *Handler) moderateOrganization(c *gin.Context, move transition, action moderation.Action) {
	ctx := c.Request.Context()
	org, err := h.stores.Organizations.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c, err, "Organization not found")
		return
	}
	actor := middleware.CurrentAccount(c)
	next, err := move(org.State, actor)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	updated, err := h.stores.Organizations.SetState(ctx, org.ID, next)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if action == moderation.ActionApprove {
		if err := h.stores.Accounts.SetApproved(ctx, updated.OwnerAccountID(), true); err != nil && !errors.Is(err, models.ErrNotFound) {
			response.Error(c, h.logger, err)
			return
		}
	}
	h.logger.Info("organization moderated",
		zap.String("organization_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("admin_id", actor.ID),
	)
	h.publish(ctx, notify.EntityOrganization, updated.ID, updated.Name, updated.OwnerAccountID(), actor, action)
	response.OK(c, updated)
}

// Events handles GET /admin/events: every event, latest start first.
func (h *Handler) Events(c *gin.Context) {
	h.listEvents(c, store.EventFilter{}, store.SortStartDesc)
}

// PendingEvents handles GET /admin/pending-events: unapproved events, newest first.
func (h *Handler) PendingEvents(c *gin.Context) {
	h.listEvents(c, store.EventFilter{Approved: store.Bool(false)}, store.SortCreatedDesc)
}

func (h *Handler) listEvents(c *gin.Context, filter store.EventFilter, sort store.Sort) {
	ctx := c.Request.Context()
	events, _, err := h.stores.Events.List(ctx, filter, sort, store.Unpaged())
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
	response.OK(c, events)
}

// ApproveEvent handles PUT /admin/events/:id/approve.
func (h *Handler) ApproveEvent(c *gin.Context) {
	h.moderateEvent(c, moderation.Approve, moderation.ActionApprove)
}

// RejectEvent handles PUT /admin/events/:id/reject.
func (h *Handler) RejectEvent(c *gin.Context) {
	h.moderateEvent(c, moderation.Reject, moderation.ActionReject)
}

func (h *Handler) moderateEvent(c *gin.Context, move transition, action moderation.Action) {
	ctx := c.Request.Context()
	ev, err := h.stores.Events.GetByID(ctx, c.Param("id"))
	if err != nil {
		h.notFound(c, err, "Event not found")
		return
	}
	actor := middleware.CurrentAccount(c)
	next, err := move(ev.State, actor)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	updated, err := h.stores.Events.SetState(ctx, ev.ID, next)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	h.logger.Info("event moderated",
		zap.String("event_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("admin_id", actor.ID),
	)
	h.publish(ctx, notify.EntityEvent, updated.ID, updated.Title, updated.OwnerAccountID(), actor, action)
	response.OK(c, updated)
}

// Users handles GET /admin/users: every account, newest first.
func (h *Handler) Users(c *gin.Context) {
	users, err := h.stores.Accounts.List(c.Request.Context())
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	if users == nil {
		users = []*models.Account{}
	}
	response.OK(c, users)
}

// UpdateUserRole handles PUT /admin/users/:id/role. Only the role changes.
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid role")
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "Invalid role")
		return
	}
	acc, err := h.stores.Accounts.UpdateRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		h.notFound(c, err, "User not found")
		return
	}
	h.logger.Info("account role changed",
		zap.String("account_id", acc.ID),
		zap.String("role", string(role)),
		zap.String("admin_id", middleware.CurrentAccount(c).ID),
	)
	response.OK(c, acc)
}

func (h *Handler) publish(ctx context.Context, entity, id, title, ownerID string, actor *models.Account, action moderation.Action) {
	h.notifier.Publish(ctx, notify.Notice{
		Entity:   entity,
		EntityID: id,
		Title:    title,
		OwnerID:  ownerID,
		ActorID:  actor.ID,
		Action:   action,
		At:       time.Now().UTC(),
	})
}

func (h *Handler) notFound(c *gin.Context, err error, msg string) {
	if errors.Is(err, models.ErrNotFound) {
		response.NotFound(c, msg)
		return
	}
	response.Error(c, h.logger, err)
}
