package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/moderation"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/response"
)

// LoginRequest is the body for POST /auth/login. Either field carries the ID token.
type LoginRequest struct {
	Token      string `json:"token"`
	Credential string `json:"credential"`
}

// LoginResponse wraps the resolved account.
type LoginResponse struct {
	User *models.Account `json:"user"`
}

// MeResponse is the body of GET /auth/me.
type MeResponse struct {
	User         *models.Account      `json:"user"`
	Organization *models.Organization `json:"organization"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	verifier  Verifier
	directory *Directory
	stores    *store.Stores
	logger    *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(verifier Verifier, directory *Directory, stores *store.Stores, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{verifier: verifier, directory: directory, stores: stores, logger: logger}
}

// Login handles POST /auth/login: verifies the ID token and returns the account, creating it on first login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	credential := req.Token
	if credential == "" {
		credential = req.Credential
	}
	if credential == "" {
		response.BadRequest(c, "token is required")
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), credential)
	if err != nil {
		if errors.Is(err, models.ErrUnauthenticated) {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		response.Error(c, h.logger, err)
		return
	}

	acc, err := h.directory.ResolveOrCreate(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, LoginResponse{User: acc})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	acc := middleware.CurrentAccount(c)
	if acc == nil {
		response.NotFound(c, "user not found, please log in first")
		return
	}
	out := MeResponse{User: acc}
	if acc.OrganizationID != nil {
		org, err := h.stores.Organizations.GetByID(c.Request.Context(), *acc.OrganizationID)
		switch {
		case err == nil:
			out.Organization = org
		case errors.Is(err, models.ErrNotFound):
		default:
			response.Error(c, h.logger, err)
			return
		}
	}
	response.OK(c, out)
}

// SavedEvents handles GET /auth/me/saved-events. Events no longer visible to the account are skipped.
func (h *Handler) SavedEvents(c *gin.Context) {
	acc := middleware.CurrentAccount(c)
	if acc == nil {
		response.NotFound(c, "user not found, please log in first")
		return
	}
	events, err := h.stores.Events.GetByIDs(c.Request.Context(), acc.SavedEvents)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	visible := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if moderation.Visible(e.State, acc, e.OwnerAccountID()) {
			visible = append(visible, e)
		}
	}
	response.OK(c, gin.H{"events": visible})
}
