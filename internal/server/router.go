// Package server assembles the HTTP routes.
package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/admin"
	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/events"
	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/notify"
	"github.com/campus-events/backend/internal/organizations"
	"github.com/campus-events/backend/internal/policy"
	"github.com/campus-events/backend/internal/realtime"
	"github.com/campus-events/backend/internal/store"
	"github.com/campus-events/backend/pkg/response"
	"github.com/campus-events/backend/pkg/storage"
)

// Deps are the collaborators the routes are built from. Media and Hub may be nil.
type Deps struct {
	Stores         *store.Stores
	Verifier       auth.Verifier
	Media          storage.Media
	Notifier       notify.Publisher
	Hub            *realtime.Hub
	BasePath       string
	AllowedOrigins string
	Logger         *zap.Logger
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewRouter returns the gin engine serving the whole API.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	verify := auth.Subjects(d.Verifier)
	authn := middleware.Authenticate(verify, d.Stores.Accounts, logger)
	optional := middleware.OptionalAuthenticate(verify, d.Stores.Accounts, logger)
	organizer := middleware.RequireRoles(policy.OrganizerOrAdmin...)

	authHandler := auth.NewHandler(d.Verifier, auth.NewDirectory(d.Stores.Accounts, logger), d.Stores, logger)
	eventHandler := events.NewHandler(d.Stores, d.Media, d.Notifier, logger)
	orgHandler := organizations.NewHandler(d.Stores, d.Media, d.Notifier, logger)
	adminHandler := admin.NewHandler(d.Stores, d.Notifier, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, HealthResponse{Status: "ok", Message: "Server is running"})
	})

	api := router.Group(d.BasePath)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", authn, authHandler.Me)
		authGroup.GET("/me/saved-events", authn, authHandler.SavedEvents)
	}

	eventGroup := api.Group("/events")
	{
		eventGroup.GET("", eventHandler.List)
		eventGroup.GET("/calendar", eventHandler.Calendar)
		eventGroup.GET("/:id", optional, eventHandler.Get)
		eventGroup.POST("", authn, organizer, eventHandler.Create)
		eventGroup.PUT("/:id", authn, organizer, eventHandler.Update)
		eventGroup.DELETE("/:id", authn, organizer, eventHandler.Delete)
		eventGroup.POST("/:id/save", authn, eventHandler.Save)
		eventGroup.DELETE("/:id/save", authn, eventHandler.Unsave)
		eventGroup.POST("/:id/images/upload-url", authn, organizer, eventHandler.ImageUploadURL)
	}

	orgGroup := api.Group("/organizations")
	{
		orgGroup.GET("", orgHandler.List)
		orgGroup.GET("/:id", optional, orgHandler.Get)
		orgGroup.GET("/:id/events", optional, orgHandler.Events)
		orgGroup.POST("", authn, orgHandler.Create)
		orgGroup.PUT("/:id", authn, organizer, orgHandler.Update)
		orgGroup.POST("/:id/logo", authn, organizer, orgHandler.UploadLogo)
	}

	// The feed authenticates through the query string, so it sits outside the admin group.
	if d.Hub != nil {
		feed := realtime.NewFeedHandler(d.Hub, middleware.AccountLookup(verify, d.Stores.Accounts), splitOrigins(d.AllowedOrigins), logger)
		api.GET("/admin/feed", feed.Serve)
	}

	adminGroup := api.Group("/admin", authn, middleware.RequireRoles(policy.AdminOnly...))
	{
		adminGroup.GET("/organizations", adminHandler.Organizations)
		adminGroup.GET("/pending-organizations", adminHandler.PendingOrganizations)
		adminGroup.PUT("/organizations/:id/approve", adminHandler.ApproveOrganization)
		adminGroup.PUT("/organizations/:id/reject", adminHandler.RejectOrganization)
		adminGroup.GET("/events", adminHandler.Events)
		adminGroup.GET("/pending-events", adminHandler.PendingEvents)
		adminGroup.PUT("/events/:id/approve", adminHandler.ApproveEvent)
		adminGroup.PUT("/events/:id/reject", adminHandler.RejectEvent)
		adminGroup.GET("/users", adminHandler.Users)
		adminGroup.PUT("/users/:id/role", adminHandler.UpdateUserRole)
	}

	return router
}

// splitOrigins turns the CORS setting into the feed's origin allowlist; "*" allows any origin.
func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
