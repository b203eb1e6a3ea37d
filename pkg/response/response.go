package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
)

// ErrorBody is the error response envelope. Success responses carry the payload as-is.
type ErrorBody struct {
	Error   string   `json:"error"`
	Reason  string   `json:"reason,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Message is a plain {"message": ...} body.
type Message struct {
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: err})
}

// Invalid sends 400 with the individual validation problems.
func Invalid(c *gin.Context, problems []string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid input", Details: problems})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, ErrorBody{Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, ErrorBody{Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: err})
}

type denial interface {
	error
	DenialReason() string
}

// Error maps err onto the error taxonomy and writes the matching response.
// Unclassified errors are logged and answered with a generic 500.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	var d denial
	if errors.As(err, &d) {
		status := http.StatusForbidden
		if errors.Is(err, models.ErrUnauthenticated) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, ErrorBody{Error: d.Error(), Reason: d.DenialReason()})
		return
	}
	var v *models.ValidationError
	if errors.As(err, &v) {
		Invalid(c, v.Problems)
		return
	}
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		Unauthorized(c, "authentication required")
	case errors.Is(err, models.ErrForbidden):
		Forbidden(c, "insufficient permissions")
	case errors.Is(err, models.ErrNotFound):
		NotFound(c, "not found")
	case errors.Is(err, models.ErrInvalidInput):
		BadRequest(c, "invalid input")
	case errors.Is(err, models.ErrConflict):
		Conflict(c, "conflict")
	case errors.Is(err, models.ErrUpstream):
		if logger != nil {
			logger.Warn("upstream failure", zap.Error(err), zap.String("path", c.Request.URL.Path))
		}
		ServiceUnavailable(c, "service temporarily unavailable")
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		}
		Internal(c, "internal server error")
	}
}
