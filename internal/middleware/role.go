package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/policy"
	"github.com/campus-events/backend/pkg/response"
)

// RequireRoles returns a middleware that admits only accounts holding one of roles.
// Ownership is checked by handlers once the entity is loaded.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := policy.Authorize(CurrentAccount(c), roles, nil); !d.Allowed {
			response.Error(c, nil, d.Err())
			c.Abort()
			return
		}
		c.Next()
	}
}
