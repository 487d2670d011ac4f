package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
	"github.com/freesideatlanta/member-portal/pkg/response"
)

// RequireAdmin allows only administrators through.
func RequireAdmin() gin.HandlerFunc {
	return authorize(false)
}

// AdminOrSelf allows administrators, and the person named by the :id path
// parameter acting on their own record.
func AdminOrSelf() gin.HandlerFunc {
	return authorize(true)
}

func authorize(allowSelf bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.Admin {
			c.Next()
			return
		}
		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
