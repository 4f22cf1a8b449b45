package middleware

import (
	"errors"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const ContextChurchID = "church_id"

// RequirePermission gates a route on one permission key for the caller's
// church. Runs after AuthRequired: the user id comes from the token, the
// church from the user row, and the permission set from the read-through
// resolver.
func RequirePermission(db *gorm.DB, permissions *services.PermissionService, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			response.Unauthorized(c, "sign-in required")
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Unauthorized(c, "account no longer exists")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		if user.ChurchID == nil {
			response.Forbidden(c, "you must belong to a church")
			c.Abort()
			return
		}

		allowed, err := permissions.Check(c.Request.Context(), userID, *user.ChurchID, key)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !allowed {
			response.Forbidden(c, "missing permission: "+key)
			c.Abort()
			return
		}

		c.Set(ContextChurchID, *user.ChurchID)
		c.Next()
	}
}

// GetChurchID gets the caller's church id set by RequirePermission.
func GetChurchID(c *gin.Context) uint {
	if id, exists := c.Get(ContextChurchID); exists {
		return id.(uint)
	}
	return 0
}
