package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/uniportal/ecms-api/internal/models"
	appErrors "github.com/uniportal/ecms-api/pkg/errors"
	"github.com/uniportal/ecms-api/pkg/response"
)

// RequireRoles blocks requests whose session role is not in the allow list.
// This is a coarse gate only; per-complaint visibility is enforced by the
// scope filter inside the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.SessionClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is shorthand for the admin-only gate.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
