package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/uniportal/ecms-api/internal/middleware"
	"github.com/uniportal/ecms-api/internal/models"
	"github.com/uniportal/ecms-api/internal/scope"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) scope.Actor {
	return scope.ActorFromClaims(claimsFromContext(c))
}
