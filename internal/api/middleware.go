package api

import (
	"net/http"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	sessionContextKey = "session"
	sessionHeader     = "X-Session-Token"
)

func sessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader(sessionHeader))
}

// requireSession rejects requests without a valid session token
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := h.auth.Resolve(c.Request.Context(), sessionToken(c))
		if err != nil {
			h.writeError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// requireAdmin must run after requireSession
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireAdmin(currentSession(c)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *models.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, _ := v.(*models.Session)
	return session
}
