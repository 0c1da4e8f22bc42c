package middleware

import (
	"context"
	"net/http"
	"strings"

	"tamv/internal/service"

	"github.com/gin-gonic/gin"
)

// JWT requires a bearer token issued by the identity provider and stores
// its subject as "user_id".
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		userID, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// EnsureProfile creates the caller's profile on first sight. Runs after JWT.
func EnsureProfile(ensure func(ctx context.Context, userID string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := ensure(c.Request.Context(), userID); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
			return
		}
		c.Next()
	}
}
