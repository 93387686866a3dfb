package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskmcp/taskmcp/internal"
	"go.uber.org/zap"
)

// requireAPIKey rejects requests that don't carry the configured API key as a bearer token.
// It lets everything through when no key is configured.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key in Authorization header"})
			return
		}
		if !internal.APIKeyMatches(strings.TrimSpace(token), s.apiKey) {
			s.logger.Warn("rejected request with invalid api key", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}
