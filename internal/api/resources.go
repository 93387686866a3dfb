package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

func (s *Server) listResourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.mcpService.ListResources())
	}
}

// readResourceHandler returns the resource document as-is.
// Query parameters other than uri are forwarded as list filters.
func (s *Server) readResourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		uri := c.Query("uri")
		if uri == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'uri' query parameter"})
			return
		}

		var filters map[string]any
		for k, v := range c.Request.URL.Query() {
			if k == "uri" || len(v) == 0 {
				continue
			}
			if filters == nil {
				filters = make(map[string]any)
			}
			filters[k] = v[0]
		}

		doc := s.mcpService.ReadResource(c.Request.Context(), uri, filters)
		c.Data(http.StatusOK, jsonContentType, []byte(doc))
	}
}
