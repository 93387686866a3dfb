package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskmcp/taskmcp/pkg/types"
)

func (s *Server) listToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.mcpService.ListTools())
	}
}

func (s *Server) getToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'name' query parameter"})
			return
		}

		tool, err := s.mcpService.GetTool(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tool)
	}
}

// invokeToolHandler runs a tool call on a one-off session.
// The envelope is returned with status 200 even when the call failed: success and error_kind carry the outcome.
func (s *Server) invokeToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ToolInvokeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		env := s.mcpService.InvokeTool(c.Request.Context(), input.Name, input.Arguments)
		c.JSON(http.StatusOK, env)
	}
}
