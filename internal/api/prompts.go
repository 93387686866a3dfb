package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskmcp/taskmcp/pkg/types"
)

func (s *Server) listPromptsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.mcpService.ListPrompts())
	}
}

func (s *Server) getPromptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'name' query parameter"})
			return
		}

		prompt, err := s.mcpService.GetPrompt(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, prompt)
	}
}

// renderPromptHandler renders a prompt with the given arguments.
// Unknown prompt names render the placeholder prompt rather than failing.
func (s *Server) renderPromptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.PromptRenderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := s.mcpService.RenderPrompt(input.Name, input.Arguments)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
