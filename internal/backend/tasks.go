package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/taskmcp/taskmcp/internal/service/task"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
)

func (s *Server) createTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.CreateTaskInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		t, err := s.taskService.CreateTask(c.Request.Context(), &input)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, t.ToAPI())
	}
}

func (s *Server) getTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskID(c)
		if !ok {
			return
		}

		t, err := s.taskService.GetTask(c.Request.Context(), id)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, t.ToAPI())
	}
}

func (s *Server) listTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter types.TaskFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		list, err := s.taskService.ListTasks(c.Request.Context(), &filter)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (s *Server) updateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskID(c)
		if !ok {
			return
		}

		// the body is bound twice: once for the typed fields, once to see which keys are explicit nulls
		var update types.TaskUpdate
		if err := c.ShouldBindBodyWith(&update, binding.JSON); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		var raw map[string]json.RawMessage
		if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		changes, err := task.NewChanges(&update, nullFields(raw))
		if err != nil {
			s.writeError(c, err)
			return
		}

		t, err := s.taskService.UpdateTask(c.Request.Context(), id, changes)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, t.ToAPI())
	}
}

func (s *Server) deleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskID(c)
		if !ok {
			return
		}

		if err := s.taskService.DeleteTask(c.Request.Context(), id); err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, &types.DeleteTaskResult{
			Success: true,
			Message: fmt.Sprintf("Task %d deleted", id),
		})
	}
}

func (s *Server) bulkUpdateTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.BulkUpdateRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		var raw struct {
			Update map[string]json.RawMessage `json:"update"`
		}
		if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}

		changes, err := task.NewChanges(&req.Update, nullFields(raw.Update))
		if err != nil {
			s.writeError(c, err)
			return
		}

		res := s.taskService.BulkUpdateTasks(c.Request.Context(), req.TaskIDs, changes)
		s.logger.Info(
			"bulk update finished",
			zap.Int("total", res.Total),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
		)
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) metricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		timeframe := c.DefaultQuery("timeframe", types.DefaultTimeframe)
		if !slices.Contains(types.Timeframes, timeframe) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"detail": fmt.Sprintf("unsupported timeframe: %s (acceptable values: %v)", timeframe, types.Timeframes),
			})
			return
		}

		m, err := s.taskService.Metrics(c.Request.Context(), timeframe)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// taskID parses the :id path parameter. On failure it writes the 422 response itself.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "task id must be an integer"})
		return 0, false
	}
	return id, true
}

// writeError maps a task service error to its HTTP status.
func (s *Server) writeError(c *gin.Context, err error) {
	var vErr *task.ValidationError
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": vErr.Msg})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

// updateFields are the keys of a partial update body. Other keys are ignored, null or not.
var updateFields = []string{"title", "description", "status", "assignee_id", "priority", "due_date"}

// nullFields returns the update fields of a JSON object whose value is an explicit null, sorted.
func nullFields(raw map[string]json.RawMessage) []string {
	var nulls []string
	for k, v := range raw {
		if string(v) == "null" && slices.Contains(updateFields, k) {
			nulls = append(nulls, k)
		}
	}
	sort.Strings(nulls)
	return nulls
}
