package task

import (
	"context"
	"fmt"

	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/pkg/types"
)

func ptr[T any](v T) *T {
	return &v
}

// seedTasks are created on first start so the adapter has something to show.
var seedTasks = []types.CreateTaskInput{
	{
		Title:       "Set up MCP architecture",
		Description: ptr("Implement the 4-component MCP system"),
		Priority:    types.TaskPriorityHigh,
	},
	{
		Title:       "Create backend API",
		Description: ptr("Build the backend with business logic"),
		Priority:    types.TaskPriorityCritical,
	},
	{
		Title:       "Implement MCP server",
		Description: ptr("Create MCP server following best practices"),
		Priority:    types.TaskPriorityHigh,
	},
	{
		Title:       "Build HTTP bridge",
		Description: ptr("Connect MCP to HTTP for web clients"),
		Priority:    types.TaskPriorityHigh,
	},
	{
		Title:       "Design frontend",
		Description: ptr("Create a web UI for task management"),
		Priority:    types.TaskPriorityMedium,
	},
}

// SeedIfEmpty inserts the seed tasks when the tasks table is empty.
// It returns the number of tasks created.
func (s *TaskService) SeedIfEmpty(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for i := range seedTasks {
		if _, err := s.CreateTask(ctx, &seedTasks[i]); err != nil {
			return i, fmt.Errorf("failed to seed tasks: %w", err)
		}
	}
	return len(seedTasks), nil
}
