// Package types defines the wire types shared by the task backend, its HTTP client and the MCP adapter.
package types

import "fmt"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

// TaskPriorities lists every valid priority from least to most urgent.
var TaskPriorities = []TaskPriority{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityCritical,
}

// Field length bounds enforced by the backend.
const (
	TitleMinLength       = 1
	TitleMaxLength       = 200
	DescriptionMaxLength = 1000
)

// Pagination bounds enforced by the backend list endpoint.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ValidateTaskStatus converts the input into a TaskStatus.
// An empty input is returned as-is so callers can treat it as "not set".
func ValidateTaskStatus(s string) (TaskStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, v := range TaskStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported task status: %s", s)
}

// ValidateTaskPriority converts the input into a TaskPriority.
// An empty input is returned as-is so callers can treat it as "not set".
func ValidateTaskPriority(p string) (TaskPriority, error) {
	if p == "" {
		return "", nil
	}
	for _, v := range TaskPriorities {
		if string(v) == p {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported task priority: %s", p)
}

// Task is a task as returned by the backend.
// Timestamps are kept as strings so that any ISO-8601 flavour the backend emits round-trips untouched.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status"`
	AssigneeID  *int64       `json:"assignee_id"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *string      `json:"due_date"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

// CreateTaskInput is the body accepted by the backend's create endpoint.
type CreateTaskInput struct {
	Title       string       `json:"title" binding:"required,min=1,max=200"`
	Description *string      `json:"description" binding:"omitempty,max=1000"`
	AssigneeID  *int64       `json:"assignee_id"`
	Priority    TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	DueDate     *string      `json:"due_date"`
}

// TaskUpdate is a partial update. A nil field means "leave unchanged".
type TaskUpdate struct {
	Title       *string       `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string       `json:"description,omitempty" binding:"omitempty,max=1000"`
	Status      *TaskStatus   `json:"status,omitempty" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	AssigneeID  *int64        `json:"assignee_id,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty" binding:"omitempty,oneof=low medium high critical"`
	DueDate     *string       `json:"due_date,omitempty"`
}

// TaskFilter holds the optional filters of the list endpoint.
type TaskFilter struct {
	Status     TaskStatus   `form:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	AssigneeID *int64       `form:"assignee_id"`
	Priority   TaskPriority `form:"priority" binding:"omitempty,oneof=low medium high critical"`
	Limit      int          `form:"limit,default=50" binding:"min=1,max=100"`
	Offset     int          `form:"offset,default=0" binding:"min=0"`
}

// TaskList is one page of tasks.
type TaskList struct {
	Tasks   []Task `json:"tasks"`
	Total   int64  `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
}

// DeleteTaskResult is the body returned by the backend after a successful delete.
type DeleteTaskResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TaskMetrics summarises the task table.
type TaskMetrics struct {
	Timeframe           string           `json:"timeframe"`
	TotalTasks          int64            `json:"total_tasks"`
	ByStatus            map[string]int64 `json:"by_status"`
	ByPriority          map[string]int64 `json:"by_priority"`
	CompletionRate      float64          `json:"completion_rate"`
	AverageTasksPerUser float64          `json:"average_tasks_per_user"`
}

// Timeframes accepted by the metrics endpoint.
var Timeframes = []string{"day", "week", "month", "year"}

// DefaultTimeframe is used when the caller does not ask for one.
const DefaultTimeframe = "week"
