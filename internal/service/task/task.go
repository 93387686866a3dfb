// Package task provides the business logic of the reference task backend.
package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/taskmcp/taskmcp/internal/model"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTaskNotFound is returned when the addressed task does not exist.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError reports input the backend refuses to store.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// TaskService provides methods to manage tasks.
type TaskService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTaskService(db *gorm.DB, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{db: db, logger: logger}
}

// CreateTask stores a new pending task.
func (s *TaskService) CreateTask(ctx context.Context, in *types.CreateTaskInput) (*model.Task, error) {
	t := model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      types.TaskStatusPending,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
	}
	if t.Priority == "" {
		t.Priority = types.TaskPriorityMedium
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		t.DueDate = &due
	}

	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.logger.Debug("task created", zap.Int64("id", t.ID))
	return &t, nil
}

// GetTask returns the task with the given id.
func (s *TaskService) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ListTasks returns one page of the tasks matching the filter, ordered by id.
func (s *TaskService) ListTasks(ctx context.Context, f *types.TaskFilter) (*types.TaskList, error) {
	q := s.db.WithContext(ctx).Model(&model.Task{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var rows []model.Task
	if err := q.Order("id").Offset(f.Offset).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	list := &types.TaskList{
		Tasks:   make([]types.Task, 0, len(rows)),
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: int64(f.Offset+f.Limit) < total,
	}
	for i := range rows {
		list.Tasks = append(list.Tasks, rows[i].ToAPI())
	}
	return list, nil
}

// Changes is a validated partial update keyed by column name. A nil value clears the column.
type Changes map[string]any

// nullableFields are the only fields a caller may clear with an explicit null.
var nullableFields = []string{"description", "assignee_id", "due_date"}

// NewChanges builds the column changes of a partial update.
// nulls lists the fields the caller explicitly set to null.
func NewChanges(u *types.TaskUpdate, nulls []string) (Changes, error) {
	c := Changes{}
	if u.Title != nil {
		c["title"] = *u.Title
	}
	if u.Description != nil {
		c["description"] = *u.Description
	}
	if u.Status != nil {
		c["status"] = *u.Status
	}
	if u.Priority != nil {
		c["priority"] = *u.Priority
	}
	if u.AssigneeID != nil {
		c["assignee_id"] = *u.AssigneeID
	}
	if u.DueDate != nil {
		due, err := parseDueDate(*u.DueDate)
		if err != nil {
			return nil, err
		}
		c["due_date"] = due
	}

	for _, field := range nulls {
		if !slices.Contains(nullableFields, field) {
			return nil, &ValidationError{Msg: fmt.Sprintf("%s may not be null", field)}
		}
		c[field] = nil
	}
	return c, nil
}

// UpdateTask applies changes to a task and returns the updated row.
// The update time is refreshed even when there is nothing to change.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, changes Changes) (*model.Task, error) {
	var t model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		cols := make(map[string]any, len(changes)+1)
		for k, v := range changes {
			cols[k] = v
		}
		cols["updated_at"] = time.Now().UTC()
		if err := tx.Model(&t).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&t, id).Error
	})
	if errors.Is(err, ErrTaskNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

// DeleteTask removes a task.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// BulkUpdateTasks applies the same changes to every task in ids, in order.
// A task that cannot be updated is reported in the result and does not stop the others.
func (s *TaskService) BulkUpdateTasks(ctx context.Context, ids []int64, changes Changes) *types.BulkOperationResult {
	res := &types.BulkOperationResult{Results: make([]types.BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		_, err := s.UpdateTask(ctx, id, changes)
		switch {
		case err == nil:
			res.Add(types.BulkItemResult{ID: id, Status: types.BulkItemSuccess})
		case errors.Is(err, ErrTaskNotFound):
			res.Add(types.BulkItemResult{ID: id, Status: types.BulkItemError, Error: "Task not found"})
		default:
			s.logger.Warn("bulk update item failed", zap.Int64("id", id), zap.Error(err))
			res.Add(types.BulkItemResult{ID: id, Status: types.BulkItemError, Error: err.Error()})
		}
	}
	return res
}

// Metrics summarises the task table. The timeframe is echoed back and does not narrow the counts.
func (s *TaskService) Metrics(ctx context.Context, timeframe string) (*types.TaskMetrics, error) {
	db := s.db.WithContext(ctx)
	m := &types.TaskMetrics{
		Timeframe:  timeframe,
		ByStatus:   make(map[string]int64, len(types.TaskStatuses)),
		ByPriority: make(map[string]int64, len(types.TaskPriorities)),
	}
	for _, st := range types.TaskStatuses {
		m.ByStatus[string(st)] = 0
	}
	for _, p := range types.TaskPriorities {
		m.ByPriority[string(p)] = 0
	}

	type groupCount struct {
		Name  string
		Total int64
	}
	var byStatus, byPriority []groupCount
	if err := db.Model(&model.Task{}).Select("status AS name, COUNT(*) AS total").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	if err := db.Model(&model.Task{}).Select("priority AS name, COUNT(*) AS total").Group("priority").Scan(&byPriority).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	for _, g := range byStatus {
		m.ByStatus[g.Name] = g.Total
		m.TotalTasks += g.Total
	}
	for _, g := range byPriority {
		m.ByPriority[g.Name] = g.Total
	}

	var assignees int64
	if err := db.Model(&model.Task{}).Where("assignee_id IS NOT NULL").Distinct("assignee_id").Count(&assignees).Error; err != nil {
		return nil, fmt.Errorf("failed to count assignees: %w", err)
	}

	if m.TotalTasks > 0 {
		completed := m.ByStatus[string(types.TaskStatusCompleted)]
		m.CompletionRate = float64(completed) / float64(m.TotalTasks) * 100
	}
	if assignees > 0 {
		m.AverageTasksPerUser = float64(m.TotalTasks) / float64(assignees)
	}
	return m, nil
}

func parseDueDate(s string) (time.Time, error) {
	due, err := model.ParseDueDate(s)
	if err != nil {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("invalid due_date %q: expected an ISO-8601 date-time", s)}
	}
	return due, nil
}
