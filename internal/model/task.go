// Package model holds the database models of the reference task backend.
package model

import (
	"time"

	"github.com/taskmcp/taskmcp/pkg/types"
)

// timeLayout is how task timestamps are rendered on the wire.
const timeLayout = "2006-01-02T15:04:05Z07:00"

// Task is a row of the tasks table.
type Task struct {
	ID int64 `gorm:"primaryKey"`

	Title       string  `gorm:"size:200;not null"`
	Description *string `gorm:"size:1000"`

	Status     types.TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	Priority   types.TaskPriority `gorm:"type:varchar(20);not null;default:'medium';index"`
	AssigneeID *int64             `gorm:"index"`

	DueDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToAPI converts the row into its wire representation.
func (t *Task) ToAPI() types.Task {
	out := types.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   t.UpdatedAt.UTC().Format(timeLayout),
	}
	if t.DueDate != nil {
		d := t.DueDate.UTC().Format(timeLayout)
		out.DueDate = &d
	}
	return out
}

// dueDateLayouts are the ISO-8601 forms accepted for a due date, most specific first.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate parses an ISO-8601 due date. Values without a zone are taken as UTC.
func ParseDueDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
