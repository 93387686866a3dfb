package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/taskmcp/taskmcp/client"
	"github.com/taskmcp/taskmcp/internal/telemetry"
	"github.com/taskmcp/taskmcp/pkg/types"
	"go.uber.org/zap"
)

// TaskBackend is the part of the backend client used by the adapter.
// *client.Client implements it.
type TaskBackend interface {
	CreateTask(ctx context.Context, fields map[string]any) (*types.Task, error)
	GetTask(ctx context.Context, id string) (*types.Task, error)
	ListTasks(ctx context.Context, filters map[string]any) (*types.TaskList, error)
	UpdateTask(ctx context.Context, id string, fields map[string]any) (*types.Task, error)
	DeleteTask(ctx context.Context, id string) error
	BulkUpdateTasks(ctx context.Context, ids []any, update map[string]any) (*types.BulkOperationResult, error)
	GetMetrics(ctx context.Context, timeframe string) (*types.TaskMetrics, error)
	Close()
}

// toolOperation performs one tool call against the backend.
// A returned error is converted into a failure envelope by the Dispatcher.
type toolOperation func(d *Dispatcher, ctx context.Context, args map[string]any) (types.Envelope, error)

// toolOperations is the closed set of operations a tool name can map to.
var toolOperations = map[string]toolOperation{
	ToolCreateTask:      (*Dispatcher).createTask,
	ToolUpdateTask:      (*Dispatcher).updateTask,
	ToolDeleteTask:      (*Dispatcher).deleteTask,
	ToolBulkUpdateTasks: (*Dispatcher).bulkUpdateTasks,
	ToolSearchTasks:     (*Dispatcher).searchTasks,
}

// toolArguments lists, per tool, the argument names declared in its input schema.
var toolArguments = func() map[string][]string {
	out := make(map[string][]string)
	for _, tool := range buildTools() {
		names := make([]string, 0, len(tool.InputSchema.Properties))
		for k := range tool.InputSchema.Properties {
			names = append(names, k)
		}
		sort.Strings(names)
		out[tool.Name] = names
	}
	return out
}()

// checkArguments rejects arguments the tool does not declare. Tools whose payload is built
// from the caller's keys use it, so a misspelled or nested field fails instead of being ignored.
func checkArguments(tool string, args map[string]any) error {
	declared := toolArguments[tool]
	var unexpected []string
	for k := range args {
		if !slices.Contains(declared, k) {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) == 0 {
		return nil
	}
	sort.Strings(unexpected)
	return fmt.Errorf(
		"unexpected argument: %s (accepted: %s)",
		strings.Join(unexpected, ", "),
		strings.Join(declared, ", "),
	)
}

// transportFailureMessage is shown to callers instead of the underlying network error.
const transportFailureMessage = "API error: the task backend could not be reached"

// Dispatcher maps a tool invocation onto exactly one backend operation and wraps the outcome in an envelope.
type Dispatcher struct {
	backend TaskBackend
	logger  *zap.Logger
	metrics telemetry.CustomMetrics
}

// NewDispatcher creates a Dispatcher that sends its calls through the given backend.
func NewDispatcher(backend TaskBackend, logger *zap.Logger, metrics telemetry.CustomMetrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopCustomMetrics()
	}
	return &Dispatcher{backend: backend, logger: logger, metrics: metrics}
}

// Invoke executes a tool. It never returns an error: every outcome, including an unknown tool name,
// is reported through the envelope.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) types.Envelope {
	started := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	var env types.Envelope
	metricName := name

	op, ok := toolOperations[name]
	if !ok {
		metricName = "unknown"
		env = types.Failure(types.ErrorKindUnknownTool, fmt.Sprintf("Unknown tool: %s", name))
	} else {
		var err error
		env, err = op(d, ctx, args)
		if err != nil {
			env = d.failureFromError(name, err)
		}
	}

	outcome := telemetry.ToolCallOutcomeSuccess
	if !env.Success {
		outcome = telemetry.ToolCallOutcomeError
	}
	d.metrics.RecordToolCall(ctx, metricName, outcome, string(env.ErrorKind), time.Since(started))

	d.logger.Info(
		"tool call",
		zap.String("tool", name),
		zap.Bool("success", env.Success),
		zap.String("error_kind", string(env.ErrorKind)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return env
}

func (d *Dispatcher) createTask(ctx context.Context, args map[string]any) (types.Envelope, error) {
	task, err := d.backend.CreateTask(ctx, args)
	if err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{
		Success: true,
		Task:    task,
		Message: fmt.Sprintf("Task created successfully with ID: %d", task.ID),
	}, nil
}

func (d *Dispatcher) updateTask(ctx context.Context, args map[string]any) (types.Envelope, error) {
	id, err := requireID(args, "task_id")
	if err != nil {
		return types.Failure(types.ErrorKindValidation, err.Error()), nil
	}

	// only the keys the caller supplied are forwarded, an explicit null included
	task, err := d.backend.UpdateTask(ctx, id, withoutKey(args, "task_id"))
	if client.IsNotFound(err) {
		return notFound(id), nil
	}
	if err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{
		Success: true,
		Task:    task,
		Message: fmt.Sprintf("Task %s updated successfully", id),
	}, nil
}

func (d *Dispatcher) deleteTask(ctx context.Context, args map[string]any) (types.Envelope, error) {
	id, err := requireID(args, "task_id")
	if err != nil {
		return types.Failure(types.ErrorKindValidation, err.Error()), nil
	}

	err = d.backend.DeleteTask(ctx, id)
	if client.IsNotFound(err) {
		return notFound(id), nil
	}
	if err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{
		Success: true,
		Message: fmt.Sprintf("Task %s deleted successfully", id),
	}, nil
}

// bulkUpdateTasks submits one request for all ids. Items the backend could not update are reported
// inside the result, the call itself still succeeds.
func (d *Dispatcher) bulkUpdateTasks(ctx context.Context, args map[string]any) (types.Envelope, error) {
	if err := checkArguments(ToolBulkUpdateTasks, args); err != nil {
		return types.Failure(types.ErrorKindValidation, err.Error()), nil
	}
	ids, err := requireIDList(args, "task_ids")
	if err != nil {
		return types.Failure(types.ErrorKindValidation, err.Error()), nil
	}
	update := sanitizeArgs(args, "task_ids")
	if len(update) == 0 {
		return types.Failure(types.ErrorKindValidation, "no fields to update: set at least one of status, priority, assignee_id, due_date"), nil
	}

	result, err := d.backend.BulkUpdateTasks(ctx, ids, update)
	if err != nil {
		return types.Envelope{}, err
	}
	if err := result.Validate(); err != nil {
		d.logger.Warn("backend returned an inconsistent bulk result", zap.Error(err))
	}
	return types.Envelope{
		Success: true,
		Result:  result,
		Message: fmt.Sprintf("Updated %d out of %d tasks", result.Succeeded, result.Total),
	}, nil
}

func (d *Dispatcher) searchTasks(ctx context.Context, args map[string]any) (types.Envelope, error) {
	if err := checkArguments(ToolSearchTasks, args); err != nil {
		return types.Failure(types.ErrorKindValidation, err.Error()), nil
	}
	list, err := d.backend.ListTasks(ctx, sanitizeArgs(args))
	if err != nil {
		return types.Envelope{}, err
	}
	return types.Envelope{Success: true, Result: list}, nil
}

func notFound(id string) types.Envelope {
	return types.Failure(types.ErrorKindNotFound, fmt.Sprintf("Task %s not found", id))
}

// failureFromError converts a backend client error into a failure envelope.
func (d *Dispatcher) failureFromError(tool string, err error) types.Envelope {
	kind, msg := classifyError(err)
	if kind == types.ErrorKindTransport || kind == types.ErrorKindBackend {
		d.logger.Error("tool call failed", zap.String("tool", tool), zap.Error(err))
	}
	return types.Failure(kind, msg)
}

// classifyError maps an error returned by the backend client onto the error taxonomy and
// the message shown to the caller.
func classifyError(err error) (types.ErrorKind, string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return types.ErrorKindNotFound, msg
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return types.ErrorKindValidation, msg
		default:
			return types.ErrorKindBackend, fmt.Sprintf("API error: %s", msg)
		}
	}

	var tErr *client.TransportError
	if errors.As(err, &tErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.ErrorKindTransport, transportFailureMessage
	}

	return types.ErrorKindBackend, fmt.Sprintf("Internal error: %v", err)
}
