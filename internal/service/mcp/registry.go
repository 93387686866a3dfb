package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/taskmcp/taskmcp/pkg/types"
)

// Tool names advertised by the adapter.
const (
	ToolCreateTask      = "create_task"
	ToolUpdateTask      = "update_task"
	ToolDeleteTask      = "delete_task"
	ToolBulkUpdateTasks = "bulk_update_tasks"
	ToolSearchTasks     = "search_tasks"
)

// Resource URIs advertised by the adapter.
const (
	ResourceList      = "task://list"
	ResourceGet       = "task://get/{id}"
	ResourceMetrics   = "task://metrics"
	ResourcePending   = "task://pending"
	ResourceCompleted = "task://completed"
)

// Prompt names advertised by the adapter.
const (
	PromptProjectPlanning    = "project_planning"
	PromptTaskPrioritization = "task_prioritization"
	PromptDailyStandup       = "daily_standup"
	PromptSprintPlanning     = "sprint_planning"
)

const jsonMediaType = "application/json"

// Registry is the static description of every tool, resource and prompt the adapter exposes.
// It is built once and never mutated, so it is safe to share between sessions.
// Callers must treat the returned descriptors as read-only.
type Registry struct {
	tools     []mcp.Tool
	resources []types.ResourceDescriptor
	prompts   []mcp.Prompt
}

// NewRegistry builds the registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     buildTools(),
		resources: buildResources(),
		prompts:   buildPrompts(),
	}
}

// ListTools returns the tools in a fixed order.
func (r *Registry) ListTools() []mcp.Tool {
	return slices.Clone(r.tools)
}

// ListResources returns the resources in a fixed order.
func (r *Registry) ListResources() []types.ResourceDescriptor {
	return slices.Clone(r.resources)
}

// ListPrompts returns the prompts in a fixed order.
func (r *Registry) ListPrompts() []mcp.Prompt {
	return slices.Clone(r.prompts)
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (mcp.Tool, bool) {
	i := slices.IndexFunc(r.tools, func(t mcp.Tool) bool { return t.Name == name })
	if i < 0 {
		return mcp.Tool{}, false
	}
	return r.tools[i], true
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (mcp.Prompt, bool) {
	i := slices.IndexFunc(r.prompts, func(p mcp.Prompt) bool { return p.Name == name })
	if i < 0 {
		return mcp.Prompt{}, false
	}
	return r.prompts[i], true
}

func statusValues() []string {
	out := make([]string, len(types.TaskStatuses))
	for i, s := range types.TaskStatuses {
		out[i] = string(s)
	}
	return out
}

func priorityValues() []string {
	out := make([]string, len(types.TaskPriorities))
	for i, p := range types.TaskPriorities {
		out[i] = string(p)
	}
	return out
}

// withInteger adds an integer property. mcp-go only ships a "number" helper,
// but task ids and pagination values are integers on the backend.
func withInteger(name string, opts ...mcp.PropertyOption) mcp.ToolOption {
	return func(t *mcp.Tool) {
		schema := map[string]any{"type": "integer"}
		for _, opt := range opts {
			opt(schema)
		}
		if required, ok := schema["required"].(bool); ok && required {
			delete(schema, "required")
			t.InputSchema.Required = append(t.InputSchema.Required, name)
		}
		t.InputSchema.Properties[name] = schema
	}
}

func format(f string) mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["format"] = f
	}
}

func buildTools() []mcp.Tool {
	titleOpts := func(desc string, extra ...mcp.PropertyOption) []mcp.PropertyOption {
		return append([]mcp.PropertyOption{
			mcp.Description(desc),
			mcp.MinLength(types.TitleMinLength),
			mcp.MaxLength(types.TitleMaxLength),
		}, extra...)
	}
	dueDate := mcp.WithString("due_date",
		mcp.Description("Due date for the task (ISO format)"),
		format("date-time"),
	)

	return []mcp.Tool{
		mcp.NewTool(ToolCreateTask,
			mcp.WithDescription("Create a new task in the task management system"),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("title", titleOpts("Task title (required)", mcp.Required())...),
			mcp.WithString("description",
				mcp.Description("Task description (optional)"),
				mcp.MaxLength(types.DescriptionMaxLength),
			),
			mcp.WithString("priority",
				mcp.Description("Task priority level"),
				mcp.Enum(priorityValues()...),
				mcp.DefaultString(string(types.TaskPriorityMedium)),
			),
			withInteger("assignee_id", mcp.Description("ID of the person assigned to the task")),
			dueDate,
		),
		mcp.NewTool(ToolUpdateTask,
			mcp.WithDescription("Update an existing task"),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			withInteger("task_id", mcp.Description("ID of the task to update"), mcp.Required()),
			mcp.WithString("title", titleOpts("New task title")...),
			mcp.WithString("description",
				mcp.Description("New task description"),
				mcp.MaxLength(types.DescriptionMaxLength),
			),
			mcp.WithString("status", mcp.Description("Task status"), mcp.Enum(statusValues()...)),
			mcp.WithString("priority", mcp.Description("Task priority"), mcp.Enum(priorityValues()...)),
			withInteger("assignee_id", mcp.Description("ID of the person assigned to the task")),
			dueDate,
		),
		mcp.NewTool(ToolDeleteTask,
			mcp.WithDescription("Delete a task from the system"),
			mcp.WithIdempotentHintAnnotation(true),
			withInteger("task_id", mcp.Description("ID of the task to delete"), mcp.Required()),
		),
		mcp.NewTool(ToolBulkUpdateTasks,
			mcp.WithDescription("Update multiple tasks at once"),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithArray("task_ids",
				mcp.Description("List of task IDs to update"),
				mcp.Items(map[string]any{"type": "integer"}),
				mcp.MinItems(1),
				mcp.Required(),
			),
			mcp.WithString("status", mcp.Description("New status for all tasks"), mcp.Enum(statusValues()...)),
			mcp.WithString("priority", mcp.Description("New priority for all tasks"), mcp.Enum(priorityValues()...)),
			withInteger("assignee_id", mcp.Description("New assignee for all tasks")),
			mcp.WithString("due_date",
				mcp.Description("New due date for all tasks (ISO format)"),
				format("date-time"),
			),
		),
		mcp.NewTool(ToolSearchTasks,
			mcp.WithDescription("Search and filter tasks"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("status", mcp.Description("Filter by status"), mcp.Enum(statusValues()...)),
			mcp.WithString("priority", mcp.Description("Filter by priority"), mcp.Enum(priorityValues()...)),
			withInteger("assignee_id", mcp.Description("Filter by assignee")),
			withInteger("limit",
				mcp.Description("Maximum number of results"),
				mcp.DefaultNumber(types.DefaultListLimit),
				mcp.Min(1),
				mcp.Max(types.MaxListLimit),
			),
			withInteger("offset",
				mcp.Description("Number of results to skip"),
				mcp.DefaultNumber(0),
				mcp.Min(0),
			),
		),
	}
}

func buildResources() []types.ResourceDescriptor {
	return []types.ResourceDescriptor{
		{
			URIPattern:  ResourceList,
			Name:        "Task List",
			Description: "Get a list of all tasks with optional filtering",
			MediaType:   jsonMediaType,
		},
		{
			URIPattern:  ResourceGet,
			Name:        "Get Task",
			Description: "Get a specific task by its ID",
			MediaType:   jsonMediaType,
		},
		{
			URIPattern:  ResourceMetrics,
			Name:        "Task Metrics",
			Description: "Get analytics and metrics about tasks",
			MediaType:   jsonMediaType,
		},
		{
			URIPattern:  ResourcePending,
			Name:        "Pending Tasks",
			Description: "Get all pending tasks",
			MediaType:   jsonMediaType,
		},
		{
			URIPattern:  ResourceCompleted,
			Name:        "Completed Tasks",
			Description: "Get all completed tasks",
			MediaType:   jsonMediaType,
		},
	}
}

func buildPrompts() []mcp.Prompt {
	return []mcp.Prompt{
		mcp.NewPrompt(PromptProjectPlanning,
			mcp.WithPromptDescription("Interactive project planning with task breakdown"),
			mcp.WithArgument("project_description",
				mcp.ArgumentDescription("Description of the project to plan"),
				mcp.RequiredArgument(),
			),
		),
		mcp.NewPrompt(PromptTaskPrioritization,
			mcp.WithPromptDescription("Help prioritize tasks based on impact and urgency"),
		),
		mcp.NewPrompt(PromptDailyStandup,
			mcp.WithPromptDescription("Generate a daily standup report from task data"),
			mcp.WithArgument("assignee_id",
				mcp.ArgumentDescription("ID of the team member (optional)"),
			),
		),
		mcp.NewPrompt(PromptSprintPlanning,
			mcp.WithPromptDescription("Plan a sprint with task selection and estimation"),
			mcp.WithArgument("sprint_duration",
				mcp.ArgumentDescription("Duration of the sprint in days"),
				mcp.RequiredArgument(),
			),
			mcp.WithArgument("team_capacity",
				mcp.ArgumentDescription("Team capacity in story points"),
				mcp.RequiredArgument(),
			),
		),
	}
}
