package mcp

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSprintDuration = "14"
	defaultTeamCapacity   = "100"
)

// promptTemplate is the description and message template of one prompt.
type promptTemplate struct {
	description *template.Template
	message     *template.Template
	// defaults fills in missing arguments before rendering
	defaults map[string]string
}

var promptSources = map[string]struct {
	description string
	message     string
	defaults    map[string]string
}{
	PromptProjectPlanning: {
		description: `Project planning assistant for: {{.project_description}}`,
		message: `I need help planning a project: {{.project_description}}

Please help me:
1. Break down the project into major milestones
2. Create specific tasks for each milestone
3. Suggest priorities and timelines
4. Identify potential dependencies between tasks

You can use the following tools:
- search_tasks: to see existing tasks
- create_task: to create new tasks
- update_task: to modify existing tasks

And these resources:
- task://list: to view all current tasks
- task://metrics: to see task analytics
- task://pending: to see pending tasks`,
	},
	PromptTaskPrioritization: {
		description: `Task prioritization assistant`,
		message: `Please help me prioritize my tasks.

Use the task://list resource to see all current tasks, then suggest:
1. Which tasks should be done first (urgent and important)
2. Which tasks can be delegated or deferred
3. Any tasks that might be blocking others
4. A recommended order of execution

Consider factors like:
- Task dependencies
- Business impact
- Resource availability
- Deadlines

You can use the update_task tool to change task priorities and the bulk_update_tasks tool to update multiple tasks at once.`,
	},
	PromptDailyStandup: {
		description: `Daily standup report generator{{template "qualifier" .}}`,
		message: `Generate a daily standup report{{template "qualifier" .}}.

Please analyze the tasks and provide:
1. What was completed yesterday (completed tasks)
2. What is planned for today (in_progress and high-priority pending tasks)
3. Any blockers or concerns (critical priority items, overdue tasks)

Use these resources:
- task://completed: to see completed tasks
- task://pending: to see pending tasks
- task://metrics: to get overall metrics

Format the report in a clear, concise manner suitable for a team standup meeting.`,
	},
	PromptSprintPlanning: {
		description: `Sprint planning for {{.sprint_duration}} days with {{.team_capacity}} story points capacity`,
		message: `Help me plan a sprint:
- Duration: {{.sprint_duration}} days
- Team capacity: {{.team_capacity}} story points

Please:
1. Review pending tasks using task://pending
2. Analyze task priorities and dependencies
3. Recommend which tasks to include in the sprint
4. Ensure the selected tasks fit within the team capacity
5. Identify any risks or dependencies

Use the search_tasks tool to filter tasks by priority and status.
Use the update_task or bulk_update_tasks tools to mark selected tasks for the sprint.

Provide a sprint plan with:
- Sprint goals
- Selected tasks with priorities
- Risk assessment
- Success criteria`,
		defaults: map[string]string{
			"sprint_duration": defaultSprintDuration,
			"team_capacity":   defaultTeamCapacity,
		},
	},
}

// qualifierTemplate renders " for assignee <id>" only when an assignee was given.
const qualifierTemplate = `{{define "qualifier"}}{{with .assignee_id}} for assignee {{.}}{{end}}{{end}}`

// Renderer turns a prompt name and its arguments into the messages handed to the agent.
// It holds parsed templates only and is safe for concurrent use.
type Renderer struct {
	templates map[string]*promptTemplate
}

// NewRenderer parses every prompt template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*promptTemplate, len(promptSources))}
	for name, src := range promptSources {
		desc, err := parsePromptTemplate(name+".description", src.description)
		if err != nil {
			return nil, err
		}
		msg, err := parsePromptTemplate(name+".message", src.message)
		if err != nil {
			return nil, err
		}
		r.templates[name] = &promptTemplate{description: desc, message: msg, defaults: src.defaults}
	}
	return r, nil
}

func parsePromptTemplate(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(qualifierTemplate + text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return t, nil
}

// Render renders a prompt. An unknown name yields a placeholder result instead of an error.
func (r *Renderer) Render(name string, args map[string]string) (*mcp.GetPromptResult, error) {
	pt, ok := r.templates[name]
	if !ok {
		return mcp.NewGetPromptResult(
			"Unknown prompt",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("Unknown prompt requested: "+name)),
			},
		), nil
	}

	data := make(map[string]string, len(args)+len(pt.defaults))
	for k, v := range args {
		if strings.TrimSpace(v) != "" {
			data[k] = v
		}
	}
	for k, v := range pt.defaults {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}

	desc, err := execute(pt.description, data)
	if err != nil {
		return nil, err
	}
	msg, err := execute(pt.message, data)
	if err != nil {
		return nil, err
	}

	return mcp.NewGetPromptResult(
		desc,
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(msg))},
	), nil
}

func execute(t *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
