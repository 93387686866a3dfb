package types

import "strings"

// ToolInputSchema defines the schema for the input parameters of a tool
type ToolInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Tool is the REST view of a tool advertised by the adapter.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"input_schema"`
}

// ResourceDescriptor describes a URI-addressed, read-only document.
// URIPattern may contain a single placeholder segment, eg- task://get/{id}
type ResourceDescriptor struct {
	URIPattern  string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MediaType   string `json:"mime_type"`
}

// IsTemplate returns true if the URI pattern contains a placeholder.
func (r ResourceDescriptor) IsTemplate() bool {
	return strings.Contains(r.URIPattern, "{")
}

// PromptArgument is a single argument of a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Prompt is the REST view of a prompt advertised by the adapter.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// ToolInvokeInput is the body of a REST tool invocation.
type ToolInvokeInput struct {
	Name      string         `json:"name" binding:"required"`
	Arguments map[string]any `json:"arguments"`
}

// PromptRenderInput is the body of a REST prompt render request.
type PromptRenderInput struct {
	Name      string            `json:"name" binding:"required"`
	Arguments map[string]string `json:"arguments"`
}

// PromptMessage is one role-tagged message of a rendered prompt.
type PromptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RenderedPrompt is the REST view of a rendered prompt.
type RenderedPrompt struct {
	Description string          `json:"description"`
	Messages    []PromptMessage `json:"messages"`
}

// ServerMetadata describes the running adapter or backend.
type ServerMetadata struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
