package mcp

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/taskmcp/taskmcp/pkg/types"
)

// ListTools returns the REST view of every tool, in registry order.
func (m *MCPService) ListTools() []types.Tool {
	tools := m.registry.ListTools()
	out := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, convertToolToAPIObject(t))
	}
	return out
}

// GetTool returns the REST view of a single tool.
func (m *MCPService) GetTool(name string) (*types.Tool, error) {
	t, ok := m.registry.Tool(name)
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	out := convertToolToAPIObject(t)
	return &out, nil
}

// ListResources returns every resource descriptor, in registry order.
func (m *MCPService) ListResources() []types.ResourceDescriptor {
	return m.registry.ListResources()
}

// ListPrompts returns the REST view of every prompt, in registry order.
func (m *MCPService) ListPrompts() []types.Prompt {
	prompts := m.registry.ListPrompts()
	out := make([]types.Prompt, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, convertPromptToAPIObject(p))
	}
	return out
}

// GetPrompt returns the REST view of a single prompt.
func (m *MCPService) GetPrompt(name string) (*types.Prompt, error) {
	p, ok := m.registry.Prompt(name)
	if !ok {
		return nil, fmt.Errorf("prompt %s not found", name)
	}
	out := convertPromptToAPIObject(p)
	return &out, nil
}

func convertToolToAPIObject(t mcp.Tool) types.Tool {
	return types.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: types.ToolInputSchema{
			Type:       t.InputSchema.Type,
			Properties: t.InputSchema.Properties,
			Required:   t.InputSchema.Required,
		},
	}
}

func convertPromptToAPIObject(p mcp.Prompt) types.Prompt {
	args := make([]types.PromptArgument, 0, len(p.Arguments))
	for _, a := range p.Arguments {
		args = append(args, types.PromptArgument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}
	return types.Prompt{
		Name:        p.Name,
		Description: p.Description,
		Arguments:   args,
	}
}
