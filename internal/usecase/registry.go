package usecase

import (
	"context"
	"strings"

	"medrag/internal/domain"
)

// Tool is a named capability the agent can invoke with a text input.
type Tool interface {
	Name() string
	Description() string
	Answer(ctx context.Context, input string) (string, error)
}

// ToolRegistry is the closed set of tools available to the agent, fixed at
// construction. Lookups never reach anything outside that set.
type ToolRegistry struct {
	tools map[string]Tool
	order []Tool
}

func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	if len(tools) == 0 {
		return nil, domain.Configf("at least one tool is required")
	}

	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return nil, domain.Configf("tool without a name")
		}
		if _, dup := r.tools[name]; dup {
			return nil, domain.Configf("duplicate tool name %s", name)
		}
		r.tools[name] = t
		r.order = append(r.order, t)
	}
	return r, nil
}

// Lookup resolves a model-supplied tool name. Exact matches win; otherwise a
// unique case-insensitive match is accepted.
func (r *ToolRegistry) Lookup(name string) (Tool, bool) {
	if t, ok := r.tools[name]; ok {
		return t, true
	}

	var found Tool
	for _, t := range r.order {
		if strings.EqualFold(t.Name(), name) {
			if found != nil {
				return nil, false
			}
			found = t
		}
	}
	return found, found != nil
}

// Tools returns the registered tools in registration order.
func (r *ToolRegistry) Tools() []Tool {
	out := make([]Tool, len(r.order))
	copy(out, r.order)
	return out
}

func (r *ToolRegistry) Names() []string {
	names := make([]string, len(r.order))
	for i, t := range r.order {
		names[i] = t.Name()
	}
	return names
}
