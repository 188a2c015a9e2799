package agent

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/aidekit/aide/internal/llm"
)

// InputSchema is the JSON-schema fragment a tool declares for its
// arguments. Only object schemas with a flat Required list are enforced
// locally; richer constraints are left to the model.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// parameters renders the schema in the wire form the `tools` field wants.
func (s InputSchema) parameters() map[string]any {
	typ := s.Type
	if typ == "" {
		typ = "object"
	}
	params := map[string]any{"type": typ}
	if s.Properties != nil {
		params["properties"] = s.Properties
	} else {
		params["properties"] = map[string]any{}
	}
	if len(s.Required) > 0 {
		params["required"] = s.Required
	}
	return params
}

// ExecuteFunc runs a tool against its raw argument JSON. The returned
// value must be JSON-serializable; it becomes the tool-result content.
type ExecuteFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Registration binds a tool name to its schema and execute function.
type Registration struct {
	Name        string
	Description string
	Schema      InputSchema
	Execute     ExecuteFunc
}

// ValidateArguments checks args against the declared Required list.
// Malformed JSON and missing fields both yield a ValidationError naming
// the first offending field.
func (r *Registration) ValidateArguments(args json.RawMessage) error {
	body := args
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	for _, field := range r.Schema.Required {
		if !gjson.GetBytes(body, field).Exists() {
			return &ValidationError{Field: field}
		}
	}
	return nil
}

// ToolRegistry holds the tools the model may call. Registration replaces
// any existing entry under the same name; lookups take a read lock so
// concurrent turns against separate agents can share one registry.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Registration
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Registration)}
}

// Register adds or replaces a tool.
func (tr *ToolRegistry) Register(reg Registration) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	r := reg
	tr.tools[reg.Name] = &r
}

// Get returns the registration for name, or nil.
func (tr *ToolRegistry) Get(name string) *Registration {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.tools[name]
}

// Names returns the registered tool names, sorted.
func (tr *ToolRegistry) Names() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	names := make([]string, 0, len(tr.tools))
	for name := range tr.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (tr *ToolRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.tools)
}

// Definitions renders every registered tool for the request `tools`
// field, sorted by name so requests are deterministic.
func (tr *ToolRegistry) Definitions() []llm.ToolDefinition {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if len(tr.tools) == 0 {
		return nil
	}
	names := make([]string, 0, len(tr.tools))
	for name := range tr.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		reg := tr.tools[name]
		defs = append(defs, llm.FunctionTool(llm.FunctionSpec{
			Name:        reg.Name,
			Description: reg.Description,
			Parameters:  reg.Schema.parameters(),
		}))
	}
	return defs
}
