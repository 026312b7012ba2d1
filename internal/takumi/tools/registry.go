// Package tools provides the local tool catalog for the Takumi agent.
//
// Local tools are capabilities exposed directly by the agent process rather
// than by remote tool servers. Each tool carries a declaratively supplied
// JSON Schema for its parameters; the schema is compiled at registration
// time and used to validate every invocation before the tool runs.
//
// Local tool names contain no dot by convention, which keeps them disjoint
// from remote tools whose merged-catalog names are always "server.tool".
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// ErrToolNotFound is returned when a tool name is not in the registry.
var ErrToolNotFound = errors.New("tool not found")

// ArgumentError reports arguments that do not satisfy a tool's parameter
// schema. It is isolated to the single call that carried the bad arguments.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Tool is the interface all local tools implement.
type Tool interface {
	// Definition returns the model-facing tool definition containing the
	// name, description, and JSON Schema parameter specification.
	Definition() llm.ToolDefinition

	// Execute runs the tool with the given (JSON-decoded) arguments and
	// returns a JSON-serialisable result, or an error. The context carries
	// the request ID, deadline, and cancellation signal.
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds all registered local tools and provides name-based lookup,
// schema export, argument validation, and dispatch. It is not safe for
// concurrent mutation — populate it at startup before serving requests.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
}

// NewRegistry returns an empty Registry ready for tool registration.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds t to the registry. Registering a name twice overwrites the
// earlier tool (last write wins) and logs a warning; it never fails. The
// tool's parameter schema is compiled here so invalid calls can be rejected
// cheaply at dispatch time.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Function.Name
	if _, dup := r.tools[name]; dup {
		slog.Warn("tools: re-registering tool, previous entry replaced", "name", name)
	} else {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	r.schemas[name] = compileSchema(name, t.Definition().Function.Parameters)
}

// compileSchema compiles a declarative parameter schema. A schema that fails
// to compile disables validation for that tool rather than blocking
// registration.
func compileSchema(name string, params any) *jsonschema.Schema {
	if params == nil {
		return nil
	}
	doc, err := json.Marshal(params)
	if err != nil {
		slog.Warn("tools: could not encode parameter schema", "name", name, "err", err)
		return nil
	}
	sch, err := jsonschema.CompileString(name+".schema.json", string(doc))
	if err != nil {
		slog.Warn("tools: could not compile parameter schema", "name", name, "err", err)
		return nil
	}
	return sch
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the model-facing definitions of all registered tools
// in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Validate checks args against the named tool's parameter schema. It fails
// with an *ArgumentError when a required parameter is absent or a present
// parameter does not match its declared type; parameters the schema does not
// mention are accepted silently.
func (r *Registry) Validate(name string, args map[string]any) error {
	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	sch := r.schemas[name]
	if sch == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := sch.Validate(normalise(args)); err != nil {
		return &ArgumentError{Tool: name, Err: err}
	}
	return nil
}

// Invoke validates args and executes the named tool. Errors from the tool's
// own logic propagate to the caller unchanged; the orchestrator converts
// them to tool-result strings, but direct callers see the original error.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	if err := r.Validate(name, args); err != nil {
		return nil, err
	}
	return t.Execute(ctx, args)
}

// normalise round-trips args through encoding/json so that values built in
// Go code (typed slices, ints) validate the same way as values decoded from
// a model's argument blob.
func normalise(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return args
	}
	return out
}
