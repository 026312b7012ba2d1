package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

type echoTool struct {
	name  string
	reply string
}

func (t *echoTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        t.name,
			Description: "echoes a fixed reply",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string"},
				},
				"required": []string{"message"},
			},
		},
	}
}

func (t *echoTool) Execute(_ context.Context, _ map[string]any) (any, error) {
	return t.reply, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&echoTool{name: "echo", reply: "hi"})

	if _, ok := r.Lookup("echo"); !ok {
		t.Fatal("registered tool not found")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("Lookup returned a tool that was never registered")
	}
}

func TestRegistry_DuplicateRegistrationLastWins(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&echoTool{name: "echo", reply: "first"})
	r.Register(&echoTool{name: "echo", reply: "second"})

	result, err := r.Invoke(context.Background(), "echo", map[string]any{"message": "x"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result != "second" {
		t.Errorf("Invoke returned %v, want the later registration", result)
	}
	if n := len(r.Definitions()); n != 1 {
		t.Errorf("Definitions returned %d entries, want 1", n)
	}
}

func TestRegistry_DefinitionsPreserveRegistrationOrder(t *testing.T) {
	r := tools.NewRegistry()
	names := []string{"alpha", "beta", "gamma"}
	for _, name := range names {
		r.Register(&echoTool{name: name})
	}
	defs := r.Definitions()
	if len(defs) != len(names) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(names))
	}
	for i, name := range names {
		if defs[i].Function.Name != name {
			t.Errorf("definition %d is %q, want %q", i, defs[i].Function.Name, name)
		}
	}
}

func TestRegistry_ValidateRejectsMissingRequired(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&echoTool{name: "echo"})

	err := r.Validate("echo", map[string]any{})
	var argErr *tools.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Validate error = %v, want *ArgumentError", err)
	}
	if argErr.Tool != "echo" {
		t.Errorf("ArgumentError.Tool = %q, want %q", argErr.Tool, "echo")
	}
}

func TestRegistry_ValidateAcceptsUndeclaredParams(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&echoTool{name: "echo"})

	err := r.Validate("echo", map[string]any{"message": "hi", "extra": 42})
	if err != nil {
		t.Fatalf("Validate rejected undeclared parameter: %v", err)
	}
}

func TestRegistry_ValidateRejectsWrongType(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(&echoTool{name: "echo"})

	err := r.Validate("echo", map[string]any{"message": 7})
	var argErr *tools.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Validate error = %v, want *ArgumentError", err)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := tools.NewRegistry()
	if _, err := r.Invoke(context.Background(), "nope", nil); !errors.Is(err, tools.ErrToolNotFound) {
		t.Fatalf("Invoke error = %v, want ErrToolNotFound", err)
	}
	if err := r.Validate("nope", nil); !errors.Is(err, tools.ErrToolNotFound) {
		t.Fatalf("Validate error = %v, want ErrToolNotFound", err)
	}
}
