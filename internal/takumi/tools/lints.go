package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

// lintRunners maps a linter name to its invocation. The first available
// runner wins when the caller asks for automatic detection.
var lintRunners = []struct {
	name string
	argv []string
}{
	{"staticcheck", []string{"staticcheck", "./..."}},
	{"golangci-lint", []string{"golangci-lint", "run"}},
	{"go-vet", []string{"go", "vet", "./..."}},
	{"gofmt", []string{"gofmt", "-l", "."}},
}

// ReadLintsTool runs a linter over the workspace and reports its findings.
type ReadLintsTool struct {
	Root string
}

func (t *ReadLintsTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "read_lints",
			Description: "Run a linter over the workspace and return its findings. With linter='auto' the first linter found on PATH is used.",
			Parameters: objectSchema(map[string]any{
				"linter": map[string]any{
					"type":        "string",
					"enum":        []string{"auto", "staticcheck", "golangci-lint", "go-vet", "gofmt"},
					"description": "Which linter to run. Defaults to 'auto'.",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to lint, relative to the workspace root. Defaults to the workspace root.",
				},
			}, nil),
		},
	}
}

func (t *ReadLintsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	want := stringArgOr(args, "linter", "auto")
	dir := t.Root
	if target, ok := stringArg(args, "path"); ok && target != "" {
		abs, err := resolveInWorkspace(t.Root, target)
		if err != nil {
			return nil, fmt.Errorf("read_lints: %w", err)
		}
		dir = abs
	}

	var argv []string
	var name string
	for _, runner := range lintRunners {
		if want != "auto" && runner.name != want {
			continue
		}
		if _, err := exec.LookPath(runner.argv[0]); err != nil {
			continue
		}
		name, argv = runner.name, runner.argv
		break
	}
	if argv == nil {
		return map[string]any{
			"linter": want,
			"error":  "no suitable linter found on PATH",
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	findings := strings.TrimSpace(out.String())
	clean := findings == "" && runErr == nil
	result := map[string]any{
		"linter": name,
		"clean":  clean,
	}
	if findings != "" {
		result["findings"] = findings
	}
	return result, nil
}
