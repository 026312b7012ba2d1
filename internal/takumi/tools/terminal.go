package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

const defaultCommandTimeout = 60 * time.Second

// dangerousPrefixes blocks obviously destructive shell commands outright.
// The list is a safety net, not a sandbox.
var dangerousPrefixes = []string{
	"rm -rf /",
	"rm -rf /*",
	"mkfs",
	"dd if=",
	"shutdown",
	"reboot",
	":(){",
}

// RunTerminalCmdTool executes a shell command in the workspace and captures
// its output. Commands are killed when they exceed their timeout.
type RunTerminalCmdTool struct {
	Root       string
	MaxTimeout time.Duration
}

func (t *RunTerminalCmdTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "run_terminal_cmd",
			Description: "Run a shell command in the workspace and return its exit code, stdout, and stderr. The command is killed if it exceeds the timeout.",
			Parameters: objectSchema(map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Shell command to execute.",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds. Defaults to 60.",
				},
			}, []string{"command"}),
		},
	}
}

func (t *RunTerminalCmdTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	command, ok := stringArg(args, "command")
	if !ok || strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("run_terminal_cmd: command is required")
	}
	trimmed := strings.TrimSpace(command)
	for _, prefix := range dangerousPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return nil, fmt.Errorf("run_terminal_cmd: command refused: %q", trimmed)
		}
	}

	timeout := time.Duration(intArgOr(args, "timeout", 0)) * time.Second
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if t.MaxTimeout > 0 && timeout > t.MaxTimeout {
		timeout = t.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Debug("run_terminal_cmd: executing", "command", trimmed, "timeout", timeout)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = t.Root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return map[string]any{
			"returncode": -1,
			"stdout":     stdout.String(),
			"stderr":     stderr.String(),
			"timeout":    true,
		}, nil
	}
	returncode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			returncode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run_terminal_cmd: %w", runErr)
		}
	}

	return map[string]any{
		"returncode": returncode,
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
		"timeout":    false,
	}, nil
}
