package tools_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

func TestRunTerminalCmd(t *testing.T) {
	rt := &tools.RunTerminalCmdTool{Root: t.TempDir()}

	result, err := rt.Execute(context.Background(), map[string]any{"command": "echo hello"})
	if err != nil {
		t.Fatalf("run_terminal_cmd: %v", err)
	}
	out := result.(map[string]any)
	if out["returncode"] != 0 {
		t.Errorf("returncode = %v, want 0", out["returncode"])
	}
	if !strings.Contains(out["stdout"].(string), "hello") {
		t.Errorf("stdout = %q, want it to contain hello", out["stdout"])
	}
	if out["timeout"] != false {
		t.Errorf("timeout = %v, want false", out["timeout"])
	}
}

func TestRunTerminalCmdNonZeroExit(t *testing.T) {
	rt := &tools.RunTerminalCmdTool{Root: t.TempDir()}

	result, err := rt.Execute(context.Background(), map[string]any{"command": "exit 3"})
	if err != nil {
		t.Fatalf("run_terminal_cmd: %v", err)
	}
	if result.(map[string]any)["returncode"] != 3 {
		t.Errorf("returncode = %v, want 3", result.(map[string]any)["returncode"])
	}
}

func TestRunTerminalCmdTimeout(t *testing.T) {
	rt := &tools.RunTerminalCmdTool{Root: t.TempDir(), MaxTimeout: time.Second}

	start := time.Now()
	result, err := rt.Execute(context.Background(), map[string]any{
		"command": "sleep 30",
		"timeout": float64(1),
	})
	if err != nil {
		t.Fatalf("run_terminal_cmd: %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("command was not killed at its timeout")
	}
	if result.(map[string]any)["timeout"] != true {
		t.Errorf("timeout = %v, want true", result.(map[string]any)["timeout"])
	}
}

func TestRunTerminalCmdRefusesDangerous(t *testing.T) {
	rt := &tools.RunTerminalCmdTool{Root: t.TempDir()}

	if _, err := rt.Execute(context.Background(), map[string]any{"command": "rm -rf /"}); err == nil {
		t.Fatal("expected refusal for destructive command")
	}
}
