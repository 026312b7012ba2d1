package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

func TestWriteThenReadFile(t *testing.T) {
	root := t.TempDir()
	write := &tools.WriteFileTool{Root: root}
	read := &tools.ReadFileTool{Root: root}

	result, err := write.Execute(context.Background(), map[string]any{
		"file_path": "sub/dir/hello.txt",
		"contents":  "line one\nline two\nline three",
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if result.(map[string]any)["status"] != "written" {
		t.Errorf("write status = %v, want written", result.(map[string]any)["status"])
	}

	got, err := read.Execute(context.Background(), map[string]any{"target_file": "sub/dir/hello.txt"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.(map[string]any)["content"] != "line one\nline two\nline three" {
		t.Errorf("read content = %v", got.(map[string]any)["content"])
	}
}

func TestReadFileLineWindow(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("a\nb\nc\nd\ne"), 0o644); err != nil {
		t.Fatal(err)
	}
	read := &tools.ReadFileTool{Root: root}

	got, err := read.Execute(context.Background(), map[string]any{
		"target_file": "f.txt",
		"offset":      float64(2),
		"limit":       float64(2),
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if content := got.(map[string]any)["content"]; content != "b\nc" {
		t.Errorf("windowed content = %q, want %q", content, "b\nc")
	}
}

func TestSearchReplace(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "code.go")
	if err := os.WriteFile(path, []byte("foo bar foo"), 0o644); err != nil {
		t.Fatal(err)
	}
	sr := &tools.SearchReplaceTool{Root: root}

	// First occurrence only by default.
	if _, err := sr.Execute(context.Background(), map[string]any{
		"file_path":  "code.go",
		"old_string": "foo",
		"new_string": "baz",
	}); err != nil {
		t.Fatalf("search_replace: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "baz bar foo" {
		t.Errorf("content = %q, want %q", data, "baz bar foo")
	}

	// Missing old_string is an error.
	if _, err := sr.Execute(context.Background(), map[string]any{
		"file_path":  "code.go",
		"old_string": "absent",
		"new_string": "x",
	}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestSearchReplaceAll(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "code.go")
	if err := os.WriteFile(path, []byte("x y x y x"), 0o644); err != nil {
		t.Fatal(err)
	}
	sr := &tools.SearchReplaceTool{Root: root}

	result, err := sr.Execute(context.Background(), map[string]any{
		"file_path":   "code.go",
		"old_string":  "x",
		"new_string":  "z",
		"replace_all": true,
	})
	if err != nil {
		t.Fatalf("search_replace: %v", err)
	}
	if n := result.(map[string]any)["replacements"]; n != 3 {
		t.Errorf("replacements = %v, want 3", n)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "z y z y z" {
		t.Errorf("content = %q, want %q", data, "z y z y z")
	}
}

func TestDeleteFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "victim.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	del := &tools.DeleteFileTool{Root: root}

	result, err := del.Execute(context.Background(), map[string]any{"target_file": "victim.txt"})
	if err != nil {
		t.Fatalf("delete_file: %v", err)
	}
	if result.(map[string]any)["status"] != "deleted" {
		t.Errorf("status = %v, want deleted", result.(map[string]any)["status"])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}

	// A second delete reports not_found rather than failing.
	result, err = del.Execute(context.Background(), map[string]any{"target_file": "victim.txt"})
	if err != nil {
		t.Fatalf("second delete_file: %v", err)
	}
	if result.(map[string]any)["status"] != "not_found" {
		t.Errorf("status = %v, want not_found", result.(map[string]any)["status"])
	}
}

func TestDeleteFileRefusesCritical(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x"), 0o644); err != nil {
		t.Fatal(err)
	}
	del := &tools.DeleteFileTool{Root: root}

	if _, err := del.Execute(context.Background(), map[string]any{"target_file": "go.mod"}); err == nil {
		t.Fatal("expected refusal for critical file")
	}
}

func TestWorkspaceConfinement(t *testing.T) {
	root := t.TempDir()
	read := &tools.ReadFileTool{Root: root}

	for _, target := range []string{"../outside.txt", "../../etc/passwd", "/etc/passwd"} {
		if _, err := read.Execute(context.Background(), map[string]any{"target_file": target}); err == nil {
			t.Errorf("read of %q succeeded, want workspace confinement error", target)
		}
	}
}
