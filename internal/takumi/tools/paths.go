package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveInWorkspace resolves p (relative or absolute) against root and
// rejects any path that escapes the workspace. root must already be
// absolute and cleaned.
func resolveInWorkspace(root, p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("access outside the workspace is not allowed: %s", p)
	}
	return abs, nil
}

// workspaceRel returns the workspace-relative form of abs, falling back to
// abs itself when it cannot be made relative.
func workspaceRel(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return abs
	}
	return rel
}

// defaultIgnoreGlobs lists directory trees skipped by the listing and search
// tools unless the caller overrides them.
var defaultIgnoreGlobs = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	".venv",
	"venv",
	"__pycache__",
}

// shouldIgnore reports whether a workspace-relative path matches any of the
// ignore globs, either on the full path or on any of its segments.
func shouldIgnore(relPath string, globs []string) bool {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for _, g := range globs {
		if ok, _ := filepath.Match(g, filepath.ToSlash(relPath)); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := filepath.Match(g, seg); ok {
				return true
			}
		}
	}
	return false
}
