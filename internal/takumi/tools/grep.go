package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

const grepMaxMatches = 200

// GrepTool searches file contents in the workspace with a regular
// expression.
type GrepTool struct {
	Root string
}

func (t *GrepTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        "grep",
			Description: "Search file contents with a regular expression. Returns matching lines, matching file paths, or per-file match counts depending on output_mode.",
			Parameters: objectSchema(map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regular expression to search for (Go RE2 syntax).",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "File or directory to search, relative to the workspace root. Defaults to the workspace root.",
				},
				"glob": map[string]any{
					"type":        "string",
					"description": "Glob pattern restricting which file names are searched, e.g. '*.go'.",
				},
				"output_mode": map[string]any{
					"type":        "string",
					"enum":        []string{"content", "files_with_matches", "count"},
					"description": "What to return. Defaults to 'content'.",
				},
				"case_insensitive": map[string]any{
					"type":        "boolean",
					"description": "Match case-insensitively.",
				},
				"head_limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return.",
				},
			}, []string{"pattern"}),
		},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	pattern, ok := stringArg(args, "pattern")
	if !ok || pattern == "" {
		return nil, fmt.Errorf("grep: pattern is required")
	}
	if boolArgOr(args, "case_insensitive", false) {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("grep: invalid pattern: %w", err)
	}

	base, err := resolveInWorkspace(t.Root, stringArgOr(args, "path", "."))
	if err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}
	nameGlob, _ := stringArg(args, "glob")
	mode := stringArgOr(args, "output_mode", "content")
	limit := intArgOr(args, "head_limit", grepMaxMatches)
	if limit <= 0 || limit > grepMaxMatches {
		limit = grepMaxMatches
	}

	var lines []map[string]any
	var matchedFiles []string
	counts := map[string]int{}
	total := 0

	scanFile := func(path string) error {
		if !isTextFile(path) {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		rel := workspaceRel(t.Root, path)
		fileMatched := false
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if !re.MatchString(scanner.Text()) {
				continue
			}
			total++
			counts[rel]++
			if !fileMatched {
				fileMatched = true
				matchedFiles = append(matchedFiles, rel)
			}
			if mode == "content" && len(lines) < limit {
				lines = append(lines, map[string]any{
					"file": rel,
					"line": lineNo,
					"text": scanner.Text(),
				})
			}
		}
		return nil
	}

	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}
	if info.IsDir() {
		err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if path != base && shouldIgnore(d.Name(), defaultIgnoreGlobs) {
					return filepath.SkipDir
				}
				return nil
			}
			if nameGlob != "" {
				if ok, _ := filepath.Match(nameGlob, d.Name()); !ok {
					return nil
				}
			}
			return scanFile(path)
		})
		if err != nil {
			return nil, fmt.Errorf("grep: %w", err)
		}
	} else if err := scanFile(base); err != nil {
		return nil, fmt.Errorf("grep: %w", err)
	}

	result := map[string]any{
		"pattern":       stringArgOr(args, "pattern", ""),
		"total_matches": total,
	}
	switch mode {
	case "files_with_matches":
		if len(matchedFiles) > limit {
			matchedFiles = matchedFiles[:limit]
		}
		result["files"] = matchedFiles
	case "count":
		result["counts"] = counts
	default:
		result["lines"] = lines
		if total > len(lines) {
			result["truncated"] = true
		}
	}
	return result, nil
}
