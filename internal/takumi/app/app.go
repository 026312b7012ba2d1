// Package app wires the Takumi agent together: configuration, the model
// provider, the built-in tool registry, remote tool servers, storage, and the
// orchestrator.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bdobrica/Takumi/internal/takumi/agent"
	"github.com/bdobrica/Takumi/internal/takumi/config"
	"github.com/bdobrica/Takumi/internal/takumi/index"
	"github.com/bdobrica/Takumi/internal/takumi/llm"
	"github.com/bdobrica/Takumi/internal/takumi/mcp"
	"github.com/bdobrica/Takumi/internal/takumi/store"
	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

const defaultSystemPrompt = `You are Takumi, a coding agent working inside the user's project workspace.
Use the available tools to read, modify, and search the codebase, run commands,
and answer the user's request. Prefer small, verifiable steps. When you are
done, reply with a concise final answer instead of another tool call.`

// App is the assembled agent runtime.
type App struct {
	cfg          *config.Config
	db           *store.Store
	rpc          *mcp.Client
	registry     *tools.Registry
	indexer      *index.Indexer
	orchestrator *agent.Orchestrator
}

// New builds the runtime from a validated config. Remote server connection
// failures are logged and skipped rather than aborting startup, so one bad
// server never takes the whole agent down.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	root, err := filepath.Abs(cfg.Agent.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	storePath := cfg.Agent.StorePath
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(root, storePath)
	}
	db, err := store.New(storePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})

	embedder := index.NewOpenAIEmbedder(index.OpenAIEmbedderConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.Tools.EmbeddingModel,
	})
	indexer := index.New(db, embedder, root)

	registry := tools.NewRegistry()
	registry.Register(&tools.ReadFileTool{Root: root})
	registry.Register(&tools.WriteFileTool{Root: root})
	registry.Register(&tools.SearchReplaceTool{Root: root})
	registry.Register(&tools.DeleteFileTool{Root: root})
	registry.Register(&tools.ListDirTool{Root: root})
	registry.Register(&tools.GlobFileSearchTool{Root: root})
	registry.Register(&tools.GrepTool{Root: root})
	registry.Register(&tools.ReadLintsTool{Root: root})
	registry.Register(&tools.TodoWriteTool{Root: root})
	registry.Register(&tools.RunTerminalCmdTool{
		Root:       root,
		MaxTimeout: time.Duration(cfg.Tools.TerminalMaxTimeoutSeconds) * time.Second,
	})
	registry.Register(tools.NewWebSearchTool(cfg.Tools.WebSearchAPIKey, cfg.Tools.WebSearchEndpoint))
	registry.Register(&index.SearchTool{Searcher: indexer})

	rpc := mcp.NewClient()
	for name, srv := range cfg.MCPServers {
		if err := rpc.Connect(ctx, name, srv.ServerConfig()); err != nil {
			slog.Warn("skipping remote tool server", "server", name, "err", err)
		}
	}

	orchestrator := agent.New(agent.Config{
		Provider:         provider,
		Registry:         registry,
		Remote:           rpc,
		Store:            db,
		SystemPrompt:     systemPrompt(cfg),
		MaxIterations:    cfg.Agent.MaxIterations,
		MaxHistoryTokens: cfg.Agent.MaxHistoryTokens,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		rpc:          rpc,
		registry:     registry,
		indexer:      indexer,
		orchestrator: orchestrator,
	}, nil
}

func systemPrompt(cfg *config.Config) string {
	if cfg.Agent.SystemPrompt != "" {
		return cfg.Agent.SystemPrompt
	}
	return defaultSystemPrompt
}

// Exec runs a single request and returns the answer.
func (a *App) Exec(ctx context.Context, prompt string) string {
	return a.orchestrator.ProcessRequest(ctx, prompt)
}

// Chat runs an interactive loop: one line in, one answer out, history kept
// across turns. "/reset" clears the conversation, "/quit" exits.
func (a *App) Chat(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			a.orchestrator.Reset()
			fmt.Fprintln(out, "conversation cleared")
			continue
		}
		answer := a.orchestrator.ProcessRequest(ctx, line)
		fmt.Fprintln(out, answer)
	}
}

// Index rebuilds the semantic code index and returns the number of files
// indexed.
func (a *App) Index(ctx context.Context) (int, error) {
	return a.indexer.IndexProject(ctx)
}

// History returns the recent turn audit log.
func (a *App) History(limit int) ([]store.Turn, error) {
	return a.db.RecentTurns(limit)
}

// Close disconnects all remote servers and closes storage.
func (a *App) Close() {
	a.rpc.DisconnectAll()
	if err := a.db.Close(); err != nil {
		slog.Warn("closing store", "err", err)
	}
}
