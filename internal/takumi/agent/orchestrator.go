// Package agent runs the bounded tool-calling loop that turns a user request
// into a final answer.
//
// Each iteration sends the full message history and the merged tool catalog
// to the model, then either returns the model's answer or dispatches the tool
// calls it requested. Local tools and remote servers are resolved into tagged
// bindings once per iteration, so dispatch never re-parses tool names.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdobrica/Takumi/common/trace"
	"github.com/bdobrica/Takumi/internal/takumi/conversation"
	"github.com/bdobrica/Takumi/internal/takumi/llm"
	"github.com/bdobrica/Takumi/internal/takumi/mcp"
	"github.com/bdobrica/Takumi/internal/takumi/observability"
	"github.com/bdobrica/Takumi/internal/takumi/store"
	"github.com/bdobrica/Takumi/internal/takumi/tools"
)

const defaultMaxIterations = 10

// iterationLimitMessage is returned when the loop exhausts its budget without
// the model producing a final answer. Partial progress stays in the history.
const iterationLimitMessage = "Reached the maximum number of tool-calling iterations without a final answer. The partial results are kept; you can ask me to continue."

// RemoteTools is the slice of the RPC client the orchestrator needs. It is an
// interface so tests can drive the loop without real server connections.
type RemoteTools interface {
	Bindings() []mcp.Binding
	CallServer(ctx context.Context, server, remoteName string, args map[string]interface{}) (interface{}, error)
}

// Config assembles an Orchestrator.
type Config struct {
	Provider      llm.Provider
	Registry      *tools.Registry
	Remote        RemoteTools // may be nil when no servers are configured
	Store         *store.Store // may be nil to disable the audit log
	SystemPrompt  string
	MaxIterations int

	// MaxHistoryTokens is a declared history budget carried on the
	// conversation; it is not enforced.
	MaxHistoryTokens int
}

// Orchestrator owns one conversation and drives the request loop.
type Orchestrator struct {
	provider      llm.Provider
	registry      *tools.Registry
	remote        RemoteTools
	db            *store.Store
	history       *conversation.Manager
	systemPrompt  string
	maxIterations int
}

// New returns an Orchestrator with an empty conversation.
func New(cfg Config) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &Orchestrator{
		provider:      cfg.Provider,
		registry:      cfg.Registry,
		remote:        cfg.Remote,
		db:            cfg.Store,
		history:       conversation.NewManager(cfg.MaxHistoryTokens),
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: cfg.MaxIterations,
	}
}

// History exposes the conversation for inspection.
func (o *Orchestrator) History() *conversation.Manager { return o.history }

// Reset drops the conversation so the next request starts fresh.
func (o *Orchestrator) Reset() { o.history.Clear() }

// binding is one resolved entry of the merged catalog: either a local tool or
// a (server, remote name) pair.
type binding struct {
	local      tools.Tool
	server     string
	remoteName string
}

// ProcessRequest runs the loop for one user request and returns the answer
// text. Failures that abort the request (a model call error, the iteration
// budget) are returned as answer text too; all accumulated history stays in
// place for a follow-up request.
func (o *Orchestrator) ProcessRequest(ctx context.Context, text string) string {
	ctx = trace.WithRequestID(ctx, trace.NewID())
	log := observability.WithRequest(ctx)

	if o.history.Count() == 0 {
		o.history.AddSystem(o.systemPrompt)
	}
	o.history.AddUser(text)

	var turnID int64
	if o.db != nil {
		id, err := o.db.LogTurn(trace.FromContext(ctx), text)
		if err != nil {
			log.Warn("could not log turn", "err", err)
		} else {
			turnID = id
		}
	}

	totalToolCalls := 0
	finish := func(answer, errMsg string, iterations int) string {
		if o.db != nil && turnID > 0 {
			if err := o.db.FinishTurn(turnID, iterations, totalToolCalls, answer, errMsg); err != nil {
				log.Warn("could not finish turn", "err", err)
			}
		}
		return answer
	}

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		defs, resolved := o.mergeCatalog()
		if iteration == 0 {
			names := make([]string, 0, len(defs))
			for _, d := range defs {
				names = append(names, d.Function.Name)
			}
			log.Debug("tool catalog", "tools", strings.Join(names, ", "))
		}

		resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
			Messages:   o.history.Projection(),
			Tools:      defs,
			ToolChoice: "auto",
		})
		if err != nil {
			log.Error("model call failed", "err", err)
			return finish("", fmt.Sprintf("The model call failed: %v", err), iteration)
		}

		if len(resp.Message.ToolCalls) == 0 {
			o.history.AddAssistant(resp.Message.Content, nil)
			return finish(resp.Message.Content, "", iteration+1)
		}

		o.history.AddAssistant(resp.Message.Content, resp.Message.ToolCalls)
		// Strictly sequential dispatch keeps history order deterministic.
		for _, tc := range resp.Message.ToolCalls {
			totalToolCalls++
			result := o.dispatch(ctx, tc, resolved)
			o.history.AddToolResult(tc.ID, tc.Function.Name, result)
		}
	}

	log.Warn("iteration limit reached", "max_iterations", o.maxIterations)
	return finish(iterationLimitMessage, "iteration limit reached", o.maxIterations)
}

// mergeCatalog builds the model-visible catalog: local definitions first,
// then every remote binding. The resolution map is rebuilt each iteration so
// servers connected or disconnected mid-conversation are picked up.
func (o *Orchestrator) mergeCatalog() ([]llm.ToolDefinition, map[string]binding) {
	defs := o.registry.Definitions()
	resolved := make(map[string]binding, len(defs))
	for _, d := range defs {
		if t, ok := o.registry.Lookup(d.Function.Name); ok {
			resolved[d.Function.Name] = binding{local: t}
		}
	}
	if o.remote != nil {
		for _, b := range o.remote.Bindings() {
			defs = append(defs, b.Definition)
			resolved[b.Definition.Function.Name] = binding{server: b.Server, remoteName: b.RemoteName}
		}
	}
	return defs, resolved
}

// dispatch executes one tool call and converts any failure into a result
// string, so a bad call never aborts the iteration.
func (o *Orchestrator) dispatch(ctx context.Context, tc llm.ToolCall, resolved map[string]binding) any {
	name := tc.Function.Name

	var args map[string]interface{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("error: invalid tool arguments: %v", err)
		}
	}

	b, ok := resolved[name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", name)
	}

	var result any
	var err error
	if b.local != nil {
		result, err = o.registry.Invoke(ctx, name, args)
	} else {
		result, err = o.remote.CallServer(ctx, b.server, b.remoteName, args)
	}
	if err != nil {
		slog.Warn("tool call failed", "tool", name, "err", err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}
