package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Takumi/common/version"
	"github.com/bdobrica/Takumi/internal/takumi/llm"
)

const protocolVersion = "2024-11-05"

// ErrServerNotFound is returned when a call names an unknown connection.
var ErrServerNotFound = errors.New("server not found")

// ServerConfig describes one remote tool server.
type ServerConfig struct {
	// Transport selects "stdio" (default) or "http".
	Transport string

	// Command, Args, and Env configure the stdio transport. Env entries are
	// merged over the parent's environment.
	Command string
	Args    []string
	Env     map[string]string

	// URL, Token, Headers, and Timeout configure the HTTP transport.
	URL     string
	Token   string
	Headers map[string]string
	Timeout time.Duration
}

// connection is one established link to a remote tool server.
type connection struct {
	name      string
	transport transport
	tools     []Tool
}

// Client manages named connections to remote tool servers and exposes their
// tools under dot-qualified names ("server.tool"). Request ids come from one
// monotonic counter shared across all connections of a Client.
type Client struct {
	conns  map[string]*connection
	order  []string
	nextID atomic.Int64
}

// NewClient returns a Client with no connections.
func NewClient() *Client {
	return &Client{conns: make(map[string]*connection)}
}

// Connect establishes the transport for name, performs the initialize
// handshake, and discovers the server's tools. A transport or handshake
// failure fails the whole call and leaves the server unregistered. A
// tools/list failure is non-fatal: the server is registered with an empty
// tool set and a warning is logged.
func (c *Client) Connect(ctx context.Context, name string, cfg ServerConfig) error {
	if _, exists := c.conns[name]; exists {
		return fmt.Errorf("server %q is already connected", name)
	}

	var t transport
	var err error
	switch cfg.Transport {
	case "", "stdio":
		t, err = newStdioTransport(cfg.Command, cfg.Args, cfg.Env)
	case "http":
		if cfg.URL == "" {
			err = fmt.Errorf("http transport requires a url")
		} else {
			t = newHTTPTransport(cfg.URL, cfg.Token, cfg.Headers, cfg.Timeout)
		}
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return fmt.Errorf("connect %q: %w", name, err)
	}

	var initResult InitializeResult
	if err := c.call(ctx, t, "initialize", InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    ClientCaps{},
		ClientInfo:      ClientInfo{Name: "takumi", Version: version.Version},
	}, &initResult); err != nil {
		t.close()
		return fmt.Errorf("connect %q: initialize: %w", name, err)
	}

	conn := &connection{name: name, transport: t}
	var listResult ListToolsResult
	if err := c.call(ctx, t, "tools/list", nil, &listResult); err != nil {
		slog.Warn("mcp: tool discovery failed, registering server with no tools", "server", name, "err", err)
	} else {
		conn.tools = listResult.Tools
	}

	c.conns[name] = conn
	c.order = append(c.order, name)
	slog.Info("mcp server ready",
		"name", name,
		"server", initResult.ServerInfo.Name,
		"version", initResult.ServerInfo.Version,
		"tools", len(conn.tools),
	)
	return nil
}

// Binding ties one dot-qualified catalog entry back to its connection, so
// dispatch never has to re-parse names.
type Binding struct {
	Server     string
	RemoteName string
	Definition llm.ToolDefinition
}

// Bindings returns one entry per discovered remote tool across all
// connections, in connection order. Names take the form "server.tool", which
// cannot collide with local tools since those contain no dot.
func (c *Client) Bindings() []Binding {
	var out []Binding
	for _, name := range c.order {
		conn, ok := c.conns[name]
		if !ok {
			continue
		}
		for _, tool := range conn.tools {
			out = append(out, Binding{
				Server:     name,
				RemoteName: tool.Name,
				Definition: llm.ToolDefinition{
					Type: "function",
					Function: llm.FunctionDef{
						Name:        name + "." + tool.Name,
						Description: tool.Description,
						Parameters:  tool.InputSchema,
					},
				},
			})
		}
	}
	return out
}

// ListTools returns the discovered tools of one connection.
func (c *Client) ListTools(server string) ([]Tool, error) {
	conn, ok := c.conns[server]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServerNotFound, server)
	}
	return conn.tools, nil
}

// Call invokes a dot-qualified remote tool ("server.tool"). The name is split
// on the first dot; everything after it is the remote tool name.
func (c *Client) Call(ctx context.Context, qualified string, args map[string]interface{}) (interface{}, error) {
	server, remote, found := strings.Cut(qualified, ".")
	if !found {
		return nil, fmt.Errorf("%q is not a qualified remote tool name", qualified)
	}
	return c.CallServer(ctx, server, remote, args)
}

// CallServer invokes remoteName on the named connection and extracts the
// result. An RPC error envelope fails the call with the remote message.
func (c *Client) CallServer(ctx context.Context, server, remoteName string, args map[string]interface{}) (interface{}, error) {
	conn, ok := c.conns[server]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServerNotFound, server)
	}
	var result CallToolResult
	if err := c.call(ctx, conn.transport, "tools/call", CallToolParams{Name: remoteName, Arguments: args}, &result); err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", server, remoteName, err)
	}
	return extractResult(&result), nil
}

// Disconnect closes the named connection. Disconnecting a server that is not
// connected is a no-op.
func (c *Client) Disconnect(name string) error {
	conn, ok := c.conns[name]
	if !ok {
		return nil
	}
	delete(c.conns, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if err := conn.transport.close(); err != nil {
		return fmt.Errorf("disconnect %q: %w", name, err)
	}
	return nil
}

// DisconnectAll closes every connection, logging per-connection failures so
// one bad shutdown never blocks the rest.
func (c *Client) DisconnectAll() {
	names := append([]string(nil), c.order...)
	for _, name := range names {
		if err := c.Disconnect(name); err != nil {
			slog.Warn("mcp: disconnect failed", "server", name, "err", err)
		}
	}
}

// call sends one request over t and decodes the typed result. Request ids
// come from the client-wide counter.
func (c *Client) call(ctx context.Context, t transport, method string, params, result interface{}) error {
	req := &Request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	resp, err := t.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	// Re-marshal the untyped result to decode it into the typed value.
	b, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("re-marshal result: %w", err)
	}
	return json.Unmarshal(b, result)
}

// extractResult flattens a tools/call result: text parts are joined with
// newlines and parsed as JSON when possible; with no text parts the raw
// content list is returned unchanged.
func extractResult(result *CallToolResult) interface{} {
	var parts []string
	for _, item := range result.Content {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	if len(parts) == 0 {
		return result.Content
	}
	joined := strings.Join(parts, "\n")
	var parsed interface{}
	if err := json.Unmarshal([]byte(joined), &parsed); err == nil {
		return parsed
	}
	return joined
}
