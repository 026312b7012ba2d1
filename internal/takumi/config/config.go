// Package config defines the Takumi agent configuration schema, its YAML
// loader, and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Takumi/common/environment"
	"github.com/bdobrica/Takumi/internal/takumi/mcp"
)

// Config is the root of the agent configuration file.
type Config struct {
	// LLM configures the chat-completion backend.
	LLM LLM `yaml:"llm"`

	// Agent configures the orchestration loop.
	Agent Agent `yaml:"agent,omitempty"`

	// Tools configures the built-in tools.
	Tools Tools `yaml:"tools,omitempty"`

	// MCPServers maps server names to their connection settings.
	MCPServers map[string]MCPServer `yaml:"mcpServers,omitempty"`

	// Log configures slog output.
	Log Log `yaml:"log,omitempty"`
}

// LLM configures the model backend.
type LLM struct {
	// Model is the chat model identifier, e.g. "gpt-4o".
	Model string `yaml:"model"`

	// APIKey authenticates against the API. Falls back to OPENAI_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for compatible backends.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float32 `yaml:"temperature,omitempty"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// Agent configures the orchestrator.
type Agent struct {
	// WorkspaceRoot is the directory the built-in tools operate in.
	// Defaults to the current working directory.
	WorkspaceRoot string `yaml:"workspace_root,omitempty"`

	// MaxIterations bounds the tool-calling loop. Defaults to 10.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// MaxHistoryTokens is a declared history budget. It is recorded but not
	// enforced; no truncation happens when the history grows past it.
	MaxHistoryTokens int `yaml:"max_history_tokens,omitempty"`

	// SystemPrompt overrides the built-in system message.
	SystemPrompt string `yaml:"system_prompt,omitempty"`

	// StorePath is the SQLite file for the turn audit log and the code
	// index. Defaults to ".takumi.db" under the workspace root.
	StorePath string `yaml:"store_path,omitempty"`
}

// Tools configures the built-in tools.
type Tools struct {
	// TerminalMaxTimeoutSeconds caps run_terminal_cmd timeouts.
	TerminalMaxTimeoutSeconds int `yaml:"terminal_max_timeout_seconds,omitempty"`

	// WebSearchAPIKey enables the web_search tool. Falls back to
	// TAKUMI_SEARCH_API_KEY.
	WebSearchAPIKey string `yaml:"web_search_api_key,omitempty"`

	// WebSearchEndpoint overrides the search API URL.
	WebSearchEndpoint string `yaml:"web_search_endpoint,omitempty"`

	// EmbeddingModel is used by codebase_search. Defaults to
	// text-embedding-3-small.
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
}

// MCPServer configures one remote tool server connection.
type MCPServer struct {
	// Transport selects "stdio" (default) or "http".
	Transport string `yaml:"transport,omitempty"`

	// Command, Args, and Env configure a stdio server.
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// URL, Token, Headers, and TimeoutSeconds configure an HTTP server.
	URL            string            `yaml:"url,omitempty"`
	Token          string            `yaml:"token,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
}

// ServerConfig converts the YAML form to the RPC client's config.
func (s MCPServer) ServerConfig() mcp.ServerConfig {
	return mcp.ServerConfig{
		Transport: s.Transport,
		Command:   s.Command,
		Args:      s.Args,
		Env:       s.Env,
		URL:       s.URL,
		Token:     s.Token,
		Headers:   s.Headers,
		Timeout:   time.Duration(s.TimeoutSeconds) * time.Second,
	}
}

// Log configures logging output.
type Log struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// Load reads, parses, and validates the config file at path, applying
// environment fallbacks and defaults. An empty path yields a config built
// from environment variables and defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills unset fields from the environment and built-in
// defaults.
func (c *Config) applyDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = environment.StringOr("TAKUMI_MODEL", "gpt-4o")
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = environment.StringOr("OPENAI_API_KEY", "")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = environment.StringOr("OPENAI_BASE_URL", "")
	}
	if c.Agent.WorkspaceRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			c.Agent.WorkspaceRoot = wd
		}
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = environment.IntOr("TAKUMI_MAX_ITERATIONS", 10)
	}
	if c.Agent.StorePath == "" {
		c.Agent.StorePath = environment.StringOr("TAKUMI_STORE_PATH", ".takumi.db")
	}
	if c.Tools.TerminalMaxTimeoutSeconds == 0 {
		c.Tools.TerminalMaxTimeoutSeconds = 300
	}
	if c.Tools.WebSearchAPIKey == "" {
		c.Tools.WebSearchAPIKey = environment.StringOr("TAKUMI_SEARCH_API_KEY", "")
	}
	if c.Tools.EmbeddingModel == "" {
		c.Tools.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Log.Level == "" {
		c.Log.Level = environment.StringOr("TAKUMI_LOG_LEVEL", "info")
	}
	if c.Log.Format == "" {
		c.Log.Format = environment.StringOr("TAKUMI_LOG_FORMAT", "text")
	}
}

// Validate checks a Config for structural correctness. It returns the first
// validation error encountered, or nil if the config is valid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}

	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}

	if cfg.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.MaxHistoryTokens < 0 {
		return fmt.Errorf("agent.max_history_tokens must not be negative")
	}

	for name, srv := range cfg.MCPServers {
		if err := validateMCPServer(srv); err != nil {
			return fmt.Errorf("mcpServers[%q]: %w", name, err)
		}
		if strings.Contains(name, ".") {
			return fmt.Errorf("mcpServers[%q]: server names must not contain a dot", name)
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

func validateMCPServer(srv MCPServer) error {
	switch srv.Transport {
	case "", "stdio":
		if strings.TrimSpace(srv.Command) == "" {
			return fmt.Errorf("stdio transport requires command")
		}
	case "http":
		if strings.TrimSpace(srv.URL) == "" {
			return fmt.Errorf("http transport requires url")
		}
		if srv.TimeoutSeconds < 0 {
			return fmt.Errorf("timeout_seconds must not be negative")
		}
	default:
		return fmt.Errorf("transport must be stdio or http, got %q", srv.Transport)
	}
	return nil
}
