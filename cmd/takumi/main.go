// Takumi is a terminal coding agent.
//
// It sends the conversation and a catalog of workspace tools to an LLM and
// executes the tool calls the model requests until the model produces a final
// answer. Remote tool servers can extend the catalog over stdio or HTTP.
//
// Usage:
//
//	takumi chat               - interactive session in the current workspace
//	takumi exec "<prompt>"    - run a single request and print the answer
//	takumi index              - (re)build the semantic code index
//	takumi history            - show recent turns from the audit log
//	takumi version            - print build information
//
// Common flags:
//
//	-config <path>            - YAML config file (default: takumi.yaml if present)
//	-workspace <dir>          - workspace root (default: current directory)
//
// Configuration not given in the file falls back to environment variables:
//
//	OPENAI_API_KEY            - API key for the model backend
//	OPENAI_BASE_URL           - override the API endpoint
//	TAKUMI_MODEL              - chat model (default: "gpt-4o")
//	TAKUMI_MAX_ITERATIONS     - tool-calling loop budget (default: 10)
//	TAKUMI_SEARCH_API_KEY     - enables the web_search tool
//	TAKUMI_LOG_LEVEL          - "debug", "info", "warn", "error" (default: "info")
//	TAKUMI_LOG_FORMAT         - "text" or "json" (default: "text")
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdobrica/Takumi/common/version"
	"github.com/bdobrica/Takumi/internal/takumi/app"
	"github.com/bdobrica/Takumi/internal/takumi/config"
	"github.com/bdobrica/Takumi/internal/takumi/observability"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	workspace := flags.String("workspace", "", "workspace root directory")
	historyLimit := flags.Int("n", 20, "number of history entries to show")
	flags.Parse(os.Args[2:])

	if command == "version" {
		fmt.Println(version.Info())
		return
	}

	cfg, err := loadConfig(*configPath, *workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	observability.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize Takumi", "err", err)
		os.Exit(1)
	}
	defer runtime.Close()

	switch command {
	case "chat":
		if err := runtime.Chat(ctx, os.Stdin, os.Stdout); err != nil {
			slog.Error("chat session failed", "err", err)
			os.Exit(1)
		}
	case "exec":
		prompt := flags.Arg(0)
		if prompt == "" {
			fmt.Fprintln(os.Stderr, "fatal: exec requires a prompt argument")
			os.Exit(2)
		}
		fmt.Println(runtime.Exec(ctx, prompt))
	case "index":
		files, err := runtime.Index(ctx)
		if err != nil {
			slog.Error("indexing failed", "err", err)
			os.Exit(1)
		}
		fmt.Printf("indexed %d files\n", files)
	case "history":
		turns, err := runtime.History(*historyLimit)
		if err != nil {
			slog.Error("could not read history", "err", err)
			os.Exit(1)
		}
		for _, t := range turns {
			fmt.Printf("%s  %s  iters=%d tools=%d\n  > %s\n",
				t.StartedAt.Format("2006-01-02 15:04:05"), t.RequestID, t.Iterations, t.ToolCalls, t.Request)
		}
	default:
		usage()
		os.Exit(2)
	}
}

// loadConfig reads the config file (falling back to ./takumi.yaml when it
// exists) and applies command-line overrides.
func loadConfig(path, workspace string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat("takumi.yaml"); err == nil {
			path = "takumi.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if workspace != "" {
		cfg.Agent.WorkspaceRoot = workspace
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: takumi <command> [flags]

commands:
  chat      interactive session
  exec      run a single prompt
  index     rebuild the semantic code index
  history   show recent turns
  version   print build information`)
}
