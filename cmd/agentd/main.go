// Command agentd runs the agent service: it wires the configured model
// provider, the sandboxed workspace tools and the orchestration loop into
// an HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yoyo-67/ai-agent-mvp/agent"
	"github.com/yoyo-67/ai-agent-mvp/config"
	"github.com/yoyo-67/ai-agent-mvp/logging"
	"github.com/yoyo-67/ai-agent-mvp/model"
	anthropicmodel "github.com/yoyo-67/ai-agent-mvp/model/anthropic"
	openaimodel "github.com/yoyo-67/ai-agent-mvp/model/openai"
	"github.com/yoyo-67/ai-agent-mvp/server"
	"github.com/yoyo-67/ai-agent-mvp/tool"
	"github.com/yoyo-67/ai-agent-mvp/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ws, err := workspace.New(cfg.WorkspaceRoot)
	if err != nil {
		logger.Error("workspace init failed", "error", err.Error())
		os.Exit(1)
	}

	llm, err := buildModel(cfg)
	if err != nil {
		logger.Error("model init failed", "error", err.Error())
		os.Exit(1)
	}

	registry := tool.NewRegistry(tool.FileTools(ws)...)

	loop := agent.New(llm, registry, func(o *agent.Options) {
		o.MaxToolTurns = cfg.MaxToolTurns
		o.TurnTimeout = time.Duration(cfg.TurnTimeoutSeconds) * time.Second
		o.Logger = logger
	})

	srv := server.New(loop, llm.Info(), func(o *server.Options) {
		o.DefaultModel = cfg.Model
		o.MetricsEnabled = cfg.MetricsEnabled
		o.ProviderConfigured = cfg.OpenAIAPIKey != "" || cfg.AnthropicAPIKey != ""
		o.Logger = logger
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info(
		"agent service starting",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"workspace", ws.Root(),
		"metrics_enabled", cfg.MetricsEnabled,
	)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
	}
}

// buildModel selects the provider adapter from configuration.
func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		// The SDK reads OPENAI_API_KEY from the environment.
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = cfg.Model
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
