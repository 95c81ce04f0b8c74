// Package config loads service configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the agent service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8000"`

	// Model provider selection: openai or anthropic
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// Provider credentials. Only the selected provider's key is required.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY" default:""`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY" default:""`

	// Model is the default model identifier; requests may override it.
	Model string `envconfig:"MODEL" default:"gpt-4o"`

	// WorkspaceRoot is the sandbox directory all file tools operate in.
	WorkspaceRoot string `envconfig:"WORKSPACE_ROOT" default:"./workspace"`

	// MaxToolTurns caps consecutive tool-call turns within one run.
	MaxToolTurns int `envconfig:"MAX_TOOL_TURNS" default:"16"`

	// TurnTimeoutSeconds bounds each completion request; 0 disables it.
	TurnTimeoutSeconds int `envconfig:"TURN_TIMEOUT_SECONDS" default:"120"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`   // debug, info, warn, error
	LogFormat      string `envconfig:"LOG_FORMAT" default:"json"`  // json or text
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables. It first attempts to
// load a .env file if one exists, then processes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized
// deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("unknown PROVIDER %q (expected openai or anthropic)", c.Provider)
	}
	if c.MaxToolTurns <= 0 {
		return fmt.Errorf("MAX_TOOL_TURNS must be positive")
	}
	return nil
}
