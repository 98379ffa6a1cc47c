// Package config provides configuration loading for insightd.
//
// Configuration is loaded from an optional YAML file overridden by
// environment variables, with hardcoded defaults underneath.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete insightd configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	LLM    LLMConfig    `koanf:"llm"`
	NATS   NATSConfig   `koanf:"nats"`
	Store  StoreConfig  `koanf:"store"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
	Format string `koanf:"format"` // "json" or "console"
}

// LLMConfig holds completion-provider configuration.
type LLMConfig struct {
	Provider  string `koanf:"provider"` // "disabled", "anthropic", "openai"
	Model     string `koanf:"model"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int    `koanf:"max_tokens"`
	Timeout   int    `koanf:"timeout"` // seconds
}

// NATSConfig holds the optional invalidation-bus configuration.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// StoreConfig holds the proposals file store configuration.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9180,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Provider: "disabled",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Store: StoreConfig{
			Path: "", // resolved to ~/.config/insightd/proposals.json at startup
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}

	switch c.LLM.Provider {
	case "", "disabled", "anthropic", "openai":
	default:
		return fmt.Errorf("invalid llm provider: %q", c.LLM.Provider)
	}
	if (c.LLM.Provider == "anthropic" || c.LLM.Provider == "openai") && c.LLM.APIKey == "" {
		return fmt.Errorf("llm provider %q requires an api key", c.LLM.Provider)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats url required when nats is enabled")
	}

	return nil
}
