package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                `json:"app" yaml:"app"`
	Server    ServerConfig             `json:"server" yaml:"server"`
	Gateways  map[string]GatewayConfig `json:"gateways" yaml:"gateways"`
	Providers []ProviderConfig         `json:"providers" yaml:"providers"`
	Memory    MemoryConfig             `json:"memory" yaml:"memory"`
	Engine    EngineConfig             `json:"engine" yaml:"engine"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
	Prompts   string `json:"prompts" yaml:"prompts"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// ProviderConfig describes one entry in the model fallback chain. Order
// in the list is fallback priority.
type ProviderConfig struct {
	Name    string `json:"name" yaml:"name"`
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite" or "memory"
	Path string `json:"path" yaml:"path"`
}

type EngineConfig struct {
	MaxConcurrency      int `json:"max_concurrency" yaml:"max_concurrency"`
	ToolTimeoutSeconds  int `json:"tool_timeout_seconds" yaml:"tool_timeout_seconds"`
	ModelTimeoutSeconds int `json:"model_timeout_seconds" yaml:"model_timeout_seconds"`
	HistoryWindow       int `json:"history_window" yaml:"history_window"`
}

// LoadConfig reads a JSON or YAML config file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %v", err)
	}
	// Secrets stay in the environment; ${VAR} references are expanded here.
	data := []byte(os.ExpandEnv(string(raw)))

	var cfg Config
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %v", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %v", err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "voyager"
	}
	if c.App.Workspace == "" {
		c.App.Workspace = "./workspace"
	}
	if c.App.Prompts == "" {
		c.App.Prompts = "./prompts"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Memory.Type == "" {
		c.Memory.Type = "sqlite"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "voyager.db"
	}
	if c.Engine.MaxConcurrency <= 0 {
		c.Engine.MaxConcurrency = 4
	}
	if c.Engine.ToolTimeoutSeconds <= 0 {
		c.Engine.ToolTimeoutSeconds = 30
	}
	if c.Engine.ModelTimeoutSeconds <= 0 {
		c.Engine.ModelTimeoutSeconds = 60
	}
	if c.Engine.HistoryWindow <= 0 {
		c.Engine.HistoryWindow = 12
	}
}

// ProviderChain returns the enabled providers in fallback order.
func (c *Config) ProviderChain() []ProviderConfig {
	var chain []ProviderConfig
	for _, p := range c.Providers {
		if p.Enabled {
			chain = append(chain, p)
		}
	}
	return chain
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}

func (c *EngineConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}

func (c *EngineConfig) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}
