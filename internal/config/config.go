package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeLLM       = "llm"
	ModeHeuristic = "heuristic"

	EnvProduction = "production"
)

// Config models promptboard.yml. Secrets never live here; they come from the
// environment.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		Env         string   `yaml:"env"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Interpret struct {
		Mode                    string `yaml:"mode"`
		MaxInputLength          int    `yaml:"max_input_length"`
		FallbackOnUpstreamError bool   `yaml:"fallback_on_upstream_error"`
	} `yaml:"interpret"`
	LLM   LLMConfig `yaml:"llm"`
	Auth  struct {
		TokenTTL time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type LLMConfig struct {
	Provider           string        `yaml:"provider"`
	ChatCompletionsURL string        `yaml:"chat_completions_url,omitempty"`
	Endpoint           string        `yaml:"endpoint,omitempty"`
	Deployment         string        `yaml:"deployment,omitempty"`
	APIVersion         string        `yaml:"api_version,omitempty"`
	Model              string        `yaml:"model,omitempty"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        float64       `yaml:"temperature"`
	MaxMessages        int           `yaml:"max_messages"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Secret         string   `yaml:"secret,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Production reports whether error details must be hidden from clients.
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Env), EnvProduction)
}

// Load reads and validates config from workspace. A missing file yields the
// defaults.
func Load(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Interpret.Mode {
	case ModeLLM, ModeHeuristic:
	default:
		return fmt.Errorf("config.interpret.mode must be %q or %q", ModeLLM, ModeHeuristic)
	}
	if c.Interpret.MaxInputLength <= 0 {
		return fmt.Errorf("config.interpret.max_input_length must be positive")
	}
	switch c.LLM.Provider {
	case "azure", "openai", "gemini":
	default:
		return fmt.Errorf("config.llm.provider must be azure, openai or gemini")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("config.llm.timeout must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config.llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxMessages <= 0 {
		return fmt.Errorf("config.llm.max_messages must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config.auth.token_ttl must be positive")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		for _, evt := range hook.Events {
			if strings.TrimSpace(evt) == "" {
				return fmt.Errorf("webhook %s has empty event type", hook.URL)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "promptboard.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /api
  env: development
  cors_origins:
    - http://localhost:5173

interpret:
  # llm reconciles a chat completion with the keyword classifier;
  # heuristic uses the classifier alone.
  mode: llm
  max_input_length: 4000
  fallback_on_upstream_error: false

llm:
  # azure | openai | gemini. Keys come from AZURE_OPENAI_KEY,
  # OPENAI_API_KEY or GEMINI_API_KEY.
  provider: azure
  timeout: 15s
  temperature: 0.2
  max_messages: 20

auth:
  token_ttl: 168h

webhooks: []
`
