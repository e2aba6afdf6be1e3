package llm

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTimeout     = 15 * time.Second
)

// Config selects and configures a chat-completion provider. APIKey is never
// read from files; LoadEnv fills it from the environment.
type Config struct {
	Provider           string
	ChatCompletionsURL string
	Endpoint           string
	Deployment         string
	APIVersion         string
	Model              string
	APIKey             string
	Timeout            time.Duration
}

// LoadEnv overlays provider settings from the environment. Explicit values
// already in cfg win over the environment except for the key.
func LoadEnv(cfg Config) Config {
	switch cfg.Provider {
	case ProviderAzure, "":
		cfg.APIKey = firstEnv("AZURE_OPENAI_KEY", "AZURE_OPENAI_API_KEY")
		cfg.ChatCompletionsURL = orEnv(cfg.ChatCompletionsURL, "AZURE_OPENAI_CHAT_COMPLETIONS_URL")
		cfg.Endpoint = orEnv(cfg.Endpoint, "AZURE_OPENAI_ENDPOINT")
		cfg.Deployment = orEnv(cfg.Deployment, "AZURE_OPENAI_DEPLOYMENT")
		cfg.APIVersion = orEnv(cfg.APIVersion, "AZURE_OPENAI_API_VERSION")
	case ProviderOpenAI:
		cfg.APIKey = firstEnv("OPENAI_API_KEY")
	case ProviderGemini:
		cfg.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	return cfg
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func orEnv(current, name string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return firstEnv(name)
}

// AzureChatCompletionsURL resolves the Azure deployment URL: an explicit
// chat/completions URL wins, otherwise endpoint, deployment and api version
// are all required.
func AzureChatCompletionsURL(cfg Config) (string, error) {
	if u := strings.TrimSpace(cfg.ChatCompletionsURL); u != "" {
		return u, nil
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	deployment := strings.TrimSpace(cfg.Deployment)
	version := strings.TrimSpace(cfg.APIVersion)
	if endpoint == "" || deployment == "" || version == "" {
		return "", fmt.Errorf("%w: provide chat_completions_url or endpoint, deployment and api_version", ErrNotConfigured)
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		endpoint, url.PathEscape(deployment), url.QueryEscape(version)), nil
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ChatClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch cfg.Provider {
	case ProviderAzure, "":
		u, err := AzureChatCompletionsURL(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: missing AZURE_OPENAI_KEY", ErrNotConfigured)
		}
		return newHTTPClient(ProviderAzure, u, "", "api-key", cfg.APIKey, timeout, logger), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", ErrNotConfigured)
		}
		u := cfg.ChatCompletionsURL
		if u == "" {
			u = DefaultOpenAIURL
		}
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return newHTTPClient(ProviderOpenAI, u, model, "Authorization", cfg.APIKey, timeout, logger), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: missing GEMINI_API_KEY", ErrNotConfigured)
		}
		model := cfg.Model
		if model == "" {
			model = DefaultGeminiModel
		}
		return newGeminiClient(ctx, cfg.APIKey, model, cfg.Endpoint, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
