// Package app assembles the engine from a workspace for the CLI and server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptboard/internal/config"
	"promptboard/internal/db"
	"promptboard/internal/engine"
	"promptboard/internal/llm"
	"promptboard/internal/migrate"
)

// SecretEnv names the variable holding the session signing key.
const SecretEnv = "PROMPTBOARD_JWT_SECRET"

type Options struct {
	Workspace string
	// ConfigPath overrides <workspace>/promptboard.yml.
	ConfigPath string
	Logger     *zap.Logger
	// Local skips building the chat client even when the config asks for one.
	Local bool
}

// LoadConfig reads the config file, falling back to defaults when the
// workspace has none.
func LoadConfig(workspace, path string) (*config.Config, error) {
	if strings.TrimSpace(path) != "" {
		return config.FromFile(path)
	}
	return config.Load(workspace)
}

// ChatClient builds the configured chat client. It returns nil without an
// error when the config selects heuristic mode or no credentials are set, so
// callers run on the keyword classifier alone.
func ChatClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.ChatClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interpret.Mode == config.ModeHeuristic {
		return nil, nil
	}
	llmCfg := llm.LoadEnv(llm.Config{
		Provider:           cfg.LLM.Provider,
		ChatCompletionsURL: cfg.LLM.ChatCompletionsURL,
		Endpoint:           cfg.LLM.Endpoint,
		Deployment:         cfg.LLM.Deployment,
		APIVersion:         cfg.LLM.APIVersion,
		Model:              cfg.LLM.Model,
		Timeout:            cfg.LLM.Timeout,
	})
	client, err := llm.New(ctx, llmCfg, logger.Named("llm"))
	if errors.Is(err, llm.ErrNotConfigured) {
		logger.Warn("chat model not configured, using local interpretation", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("build chat client: %w", err)
	}
	return client, nil
}

// Open migrates the workspace database and returns an engine wired to it.
// The returned func closes the database.
func Open(ctx context.Context, opts Options) (engine.Engine, func() error, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := LoadConfig(opts.Workspace, opts.ConfigPath)
	if err != nil {
		return engine.Engine{}, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = logger
	e.Secret = os.Getenv(SecretEnv)
	e.Interpreter.Timeout = cfg.LLM.Timeout
	e.Interpreter.Logger = logger.Named("intent")
	if !opts.Local {
		chat, err := ChatClient(ctx, cfg, logger)
		if err != nil {
			conn.Close()
			return engine.Engine{}, nil, err
		}
		e.Interpreter.Chat = chat
	}
	return e, conn.Close, nil
}

// NewLogger builds the process logger. format is "console" or "json".
func NewLogger(verbose bool, format string) (*zap.Logger, error) {
	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
