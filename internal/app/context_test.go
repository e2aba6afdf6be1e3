package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptboard/internal/config"
)

func TestLoadConfigDefaultsAndOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, config.ModeLLM, cfg.Interpret.Mode)

	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("interpret:\n  mode: heuristic\n"), 0o644))
	cfg, err = LoadConfig(dir, path)
	require.NoError(t, err)
	assert.Equal(t, config.ModeHeuristic, cfg.Interpret.Mode)
	assert.Equal(t, 4000, cfg.Interpret.MaxInputLength)
}

func TestChatClientWithoutCredentials(t *testing.T) {
	t.Setenv("AZURE_OPENAI_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_CHAT_COMPLETIONS_URL", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")

	client, err := ChatClient(context.Background(), config.Default(), nil)
	require.NoError(t, err)
	assert.Nil(t, client)

	cfg := config.Default()
	cfg.Interpret.Mode = config.ModeHeuristic
	t.Setenv("AZURE_OPENAI_KEY", "k")
	t.Setenv("AZURE_OPENAI_CHAT_COMPLETIONS_URL", "https://example.invalid/chat")
	client, err = ChatClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = ChatClient(context.Background(), config.Default(), nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestOpenMigratesWorkspace(t *testing.T) {
	t.Setenv(SecretEnv, "s")
	dir := t.TempDir()
	e, closeFn, err := Open(context.Background(), Options{Workspace: dir, Local: true})
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, "s", e.Secret)
	assert.False(t, e.LLMAvailable())
	_, err = e.ListHistory(context.Background(), "ada@example.com", 0)
	require.NoError(t, err)
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		logger, err := NewLogger(true, format)
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(-1), format)
	}
	_, err := NewLogger(false, "xml")
	assert.Error(t, err)
}
