package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModeLLM, cfg.Interpret.Mode)
	assert.Equal(t, 4000, cfg.Interpret.MaxInputLength)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.False(t, cfg.Production())
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
server:
  env: Production
llm:
  provider: gemini
webhooks:
  - url: https://hooks.example.com/pb
    events: [task.create]
`))
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 20, cfg.LLM.MaxMessages)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"task.create"}, cfg.Webhooks[0].Events)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"mode":      "interpret:\n  mode: magic\n",
		"length":    "interpret:\n  max_input_length: 0\n",
		"provider":  "llm:\n  provider: bard\n",
		"temp":      "llm:\n  temperature: 3\n",
		"base path": "server:\n  base_path: api\n",
		"hook url":  "webhooks:\n  - url: ''\n",
		"yaml":      "server: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(Path(dir), []byte(GenerateDefault()), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
