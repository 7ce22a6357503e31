package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "abc123", cfg.DefaultSessionID)
	require.Equal(t, "안녕하세요.", cfg.Greeting)
	require.NotEmpty(t, cfg.SystemPrompt)

	model, ok := cfg.Model(cfg.DefaultModel)
	require.True(t, ok)
	require.Equal(t, "openai", model.Provider)
	require.Equal(t, "secret:OPENAI_API_KEY", model.APIKey)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_model: local
models:
  - name: local
    provider: ollama
    model_name: llama3
    base_url: http://localhost:11434
title: Demo
max_history_tokens: 512
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.DefaultModel)
	require.Equal(t, "Demo", cfg.Title)
	require.Equal(t, 512, cfg.MaxHistoryTokens)
	// 未配置的字段保留默认值
	require.Equal(t, "abc123", cfg.DefaultSessionID)
	require.Equal(t, "안녕하세요.", cfg.Greeting)

	_, ok := cfg.Model("openai")
	require.False(t, ok)
	local, ok := cfg.Model("local")
	require.True(t, ok)
	require.Equal(t, "llama3", local.ModelName)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [oops"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
