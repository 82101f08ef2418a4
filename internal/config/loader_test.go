package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "libsql", cfg.Store.Driver)
	require.Equal(t, "http://localhost:1234/v1/chat/completions", cfg.Model.Endpoint)
	require.Equal(t, 2048, cfg.Model.MaxTokens)
	require.Equal(t, 2*time.Minute, cfg.Model.Timeout)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "promptlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
model:
  endpoint: http://models.internal:8000/v1
  model: qwen2-vl
  timeout: 45s
imaging:
  max_edge: 1024
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "http://models.internal:8000/v1", cfg.Model.Endpoint)
	require.Equal(t, "qwen2-vl", cfg.Model.Model)
	require.Equal(t, 45*time.Second, cfg.Model.Timeout)
	require.Equal(t, 1024, cfg.Imaging.MaxEdge)

	// Unset keys fall back to defaults.
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PROMPTLENS_MODEL_MODEL", "llava-next")
	t.Setenv("PROMPTLENS_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "llava-next", cfg.Model.Model)
	require.Equal(t, 7070, cfg.Server.Port)
}
