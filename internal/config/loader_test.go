package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider.Kind)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
	assert.Equal(t, 25, cfg.Agent.MaxRounds)
	assert.Equal(t, 0.7, cfg.Agent.PruneThreshold)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Tools.EnableGit)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
provider:
  kind: gollm
  backend: anthropic
agent:
  model: claude-sonnet-4
  max_rounds: 10
  request_timeout: 90s
session:
  store: sqlite
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gollm", cfg.Provider.Kind)
	assert.Equal(t, "anthropic", cfg.Provider.Backend)
	assert.Equal(t, "claude-sonnet-4", cfg.Agent.Model)
	assert.Equal(t, 10, cfg.Agent.MaxRounds)
	assert.Equal(t, 90*time.Second, cfg.Agent.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields still get defaults.
	assert.Equal(t, 4096, cfg.Agent.MaxTokens)
	assert.Equal(t, 2, cfg.Agent.ShrinkFactor)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "agent: [not: a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWin(t *testing.T) {
	path := writeConfig(t, "agent:\n  model: from-file\n")
	t.Setenv("AIDE_MODEL", "from-env")
	t.Setenv("AIDE_MAX_ROUNDS", "7")
	t.Setenv("AIDE_LOG_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Agent.Model)
	assert.Equal(t, 7, cfg.Agent.MaxRounds)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestAPIKeyExpansion(t *testing.T) {
	path := writeConfig(t, "provider:\n  api_key: ${TEST_AIDE_KEY}\n")
	t.Setenv("TEST_AIDE_KEY", "sk-expanded")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-expanded", cfg.Provider.APIKey)
}

func TestAPIKeyExpansionUnsetVar(t *testing.T) {
	path := writeConfig(t, "provider:\n  api_key: ${TEST_AIDE_UNSET_KEY}\n")
	os.Unsetenv("TEST_AIDE_UNSET_KEY")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Provider.APIKey)
}

func TestSessionDir(t *testing.T) {
	cfg := Defaults()
	cfg.Session.Dir = "/tmp/custom"
	assert.Equal(t, "/tmp/custom", cfg.SessionDir())

	cfg.Session.Dir = ""
	assert.Contains(t, cfg.SessionDir(), ".aide/sessions")
}
