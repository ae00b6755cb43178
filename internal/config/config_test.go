package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syncer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
active_profile: dev
profiles:
  dev:
    ledger_url: localhost:6865
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.GraphStore.BatchSize)
	assert.Equal(t, 1, cfg.GraphStore.FlushTimeoutSecs)
	assert.Equal(t, 60, cfg.GraphStore.IdleTimeoutSecs)
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
graph_store:
  batch_size: 50
  flush_timeout_secs: 5
  idle_timeout_secs: 30
active_profile: dev
profiles:
  dev:
    ledger_url: localhost:6865
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.GraphStore.BatchSize)
	assert.Equal(t, 5, cfg.GraphStore.FlushTimeoutSecs)
	assert.Equal(t, 30, cfg.GraphStore.IdleTimeoutSecs)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelectedProfileUsesActiveByDefault(t *testing.T) {
	cfg := &Config{
		ActiveProfile: "dev",
		Profiles: map[string]Profile{
			"dev":  {LedgerURL: "localhost:6865"},
			"prod": {LedgerURL: "ledger.example.com:6865"},
		},
	}

	profile, err := cfg.SelectedProfile("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6865", profile.LedgerURL)
}

func TestSelectedProfileOverrideWins(t *testing.T) {
	cfg := &Config{
		ActiveProfile: "dev",
		Profiles: map[string]Profile{
			"dev":  {LedgerURL: "localhost:6865"},
			"prod": {LedgerURL: "ledger.example.com:6865"},
		},
	}

	profile, err := cfg.SelectedProfile("prod")
	require.NoError(t, err)
	assert.Equal(t, "ledger.example.com:6865", profile.LedgerURL)
}

func TestSelectedProfileUnknownNameIsError(t *testing.T) {
	cfg := &Config{ActiveProfile: "dev", Profiles: map[string]Profile{"dev": {}}}

	_, err := cfg.SelectedProfile("staging")
	assert.Error(t, err)
}

func TestSelectedProfileNoneConfiguredIsError(t *testing.T) {
	cfg := &Config{Profiles: map[string]Profile{}}

	_, err := cfg.SelectedProfile("")
	assert.Error(t, err)
}
