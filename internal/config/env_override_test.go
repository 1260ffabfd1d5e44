package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_Credentials(t *testing.T) {
	t.Run("FIXITY_USER overrides file value", func(t *testing.T) {
		t.Setenv("FIXITY_USER", "ci:hunter2")

		cfg := &Config{User: "file:creds"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "ci:hunter2", cfg.User)
	})

	t.Run("empty env leaves file value", func(t *testing.T) {
		t.Setenv("FIXITY_USER", "")

		cfg := &Config{User: "file:creds"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "file:creds", cfg.User)
	})
}

func TestEnvOverrides_HistoryDB(t *testing.T) {
	t.Setenv("FIXITY_HISTORY_DB", "/var/lib/fixity/runs.db")

	cfg := &Config{}
	cfg.applyEnvOverrides()

	assert.Equal(t, "/var/lib/fixity/runs.db", cfg.HistoryDB)
}

func TestEnvOverrides_AppliedByLoad(t *testing.T) {
	t.Setenv("FIXITY_USER", "env:creds")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "mode: export\nrepository: http://localhost:8080/rest\ndir: /data/export\nuser: file:creds\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env:creds", cfg.User)
	assert.Equal(t, "http://localhost:8080/rest", cfg.Repository)
}
