package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.CurrentProfile)

	profile, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", profile.AdminURL)
}

func TestSaveAndReloadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.SaveProfile("staging", "http://staging:8080"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", reloaded.CurrentProfile)

	profile, err := reloaded.GetProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, "http://staging:8080", profile.AdminURL)
}

func TestGetProfileUnknownName(t *testing.T) {
	cfg := Default()
	_, err := cfg.GetProfile("missing")
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [not a map"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}
