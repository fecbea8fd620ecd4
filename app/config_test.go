package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("../config.example.yaml")
	require.NoError(t, err)

	assert.Equal(t, All, cfg.Target)
	assert.Equal(t, 8080, cfg.Server.HTTPListenPort)
	assert.Equal(t, 3*time.Second, cfg.Resolver.ICY.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Resolver.API.Timeout)
	assert.Equal(t, []string{"utf-8", "iso-8859-1", "windows-1250"}, cfg.Resolver.ICY.Charsets)
	assert.Equal(t, 50, cfg.Resolver.Title.MaxLength)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: resolver\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, Resolver, cfg.Target)
	assert.Equal(t, 5*time.Second, cfg.Resolver.ICY.MetadataTimeout)
	assert.NotEmpty(t, cfg.Resolver.API.UserAgent)
	assert.NotEmpty(t, cfg.Resolver.Title.Keywords)
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver:\n  recorder: true\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
