package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zzenonn/cryptoshard/internal/config"
	apperr "github.com/zzenonn/cryptoshard/internal/errors"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.KRequired)
	assert.Equal(t, 5, cfg.MTotal)
}

func TestLoad_RejectsKGreaterThanM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k_required: 6\nm_total: 5\n"), 0o644))

	_, err := config.Load(path, nil)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestLoad_RejectsMismatchedNodeURLCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "k_required: 3\nm_total: 5\nnode_urls:\n  - http://a\n  - http://b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := config.Load(path, nil)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "k_required: 2\nm_total: 4\nnode_urls:\n  - http://a\n  - http://b\n  - http://c\n  - http://d\nmetadata_dir: /tmp/meta\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.KRequired)
	assert.Equal(t, 4, cfg.MTotal)
	assert.Equal(t, []string{"http://a", "http://b", "http://c", "http://d"}, cfg.NodeURLs)
	assert.Equal(t, "/tmp/meta", cfg.MetadataDir)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CRYPTOSHARD_LOG_LEVEL", "debug")
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
