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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(50*1024*1024), cfg.Upload.MaxTotalSize)
	assert.Equal(t, int64(64*1024), cfg.Upload.MinChunkSize)
	assert.Equal(t, int64(16*1024*1024), cfg.Upload.MaxChunkSize)
	assert.Equal(t, 10, cfg.Upload.MaxBatchFiles)
	assert.Contains(t, cfg.Upload.AllowedExtensions, ".pdf")
	assert.Equal(t, 24*time.Hour, cfg.Upload.SessionTTL())
	assert.Equal(t, 512, cfg.Chunking.TargetTokens)
	assert.Equal(t, 100, cfg.Chunking.MinTokens)
	assert.Equal(t, 10*time.Minute, cfg.Sweeper.Interval())
	assert.Equal(t, 30*time.Second, cfg.Scan.Timeout())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
upload:
  session_ttl_hours: 2
  max_total_size: 1024
  allowed_extensions: [".txt"]
chunking:
  target_tokens: 64
  overlap_tokens: 8
  min_tokens: 16
sweeper:
  interval_minutes: 1
scan:
  enabled: true
  fail_open: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Upload.SessionTTL())
	assert.Equal(t, int64(1024), cfg.Upload.MaxTotalSize)
	assert.Equal(t, []string{".txt"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, 64, cfg.Chunking.TargetTokens)
	assert.Equal(t, 8, cfg.Chunking.OverlapTokens)
	assert.Equal(t, time.Minute, cfg.Sweeper.Interval())
	assert.True(t, cfg.Scan.Enabled)
	assert.False(t, cfg.Scan.FailOpen)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
