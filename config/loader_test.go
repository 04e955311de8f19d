package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artfetch/artfetch/types"
)

func TestDefaults(t *testing.T) {
	cfg := NewLoader().Defaults()

	assert.Equal(t, "artfetch", cfg.Name)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "artfetch", cfg.Store.KeyPrefix)

	assert.Equal(t, "https://collectionapi.metmuseum.org/public/collection/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Upstream.ListingTimeout)
	assert.True(t, cfg.Upstream.CircuitBreaker.Enabled)

	assert.Equal(t, 70, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 50*time.Millisecond, cfg.RateLimit.Buffer)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.EntryTTL)

	assert.Equal(t, 30*time.Second, cfg.Locks.Lease)
	assert.Equal(t, 100*time.Millisecond, cfg.Locks.Wait)

	assert.Equal(t, time.Hour, cfg.Fetch.ObjectTTL)
	assert.Equal(t, 24*time.Hour, cfg.Fetch.ListingTTL)
	assert.Equal(t, time.Hour, cfg.Fetch.PageTTL)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, cfg.Fetch.RetryDelays)
	assert.Equal(t, 50, cfg.Fetch.MaxConcurrent)
	assert.Equal(t, 1.5, cfg.Fetch.Oversample)

	assert.False(t, cfg.Warm.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
name: "artfetch-test"
store:
  type: "redis"
  key_prefix: "art_test"
rate_limit:
  max_requests: 10
  window: 2s
warm:
  enabled: true
  first_pages: 2
`)

	cfg, err := NewLoader().LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "artfetch-test", cfg.Name)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "art_test", cfg.Store.KeyPrefix)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.Warm.Enabled)
	assert.Equal(t, 2, cfg.Warm.FirstPages)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Locks.Lease)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := NewLoader().LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromFileEmptyPath(t *testing.T) {
	_, err := NewLoader().LoadFromFile("")
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := writeConfig(t, "name: [unclosed")

	_, err := NewLoader().LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoadFromFileValidation(t *testing.T) {
	path := writeConfig(t, `
name: "artfetch-test"
store:
  type: "cassandra"
`)

	_, err := NewLoader().LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestManagerWithEmptyPathUsesDefaults(t *testing.T) {
	mgr, err := NewManager("")
	require.NoError(t, err)

	cfg := mgr.GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "artfetch", cfg.Name)
}

func TestManagerFromConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Name = "embedded"

	mgr, err := NewManagerFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "embedded", mgr.GetConfig().Name)

	_, err = NewManagerFromConfig(nil)
	assert.ErrorIs(t, err, types.ErrConfigIsNil)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
