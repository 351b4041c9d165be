package polaris_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarisdb/polaris"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "polaris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
regions:
  - id: 1
    name: us_east
  - id: 2
    name: eu_west
refreshTimeoutMs: 2500
`)

	fc, err := polaris.LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, fc.Regions, 2)
	assert.Equal(t, int32(1), fc.Regions[0].ID)
	assert.Equal(t, "us_east", fc.Regions[0].Name)
	assert.Equal(t, int64(2500), fc.RefreshTimeoutMs)

	config := polaris.DefaultConfig()
	for _, opt := range fc.Options() {
		opt(config)
	}

	assert.Equal(t, "eu_west", config.RegionNames.Name(2))
	assert.Equal(t, 2500*time.Millisecond, config.RefreshTimeout)
}

func TestLoadConfigKeepsDefaultTimeoutWhenUnset(t *testing.T) {
	path := writeConfigFile(t, `
regions:
  - id: 1
    name: us_east
`)

	fc, err := polaris.LoadConfig(path)
	require.NoError(t, err)

	config := polaris.DefaultConfig()
	for _, opt := range fc.Options() {
		opt(config)
	}

	assert.Equal(t, 10*time.Second, config.RefreshTimeout)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := polaris.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfigFile(t, "regions: [unclosed")
		_, err := polaris.LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid region name", func(t *testing.T) {
		path := writeConfigFile(t, `
regions:
  - id: 1
    name: us-east
`)
		_, err := polaris.LoadConfig(path)
		require.Error(t, err)
	})
}

func TestDefaultConfig(t *testing.T) {
	config := polaris.DefaultConfig()

	assert.NotNil(t, config.Logger)
	assert.NotNil(t, config.Metrics)
	assert.Empty(t, config.RegionNames)
	assert.Equal(t, 10*time.Second, config.RefreshTimeout)
}
