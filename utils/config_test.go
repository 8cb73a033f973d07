package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "models", cfg.RegistryPath)
		assert.Equal(t, 14, cfg.Training.Horizon)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
data_path: /data/plant.csv
logging:
  level: debug
  format: json
training:
  target: effluent_bod
  horizon: 30
  window_sizes: [3, 7]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/data/plant.csv", cfg.DataPath)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "effluent_bod", cfg.Training.Target)
		assert.Equal(t, 30, cfg.Training.Horizon)
		assert.Equal(t, []int{3, 7}, cfg.Training.WindowSizes)

		// Unset fields keep their defaults.
		assert.Equal(t, "models", cfg.RegistryPath)
		assert.Equal(t, 5000, cfg.Training.MaxRows)
		assert.Equal(t, 0.2, cfg.Training.TestSize)
	})

	t.Run("zero values are backfilled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
training:
  max_rows: 0
  horizon: -5
  test_size: 0
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Training.MaxRows)
		assert.Equal(t, 14, cfg.Training.Horizon)
		assert.Equal(t, 0.2, cfg.Training.TestSize)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("training: [not a map"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}
