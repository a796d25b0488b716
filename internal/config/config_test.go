package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/observability/log"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
		assert.Equal(t, log.LevelInfo, cfg.Level())
		assert.Equal(t, ecs.Sparse, cfg.Strategy())
	})

	t.Run("File then environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forge.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"log_level: debug\nworkers: 4\nframe_rate: 30\nstorage_strategy: hash\n"), 0o644))
		t.Setenv("FORGE_WORKERS", "8")
		t.Setenv("FORGE_REDIS_ADDR", "localhost:6379")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, log.LevelDebug, cfg.Level())
		assert.Equal(t, 8, cfg.Workers, "environment wins over the file")
		assert.Equal(t, 30, cfg.FrameRate)
		assert.Equal(t, ecs.Hash, cfg.Strategy())
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, "assets", cfg.AssetRoot, "untouched settings keep their default")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: [1"), 0o644))
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "chatty"
	cfg.StorageStrategy = "btree"
	cfg.Workers = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorIs(t, err, ecs.ErrUnknownStrategy)
	assert.Contains(t, err.Error(), "chatty")
	assert.Contains(t, err.Error(), "workers")
	assert.Equal(t, log.LevelInfo, cfg.Level())
}
