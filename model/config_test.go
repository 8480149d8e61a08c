package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overlapOf(v int) *int {
	return &v
}

func TestDefaultConfig(t *testing.T) {
	t.Run("Defaults cover every field", func(t *testing.T) {
		c := DefaultConfig()

		assert.Equal(t, 512, c.ChunkSize)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 50, *c.Overlap)
		assert.Equal(t, "", c.PersistDirectory)
		assert.Equal(t, "papers", c.CollectionName)
		assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", c.EmbeddingModelName)
		assert.Equal(t, 2, c.MinClusterSize)
		assert.Equal(t, 2, c.EmbedRetries)
		assert.Equal(t, 2*time.Minute, c.EmbedTimeout)
		assert.NoError(t, c.Validate())
	})

	t.Run("Set fields survive applying defaults", func(t *testing.T) {
		c := &Config{ChunkSize: 256, CollectionName: "theses"}
		c.ApplyDefaults()

		assert.Equal(t, 256, c.ChunkSize)
		assert.Equal(t, "theses", c.CollectionName)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 50, *c.Overlap)
	})

	t.Run("Explicit zero overlap survives applying defaults", func(t *testing.T) {
		c := &Config{ChunkSize: 512, Overlap: overlapOf(0)}
		c.ApplyDefaults()

		require.NotNil(t, c.Overlap)
		assert.Equal(t, 0, *c.Overlap)
		assert.NoError(t, c.Validate())
	})
}

func TestConfigValidate(t *testing.T) {
	asConfigurationError := func(t *testing.T, err error) {
		t.Helper()
		require.Error(t, err)
		var configErr *ConfigurationError
		assert.True(t, errors.As(err, &configErr))
	}

	t.Run("Zero chunk size is rejected", func(t *testing.T) {
		asConfigurationError(t, (&Config{ChunkSize: 0, Overlap: overlapOf(0), MinClusterSize: 2}).Validate())
	})

	t.Run("Negative overlap is rejected", func(t *testing.T) {
		asConfigurationError(t, (&Config{ChunkSize: 512, Overlap: overlapOf(-1), MinClusterSize: 2}).Validate())
	})

	t.Run("Overlap equal to chunk size is rejected", func(t *testing.T) {
		asConfigurationError(t, (&Config{ChunkSize: 100, Overlap: overlapOf(100), MinClusterSize: 2}).Validate())
	})

	t.Run("Unset overlap is rejected", func(t *testing.T) {
		asConfigurationError(t, (&Config{ChunkSize: 512, MinClusterSize: 2}).Validate())
	})

	t.Run("Minimum cluster size below two is rejected", func(t *testing.T) {
		asConfigurationError(t, (&Config{ChunkSize: 512, Overlap: overlapOf(50), MinClusterSize: 1}).Validate())
	})

	t.Run("Zero overlap is valid", func(t *testing.T) {
		assert.NoError(t, (&Config{ChunkSize: 512, Overlap: overlapOf(0), MinClusterSize: 2}).Validate())
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		c, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

		require.NoError(t, err)
		assert.Equal(t, 512, c.ChunkSize)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 50, *c.Overlap)
	})

	t.Run("File values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "chunk_size: 256\noverlap: 32\ncollection_name: theses\npersist_directory: ./data\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		c, err := LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, 256, c.ChunkSize)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 32, *c.Overlap)
		assert.Equal(t, "theses", c.CollectionName)
		assert.Equal(t, "./data", c.PersistDirectory)
		assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", c.EmbeddingModelName)
	})

	t.Run("Explicit zero overlap in the file is kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("overlap: 0\n"), 0o644))

		c, err := LoadConfig(path)

		require.NoError(t, err)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 0, *c.Overlap)
		assert.Equal(t, 512, c.ChunkSize)
	})

	t.Run("Absent overlap in the file gets the default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunk_size: 256\n"), 0o644))

		c, err := LoadConfig(path)

		require.NoError(t, err)
		require.NotNil(t, c.Overlap)
		assert.Equal(t, 50, *c.Overlap)
	})

	t.Run("Malformed yaml is a configuration error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunk_size: [not an int"), 0o644))

		_, err := LoadConfig(path)

		require.Error(t, err)
		var configErr *ConfigurationError
		assert.True(t, errors.As(err, &configErr))
	})
}
