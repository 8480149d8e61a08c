package model

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized configuration options for a paper collection.
// Zero values are replaced by defaults in ApplyDefaults; Validate rejects
// combinations that would corrupt shared invariants.
type Config struct {
	// Chunking. Overlap is a pointer so an explicitly configured zero stays
	// distinguishable from an absent value, which gets the default.
	ChunkSize int  `yaml:"chunk_size"`
	Overlap   *int `yaml:"overlap"`

	// Storage. An empty PersistDirectory selects the ephemeral in-memory
	// store, which guarantees nothing across restarts.
	PersistDirectory string `yaml:"persist_directory"`
	CollectionName   string `yaml:"collection_name"`

	// Embedding provider
	EmbeddingModelName string `yaml:"embedding_model_name"`
	ModelsDirectory    string `yaml:"models_directory"`

	// Clustering
	MinClusterSize int `yaml:"min_cluster_size"`

	// Retry/timeout bounds for external calls. Expiry is surfaced as a
	// per-document failure, not a process crash.
	EmbedRetries   int           `yaml:"embed_retries"`
	EmbedTimeout   time.Duration `yaml:"embed_timeout"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadConfig reads a yaml configuration file. A missing file yields the
// defaults rather than an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parse %v: %v", path, err)}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with their default values.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 512
	}
	if c.Overlap == nil {
		overlap := 50
		c.Overlap = &overlap
	}
	if c.CollectionName == "" {
		c.CollectionName = "papers"
	}
	if c.EmbeddingModelName == "" {
		c.EmbeddingModelName = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.ModelsDirectory == "" {
		c.ModelsDirectory = "./models"
	}
	if c.MinClusterSize == 0 {
		c.MinClusterSize = 2
	}
	if c.EmbedRetries == 0 {
		c.EmbedRetries = 2
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = 2 * time.Minute
	}
	if c.ExtractTimeout == 0 {
		c.ExtractTimeout = time.Minute
	}
}

// Validate checks the chunking and clustering parameters. An overlap equal
// to or larger than the chunk size would make the window step non-positive
// and loop forever, so it is rejected here rather than at chunking time.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("chunk_size must be positive, got %v", c.ChunkSize)}
	}
	if c.Overlap == nil {
		return &ConfigurationError{Reason: "overlap is not set, apply defaults first"}
	}
	if *c.Overlap < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("overlap cannot be negative, got %v", *c.Overlap)}
	}
	if *c.Overlap >= c.ChunkSize {
		return &ConfigurationError{Reason: fmt.Sprintf("overlap %v must be less than chunk_size %v", *c.Overlap, c.ChunkSize)}
	}
	if c.MinClusterSize < 2 {
		return &ConfigurationError{Reason: fmt.Sprintf("min_cluster_size must be at least 2, got %v", c.MinClusterSize)}
	}
	if c.EmbedRetries < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("embed_retries cannot be negative, got %v", c.EmbedRetries)}
	}
	return nil
}

// QueryConfig represents configuration for a retrieval query.
type QueryConfig struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	Filter              *Filter `json:"filter,omitempty"`
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		TopK:                5,
		SimilarityThreshold: 0,
	}
}
