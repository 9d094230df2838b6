// Package config loads application configuration from a YAML file with
// sensible defaults for every field.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QdrantConfig holds connection details for the vector store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ChunkingConfig controls the ingestion window geometry.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig controls retrieval breadth and prompt-context size.
type RetrievalConfig struct {
	TopKSummary   int `yaml:"top_k_summary"`
	TopKQuestion  int `yaml:"top_k_question"`
	ContextBudget int `yaml:"context_budget"`
}

// LLMConfig selects the completion model and its timeout.
type LLMConfig struct {
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Config is the root application configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DataDir: "data",
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{
			TopKSummary:   10,
			TopKQuestion:  5,
			ContextBudget: 3000,
		},
		LLM: LLMConfig{
			Model:       "",
			TimeoutSecs: 60,
		},
	}
}

// LLMTimeout returns the completion timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = def.Qdrant.Host
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = def.Qdrant.Port
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = def.Chunking.Size
	}
	if cfg.Retrieval.TopKSummary == 0 {
		cfg.Retrieval.TopKSummary = def.Retrieval.TopKSummary
	}
	if cfg.Retrieval.TopKQuestion == 0 {
		cfg.Retrieval.TopKQuestion = def.Retrieval.TopKQuestion
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = def.Retrieval.ContextBudget
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
}
