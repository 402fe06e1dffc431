// Package config loads and validates the triage.yml configuration file.
// Secrets (API tokens) never live in the file; they come from the
// environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TriageConfig represents the top-level triage.yml configuration.
type TriageConfig struct {
	Version        string                `yaml:"version"`
	Pipeline       *PipelineConfig       `yaml:"pipeline,omitempty"`
	Sentiment      *SentimentConfig      `yaml:"sentiment,omitempty"`
	Classification *ClassificationConfig `yaml:"classification,omitempty"`
	Archive        *ArchiveConfig        `yaml:"archive,omitempty"`
}

// PipelineConfig holds engine-level settings.
type PipelineConfig struct {
	BusCapacity int `yaml:"bus_capacity,omitempty"` // Per-subscriber event buffer (default 16)
}

// SentimentConfig holds settings for the remote sentiment endpoint.
// The bearer token is read from HUGGING_FACE_API_TOKEN, not from the file.
type SentimentConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"` // Defaults to the HuggingFace inference route
}

// ClassificationConfig holds settings for the OpenAI classification call.
// The API key is read from OPENAI_API_KEY, not from the file.
type ClassificationConfig struct {
	Model     string `yaml:"model,omitempty"`      // Default: gpt-4.1-nano
	MaxTokens int    `yaml:"max_tokens,omitempty"` // Default: 50
	BaseURL   string `yaml:"base_url,omitempty"`   // Optional endpoint override
}

// ArchiveConfig enables the Redis archive sink for converged tickets.
type ArchiveConfig struct {
	RedisURL string `yaml:"redis_url"`       // e.g. redis://localhost:6379
	Evict    bool   `yaml:"evict,omitempty"` // Remove archived tickets from the live store
}

// Load reads, parses and validates a triage.yml file, applying defaults.
func Load(path string) (*TriageConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg TriageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no triage.yml exists.
func Default() *TriageConfig {
	cfg := &TriageConfig{Version: "1.0"}
	// Defaults are valid by construction.
	_ = cfg.Validate()
	return cfg
}

// Validate performs strict validation and fills in defaults.
func (c *TriageConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Pipeline == nil {
		c.Pipeline = &PipelineConfig{}
	}
	if c.Pipeline.BusCapacity < 0 {
		return fmt.Errorf("pipeline.bus_capacity must be >= 0, got %d", c.Pipeline.BusCapacity)
	}

	if c.Sentiment == nil {
		c.Sentiment = &SentimentConfig{}
	}

	if c.Classification == nil {
		c.Classification = &ClassificationConfig{}
	}
	if c.Classification.MaxTokens < 0 {
		return fmt.Errorf("classification.max_tokens must be >= 0, got %d", c.Classification.MaxTokens)
	}

	if c.Archive != nil && c.Archive.RedisURL == "" {
		return fmt.Errorf("archive.redis_url is required when archive is configured")
	}

	return nil
}
