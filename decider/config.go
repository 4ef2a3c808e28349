package decider

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edyhq/decider-go/core"
)

// Weights blend the three candidate features into the salience score.
// They must sum to 1.
type Weights struct {
	Relevance   float64 `yaml:"relevance"`
	Specificity float64 `yaml:"specificity"`
	Confidence  float64 `yaml:"confidence"`
}

// Config holds pipeline configuration.
type Config struct {
	// Weights for the salience blend.
	Weights Weights `yaml:"weights"`

	// Thresholds maps each memory type to its acceptance threshold.
	Thresholds map[core.MemoryType]float64 `yaml:"thresholds"`

	// BufferThreshold is the global floor below which candidates are
	// rejected outright. Scores in [BufferThreshold, type threshold) are
	// buffered for review. Must not exceed any type threshold, or buffer
	// never triggers for that type.
	BufferThreshold float64 `yaml:"buffer_threshold"`

	// SimilarityThreshold is the Jaccard similarity at or above which two
	// texts are considered duplicates.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// DedupWindow bounds how many recent stored memories the Deduper
	// compares candidates against.
	DedupWindow int `yaml:"dedup_window"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{Relevance: 0.4, Specificity: 0.3, Confidence: 0.3},
		Thresholds: map[core.MemoryType]float64{
			core.MemoryTypePreference: 0.5,
			core.MemoryTypeGoal:       0.6,
			core.MemoryTypeCommitment: 0.7,
			core.MemoryTypeSkill:      0.6,
			core.MemoryTypeFeedback:   0.5,
		},
		BufferThreshold:     0.5,
		SimilarityThreshold: 0.85,
		DedupWindow:         1000,
	}
}

// LoadConfig reads a YAML config file over the defaults and validates the
// result. Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Threshold returns the acceptance threshold for a memory type, falling
// back to 0.7 for types missing from the map.
func (c *Config) Threshold(t core.MemoryType) float64 {
	if th, ok := c.Thresholds[t]; ok {
		return th
	}
	return 0.7
}

// Validate rejects configurations that would make the pipeline misbehave
// silently, in particular a buffer threshold above a type threshold (which
// would mean buffering never triggers for that type).
func (c *Config) Validate() error {
	if sum := c.Weights.Relevance + c.Weights.Specificity + c.Weights.Confidence; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	if c.Weights.Relevance < 0 || c.Weights.Specificity < 0 || c.Weights.Confidence < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.BufferThreshold < 0 || c.BufferThreshold > 1 {
		return fmt.Errorf("buffer threshold %v outside [0,1]", c.BufferThreshold)
	}
	for t, th := range c.Thresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("%s threshold %v outside [0,1]", t, th)
		}
		if c.BufferThreshold > th {
			return fmt.Errorf("buffer threshold %v above %s threshold %v", c.BufferThreshold, t, th)
		}
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %v outside [0,1]", c.SimilarityThreshold)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive, got %d", c.DedupWindow)
	}
	return nil
}
