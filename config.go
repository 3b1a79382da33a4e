// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package haystack

import (
	"fmt"
	"os"
	"time"

	"github.com/poiesic/haystack/compare"
	"github.com/poiesic/haystack/index"
	"github.com/poiesic/haystack/scheduler"
	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings of an Engine.
type Config struct {
	// Comparison is the name of the default comparison strategy.
	// Default: "bitap"
	Comparison string `yaml:"comparison"`

	// Limit caps the number of results. Zero means no limit.
	Limit int `yaml:"limit"`

	// ApplyPreProcessorsToTerm runs the preprocessors over search terms too.
	// Index retrieval always preprocesses regardless of this setting.
	// Default: true
	ApplyPreProcessorsToTerm bool `yaml:"apply_preprocessors_to_term"`

	// MaxThreads bounds concurrent comparison tasks on the async paths.
	// Zero uses the number of CPUs; -1 removes the bound.
	MaxThreads int `yaml:"max_threads"`

	// MaxIdleTime is how long idle execution contexts are kept.
	// Default: 10s
	MaxIdleTime time.Duration `yaml:"max_idle_time"`

	// CacheSize is the number of query results memoized by the planner.
	// Zero disables the cache.
	CacheSize int `yaml:"cache_size"`

	// Index configures the inverted index.
	Index IndexConfig `yaml:"index"`
}

// IndexConfig configures the inverted index.
type IndexConfig struct {
	// Enable builds an index when the engine is created.
	Enable bool `yaml:"enable"`

	// Tokenizer is "word" or "prefix".
	// Default: "word"
	Tokenizer string `yaml:"tokenizer"`

	// StopWords are dropped by the word tokenizer.
	StopWords []string `yaml:"stop_words"`

	// FuzzyErrors is the error budget for expanding query tokens onto indexed
	// tokens in non-exact retrieval.
	// Default: 1
	FuzzyErrors int `yaml:"fuzzy_errors"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithComparison sets the default comparison strategy.
func WithComparison(name string) ConfigOption {
	return func(c *Config) {
		c.Comparison = name
	}
}

// WithLimit caps the number of results.
func WithLimit(limit int) ConfigOption {
	return func(c *Config) {
		c.Limit = limit
	}
}

// WithApplyPreProcessorsToTerm controls term preprocessing.
func WithApplyPreProcessorsToTerm(apply bool) ConfigOption {
	return func(c *Config) {
		c.ApplyPreProcessorsToTerm = apply
	}
}

// WithMaxThreads bounds concurrent comparison tasks.
func WithMaxThreads(n int) ConfigOption {
	return func(c *Config) {
		c.MaxThreads = n
	}
}

// WithMaxIdleTime sets the idle eviction delay of execution contexts.
func WithMaxIdleTime(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxIdleTime = d
	}
}

// WithCacheSize enables the query result cache.
func WithCacheSize(size int) ConfigOption {
	return func(c *Config) {
		c.CacheSize = size
	}
}

// WithIndex enables the inverted index with the given tokenizer.
func WithIndex(tokenizer string, stopWords ...string) ConfigOption {
	return func(c *Config) {
		c.Index.Enable = true
		c.Index.Tokenizer = tokenizer
		c.Index.StopWords = stopWords
	}
}

// DefaultConfig returns a Config with the default settings.
func DefaultConfig() *Config {
	return &Config{
		Comparison:               compare.DefaultStrategy,
		ApplyPreProcessorsToTerm: true,
		MaxIdleTime:              scheduler.DefaultMaxIdleTime,
		Index: IndexConfig{
			Tokenizer:   index.TokenizerWord,
			FuzzyErrors: index.DefaultFuzzyErrors,
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//		WithComparison("bitap1"),
//		WithIndex("word", "the", "a"),
//		WithLimit(20),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadConfig reads a YAML file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.Comparison == "" {
		return fmt.Errorf("%w: comparison is required", ErrInvalidConfig)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidConfig)
	}
	if c.MaxThreads < scheduler.Unlimited {
		return fmt.Errorf("%w: max_threads must be -1, 0 or positive", ErrInvalidConfig)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	}
	if c.Index.FuzzyErrors < 0 {
		return fmt.Errorf("%w: index.fuzzy_errors must not be negative", ErrInvalidConfig)
	}
	if _, err := index.TokenizerByName(c.Index.Tokenizer); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// indexOptions translates the index settings into index options.
func (c *Config) indexOptions() ([]index.Option, error) {
	tokenizer, err := index.TokenizerByName(c.Index.Tokenizer)
	if err != nil {
		return nil, err
	}
	if _, ok := tokenizer.(*index.WordTokenizer); ok && len(c.Index.StopWords) > 0 {
		tokenizer = index.NewWordTokenizer(index.WithStopWords(c.Index.StopWords...))
	}
	return []index.Option{
		index.WithTokenizer(tokenizer),
		index.WithFuzzyComparison(compare.BitapFunc(c.Index.FuzzyErrors)),
	}, nil
}

// schedulerOptions translates the thread settings into scheduler options.
func (c *Config) schedulerOptions() []scheduler.Option {
	var opts []scheduler.Option
	if c.MaxThreads != 0 {
		opts = append(opts, scheduler.WithMaxThreads(c.MaxThreads))
	}
	return append(opts, scheduler.WithMaxIdleTime(c.MaxIdleTime))
}
