package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// AppConfig captures configuration for the corpus, the index, and the serving surface.
type AppConfig struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Corpus  CorpusConfig  `toml:"corpus" yaml:"corpus"`
	Index   IndexConfig   `toml:"index" yaml:"index"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// ServerConfig controls network settings. An empty Listen runs the interactive prompt instead.
type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen"`
}

// CorpusConfig describes where documents come from and how they are tokenized.
type CorpusConfig struct {
	Root       string   `toml:"root" yaml:"root"`
	Tokenizer  string   `toml:"tokenizer" yaml:"tokenizer"`
	Workers    int      `toml:"workers" yaml:"workers"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
}

// IndexConfig tunes query behaviour.
type IndexConfig struct {
	MinAutocompleteLength int `toml:"min_autocomplete_length" yaml:"min_autocomplete_length"`
	SnippetWords          int `toml:"snippet_words" yaml:"snippet_words"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level       string `toml:"level" yaml:"level"`
	Format      string `toml:"format" yaml:"format"`
	RequestLogs *bool  `toml:"request_logs" yaml:"request_logs"`
}

// MetricsConfig enables counters/telemetry endpoints.
type MetricsConfig struct {
	Enabled *bool `toml:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the baseline configuration used when no file is supplied.
func DefaultConfig() AppConfig {
	return AppConfig{
		Corpus: CorpusConfig{
			Tokenizer: "standard",
			Workers:   4,
		},
		Index: IndexConfig{
			MinAutocompleteLength: 3,
			SnippetWords:          8,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", RequestLogs: boolPtr(true)},
		Metrics: MetricsConfig{Enabled: boolPtr(true)},
	}
}

// Load reads the provided config path, merging it onto the defaults.
func Load(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var fileCfg AppConfig
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(content, &fileCfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &fileCfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return AppConfig{}, errors.New("config file must be .toml, .yaml, or .yml")
	}

	merged := mergeConfig(cfg, fileCfg)
	if err := merged.Validate(); err != nil {
		return AppConfig{}, err
	}
	return merged, nil
}

// Validate rejects values the index cannot work with.
func (cfg AppConfig) Validate() error {
	if cfg.Corpus.Workers < 0 {
		return errors.New("corpus.workers must be >= 0")
	}
	if cfg.Index.MinAutocompleteLength < 0 {
		return errors.New("index.min_autocomplete_length must be >= 0")
	}
	if cfg.Index.SnippetWords < 0 {
		return errors.New("index.snippet_words must be >= 0")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", cfg.Logging.Format)
	}
	return nil
}

func mergeConfig(base, override AppConfig) AppConfig {
	if override.Server.Listen != "" {
		base.Server.Listen = override.Server.Listen
	}

	if override.Corpus.Root != "" {
		base.Corpus.Root = override.Corpus.Root
	}
	if override.Corpus.Tokenizer != "" {
		base.Corpus.Tokenizer = override.Corpus.Tokenizer
	}
	if override.Corpus.Workers != 0 {
		base.Corpus.Workers = override.Corpus.Workers
	}
	if len(override.Corpus.Extensions) > 0 {
		base.Corpus.Extensions = override.Corpus.Extensions
	}

	if override.Index.MinAutocompleteLength != 0 {
		base.Index.MinAutocompleteLength = override.Index.MinAutocompleteLength
	}
	if override.Index.SnippetWords != 0 {
		base.Index.SnippetWords = override.Index.SnippetWords
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Logging.RequestLogs != nil {
		base.Logging.RequestLogs = override.Logging.RequestLogs
	}

	if override.Metrics.Enabled != nil {
		base.Metrics.Enabled = override.Metrics.Enabled
	}

	return base
}

// MetricsEnabled reports whether telemetry should be collected.
func (cfg AppConfig) MetricsEnabled() bool {
	return cfg.Metrics.Enabled != nil && *cfg.Metrics.Enabled
}

// RequestLogsEnabled reports whether every HTTP request is logged.
func (cfg AppConfig) RequestLogsEnabled() bool {
	return cfg.Logging.RequestLogs == nil || *cfg.Logging.RequestLogs
}

func boolPtr(v bool) *bool {
	return &v
}
