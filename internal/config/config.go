// Package config loads converter settings from a YAML file, a .env file and
// PDF2EPUB_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PDF2EPUB_"

// Config holds all configuration for pdf2epub.
type Config struct {
	Book       BookConfig       `yaml:"book"`
	Output     OutputConfig     `yaml:"output"`
	Conversion ConversionConfig `yaml:"conversion"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BookConfig holds the metadata written into every book.
type BookConfig struct {
	Language   string `yaml:"language"`
	Creator    string `yaml:"creator"`
	Generator  string `yaml:"generator"`
	Identifier string `yaml:"identifier"` // timestamp or uuid
}

// OutputConfig holds archive settings.
type OutputConfig struct {
	Compression int `yaml:"compression"` // deflate level; 0 means best compression
}

// ConversionConfig holds pipeline settings.
type ConversionConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Book: BookConfig{
			Language:   "en",
			Generator:  "pdf2epub",
			Identifier: "timestamp",
		},
		Output: OutputConfig{
			Compression: 9,
		},
		Conversion: ConversionConfig{
			Workers: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file (skipped when path is empty),
// loads .env from the working directory if present and applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Book.Language) == "" {
		return errors.New("book language cannot be empty")
	}

	switch c.Book.Identifier {
	case "timestamp", "uuid":
	default:
		return fmt.Errorf("invalid identifier scheme: %q (want timestamp or uuid)", c.Book.Identifier)
	}

	if c.Output.Compression < 0 || c.Output.Compression > 9 {
		return fmt.Errorf("compression must be between 0 and 9, got %d", c.Output.Compression)
	}

	if c.Conversion.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Conversion.Workers)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	return nil
}

// applyEnvOverrides applies PDF2EPUB_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "LANGUAGE"); v != "" {
		cfg.Book.Language = v
	}

	if v := os.Getenv(EnvPrefix + "CREATOR"); v != "" {
		cfg.Book.Creator = v
	}

	if v := os.Getenv(EnvPrefix + "GENERATOR"); v != "" {
		cfg.Book.Generator = v
	}

	if v := os.Getenv(EnvPrefix + "IDENTIFIER"); v != "" {
		cfg.Book.Identifier = v
	}

	if v := os.Getenv(EnvPrefix + "COMPRESSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sCOMPRESSION: %w", EnvPrefix, err)
		}
		cfg.Output.Compression = n
	}

	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", EnvPrefix, err)
		}
		cfg.Conversion.Workers = n
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}
