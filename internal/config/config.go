// Package config provides configuration management for tabula.
//
// Configuration is read from a YAML file, then overridden by TABULA_*
// environment variables and any CLI flags bound to the same viper instance.
//
// Config file locations (priority order):
//  1. $TABULA_CONFIG
//  2. ./tabula.yaml
//  3. $XDG_CONFIG_HOME/tabula/config.yaml
//  4. ~/.config/tabula/config.yaml
//  5. /etc/tabula/config.yaml
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tabula/internal/logger"
	"tabula/internal/repository"
)

// EnvPrefix prefixes every environment override, e.g. TABULA_LOG_LEVEL
const EnvPrefix = "TABULA"

// Config is the process-wide configuration
type Config struct {
	LogLevel      string         `yaml:"log_level" mapstructure:"log_level"`
	LogFormat     string         `yaml:"log_format" mapstructure:"log_format"`
	IndexLabel    string         `yaml:"index_label" mapstructure:"index_label"`
	StrictColumns bool           `yaml:"strict_columns" mapstructure:"strict_columns"`
	ShapesFile    string         `yaml:"shapes_file" mapstructure:"shapes_file"`
	Database      DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// DatabaseConfig locates the SQLite snapshot store
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns the defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "DEBUG",
		LogFormat:     logger.FormatText,
		IndexLabel:    repository.DefaultIndexLabel,
		StrictColumns: true,
		ShapesFile:    "shapes.yaml",
		Database:      DatabaseConfig{Path: "./tabula.db"},
	}
}

// NewViper returns a viper instance primed with defaults and env overrides
func NewViper() *viper.Viper {
	d := DefaultConfig()

	v := viper.New()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("index_label", d.IndexLabel)
	v.SetDefault("strict_columns", d.StrictColumns)
	v.SetDefault("shapes_file", d.ShapesFile)
	v.SetDefault("database.path", d.Database.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	return LoadWith(NewViper(), "")
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	return LoadWith(NewViper(), path)
}

// LoadWith reads the config file at path (searching when empty) into v and
// decodes the merged settings
func LoadWith(v *viper.Viper, path string) (*Config, string, error) {
	if path == "" {
		path = FindConfigPath()
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.IndexLabel == "" {
		c.IndexLabel = d.IndexLabel
	}
	if c.ShapesFile == "" {
		c.ShapesFile = d.ShapesFile
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
}

// Validate rejects settings no component can honour
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	return nil
}

// Logger creates a module logger writing to w at the configured level
func (c *Config) Logger(name string, w io.Writer) *slog.Logger {
	return logger.New(name, logger.Options{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Writer: w,
	})
}

// RepositoryOptions translates config into repository options
func (c *Config) RepositoryOptions(log *slog.Logger) []repository.Option {
	return []repository.Option{
		repository.WithIndexLabel(c.IndexLabel),
		repository.WithStrictColumns(c.StrictColumns),
		repository.WithLogger(log),
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("log_level=%s log_format=%s index_label=%s strict_columns=%t shapes=%s db=%s",
		c.LogLevel, c.LogFormat, c.IndexLabel, c.StrictColumns, c.ShapesFile, c.Database.Path)
}
