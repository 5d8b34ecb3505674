package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the storage file name used when none is configured.
const DefaultFileName = "localstorage.json"

type Config struct {
	DataDir     string `yaml:"data_dir"      env:"LOCALSTORE_DATA_DIR"`
	FileName    string `yaml:"file_name"     env:"LOCALSTORE_FILE_NAME"`
	HTTPAddr    string `yaml:"http_addr"     env:"LOCALSTORE_HTTP_ADDR"`
	GRPCAddr    string `yaml:"grpc_addr"     env:"LOCALSTORE_GRPC_ADDR"`
	LogLevel    string `yaml:"log_level"     env:"LOCALSTORE_LOG_LEVEL"`
	QueryPolicy string `yaml:"query_policy"  env:"LOCALSTORE_QUERY_POLICY"`
	InitOnStart *bool  `yaml:"init_on_start" env:"LOCALSTORE_INIT_ON_START"`
}

// LoadConfig loads configuration from a YAML file if path is provided,
// then applies environment variable overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override YAML values.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("no data_dir configured and no user config dir: %w", err)
		}
		c.DataDir = filepath.Join(dir, "localstore")
	}
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.GRPCAddr == "" {
		c.GRPCAddr = ":9090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.QueryPolicy == "" {
		c.QueryPolicy = "defer"
	}
	if c.InitOnStart == nil {
		v := true
		c.InitOnStart = &v
	}
	return nil
}

// Validate checks that the storage file stays inside the data directory
// and that enumerated options hold known values.
func (c *Config) Validate() error {
	name := filepath.Clean(c.FileName)
	if name == "." || filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return fmt.Errorf("invalid file_name %q: must be a relative path inside data_dir", c.FileName)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	switch strings.ToLower(c.QueryPolicy) {
	case "defer", "reject":
	default:
		return fmt.Errorf("invalid query_policy %q", c.QueryPolicy)
	}
	return nil
}

// StoragePath is the absolute location of the persisted store.
func (c *Config) StoragePath() string {
	return filepath.Join(c.DataDir, filepath.Clean(c.FileName))
}

// ShouldInitOnStart reports whether the server fires initialize itself.
func (c *Config) ShouldInitOnStart() bool {
	return c.InitOnStart == nil || *c.InitOnStart
}
