package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lockstep configuration file (~/.config/lockstep/config.yaml).
// Numeric fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	OutputDir string `yaml:"output_dir"`

	// Generation defaults
	MaxNewTokens *int64 `yaml:"max_new_tokens"`
	BatchSize    *int64 `yaml:"batch_size"`
	AttnMode     string `yaml:"attn_mode"`
	PageSize     *int64 `yaml:"page_size"`
	Seed         *int64 `yaml:"seed"`

	// Comparison defaults
	TopK      *int64   `yaml:"top_k"`
	Threshold *float64 `yaml:"threshold"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lockstep", "config.yaml")
}

// applyLoggingConfig applies config file logging defaults when the
// corresponding CLI flag was not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyExtractConfig applies config file defaults to extract command variables
// when the corresponding CLI flag was not explicitly set.
func applyExtractConfig(c *cli.Command, cfg Config,
	outputDir *string, maxNewTokens, batchSize *int64, attnMode *string,
	pageSize, seed *int64,
) {
	if cfg.OutputDir != "" && !c.IsSet("output") {
		*outputDir = cfg.OutputDir
	}
	if cfg.MaxNewTokens != nil && !c.IsSet("max-new-tokens") {
		*maxNewTokens = *cfg.MaxNewTokens
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		*batchSize = *cfg.BatchSize
	}
	if cfg.AttnMode != "" && !c.IsSet("attn-mode") {
		*attnMode = cfg.AttnMode
	}
	if cfg.PageSize != nil && !c.IsSet("page-size") {
		*pageSize = *cfg.PageSize
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

// applyCompareConfig applies config file defaults to compare command variables.
func applyCompareConfig(c *cli.Command, cfg Config, batchSize, topK *int64, threshold *float64) {
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		*batchSize = *cfg.BatchSize
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		*topK = *cfg.TopK
	}
	if cfg.Threshold != nil && !c.IsSet("threshold") {
		*threshold = *cfg.Threshold
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
