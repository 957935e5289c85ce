// Package config provides configuration management for pipeline runner
// binaries (see cmd/pipelinedemo).
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for a pipeline runner process.
type Config struct {
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Log           LogConfig           `mapstructure:"log"`
}

// PipelineConfig holds execution tunables passed through to
// pipeline.ExecuteOptions.
type PipelineConfig struct {
	MemoryBudgetBytes int64 `mapstructure:"memory_budget_bytes"`
	DefaultSteps      int64 `mapstructure:"default_steps"`
}

// ObservabilityConfig selects and configures the observability.Provider
// used by a runner.
type ObservabilityConfig struct {
	// Provider is one of "none", "slog", or "otel".
	Provider      string  `mapstructure:"provider"`
	ServiceName   string  `mapstructure:"service_name"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// LogConfig holds logging configuration for the slog-backed provider.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Load reads configuration from configPath, or from the standard search
// locations when configPath is empty, applying defaults first and
// allowing environment variables (PIPELINE_*) to override.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pipeline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pipeline")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PIPELINE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from in-memory bytes, useful for
// tests.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.memory_budget_bytes", 256*1024*1024)
	v.SetDefault("pipeline.default_steps", 0)

	v.SetDefault("observability.provider", "none")
	v.SetDefault("observability.service_name", "pipeline")
	v.SetDefault("observability.sampling_ratio", 1.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Pipeline.MemoryBudgetBytes <= 0 {
		return fmt.Errorf("pipeline.memory_budget_bytes must be positive")
	}
	switch c.Observability.Provider {
	case "none", "slog", "otel":
	default:
		return fmt.Errorf("unsupported observability provider: %s", c.Observability.Provider)
	}
	return nil
}
