package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the anvil CLI configuration
type Config struct {
	Module ModuleConfig `mapstructure:"module"`
	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

// ModuleConfig configures the module the demo command builds
type ModuleConfig struct {
	Name          string `mapstructure:"name"`
	DiscardBodies bool   `mapstructure:"discard_bodies"`
}

// OutputConfig configures how metadata tables are rendered
type OutputConfig struct {
	Format    string `mapstructure:"format"`     // "table" or "json"
	NoColor   bool   `mapstructure:"no_color"`   // disable ANSI colors
	BlobBytes int    `mapstructure:"blob_bytes"` // hex bytes shown per signature blob, 0 = all
}

// LogConfig configures the CLI logger
type LogConfig struct {
	Level string `mapstructure:"level"` // off, debug, info, warn, error
}

// Load loads the configuration from anvil.yml or anvil.yaml, with
// ANVIL_* environment variables taking precedence
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("module.name", "demo")
	v.SetDefault("module.discard_bodies", false)
	v.SetDefault("output.format", "table")
	v.SetDefault("output.no_color", false)
	v.SetDefault("output.blob_bytes", 12)
	v.SetDefault("log.level", "info")

	// Set config name and paths
	v.SetConfigName("anvil")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support: output.format -> ANVIL_OUTPUT_FORMAT
	v.SetEnvPrefix("anvil")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Logger builds the CLI logger for the configured level. Level "off"
// returns a no-op logger.
func (c *LogConfig) Logger() (*zap.Logger, error) {
	if c.Level == "off" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Module.Name == "" {
		return fmt.Errorf("module.name must not be empty")
	}
	switch cfg.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("output.format must be 'table' or 'json', got: %s", cfg.Output.Format)
	}
	if cfg.Output.BlobBytes < 0 {
		return fmt.Errorf("output.blob_bytes must not be negative, got: %d", cfg.Output.BlobBytes)
	}
	if cfg.Log.Level != "off" {
		if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level must be one of off, debug, info, warn, error, got: %s", cfg.Log.Level)
		}
	}
	return nil
}
