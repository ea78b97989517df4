package logger

import (
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level" env:"LOOTSIM_LOG_LEVEL"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format" env:"LOOTSIM_LOG_CONSOLE_FORMAT"`
	FileEnabled    bool   `yaml:"file_enabled" env:"LOOTSIM_LOG_FILE_ENABLED"`
	FilePath       string `yaml:"file_path" env:"LOOTSIM_LOG_FILE_PATH"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig logs text at INFO to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: boolPtr(true),
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/lootsim.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig reads the logging section of a YAML file
// and applies environment variable overrides
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return config, err
		}
		if err == nil {
			var loggingConfig LoggingConfig
			if err := yaml.Unmarshal(data, &loggingConfig); err != nil {
				return config, err
			}
			config = merge(config, loggingConfig.Logging)
		}
	}

	if err := env.Parse(&config); err != nil {
		return config, err
	}
	return config, nil
}

// merge overrides the fields of base that are set in over.
func merge(base, over Config) Config {
	if over.Level != "" {
		base.Level = over.Level
	}
	if over.ConsoleEnabled != nil {
		base.ConsoleEnabled = over.ConsoleEnabled
	}
	if over.ConsoleFormat != "" {
		base.ConsoleFormat = over.ConsoleFormat
	}
	base.FileEnabled = base.FileEnabled || over.FileEnabled
	if over.FilePath != "" {
		base.FilePath = over.FilePath
	}
	if over.FileFormat != "" {
		base.FileFormat = over.FileFormat
	}
	if over.FileMaxSizeMB > 0 {
		base.FileMaxSizeMB = over.FileMaxSizeMB
	}
	if over.FileMaxBackups > 0 {
		base.FileMaxBackups = over.FileMaxBackups
	}
	if over.FileMaxAgeDays > 0 {
		base.FileMaxAgeDays = over.FileMaxAgeDays
	}
	return base
}

func boolPtr(b bool) *bool { return &b }
