package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	DataPath     string         `yaml:"data_path"`
	RegistryPath string         `yaml:"registry_path"`
	HistoryPath  string         `yaml:"history_path"`
	Logging      LoggingConfig  `yaml:"logging"`
	Training     TrainingConfig `yaml:"training"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TrainingConfig holds the pipeline's training parameters.
type TrainingConfig struct {
	Target              string  `yaml:"target"`
	DateColumn          string  `yaml:"date_column"`
	SiteColumn          string  `yaml:"site_column"`
	MaxRows             int     `yaml:"max_rows"`
	Horizon             int     `yaml:"horizon"`
	MaxLags             int     `yaml:"max_lags"`
	WindowSizes         []int   `yaml:"window_sizes"`
	TestSize            float64 `yaml:"test_size"`
	ValSize             float64 `yaml:"val_size"`
	EarlyStoppingRounds int     `yaml:"early_stopping_rounds"`
	RandomSeed          int64   `yaml:"random_seed"`
	Schedule            string  `yaml:"schedule"` // cron expression, empty = run once
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		DataPath:     "data/sample_wwtp_data.csv",
		RegistryPath: "models",
		HistoryPath:  "data/training_history.db",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Training: TrainingConfig{
			MaxRows:             5000,
			Horizon:             14,
			MaxLags:             7,
			WindowSizes:         []int{3, 7, 14, 30},
			TestSize:            0.2,
			ValSize:             0.1,
			EarlyStoppingRounds: 10,
			RandomSeed:          42,
		},
	}
}

// LoadConfig reads a YAML config file, applying defaults for anything the
// file leaves unset. A missing file yields the defaults rather than an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Training.MaxRows <= 0 {
		cfg.Training.MaxRows = 5000
	}
	if cfg.Training.Horizon <= 0 {
		cfg.Training.Horizon = 14
	}
	if cfg.Training.MaxLags <= 0 {
		cfg.Training.MaxLags = 7
	}
	if len(cfg.Training.WindowSizes) == 0 {
		cfg.Training.WindowSizes = []int{3, 7, 14, 30}
	}
	if cfg.Training.TestSize <= 0 {
		cfg.Training.TestSize = 0.2
	}
	if cfg.Training.ValSize <= 0 {
		cfg.Training.ValSize = 0.1
	}
	return cfg, nil
}
