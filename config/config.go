// Package config loads xbridge settings from .env files, an optional YAML
// file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings of both sides of the bridge.
type Config struct {
	Mode          string   `yaml:"mode" env:"XBRIDGE_ENV"`
	LogLevel      string   `yaml:"log_level" env:"XBRIDGE_LOG_LEVEL"`
	LogFormat     string   `yaml:"log_format" env:"XBRIDGE_LOG_FORMAT"`
	LogFile       string   `yaml:"log_file" env:"XBRIDGE_LOG_FILE"`
	LogMaxSize    int      `yaml:"log_max_size" env:"XBRIDGE_LOG_MAX_SIZE"` // megabytes
	LogMaxBackups int      `yaml:"log_max_backups" env:"XBRIDGE_LOG_MAX_BACKUPS"`
	LogMaxAge     int      `yaml:"log_max_age" env:"XBRIDGE_LOG_MAX_AGE"` // days
	Destinations  []string `yaml:"destinations" env:"XBRIDGE_DESTINATIONS" envSeparator:","`
	Duplicates    string   `yaml:"duplicates" env:"XBRIDGE_DUPLICATES"` // allow | reject
	MaxWorkers    int      `yaml:"max_workers" env:"XBRIDGE_MAX_WORKERS"`
	QueueSize     int      `yaml:"queue_size" env:"XBRIDGE_QUEUE_SIZE"`
}

// Default configuration values.
const (
	DefaultMaxWorkers = 64
	DefaultQueueSize  = 1024
)

// ErrInvalid is returned when a loaded value is out of range.
var ErrInvalid = errors.New("config: invalid value")

// Conf is the active configuration.
var Conf = Default()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:          "production",
		LogLevel:      "info",
		LogFormat:     "TEXT",
		LogMaxSize:    100,
		LogMaxBackups: 3,
		LogMaxAge:     7,
		Duplicates:    "allow",
		MaxWorkers:    DefaultMaxWorkers,
		QueueSize:     DefaultQueueSize,
	}
}

// Load builds a Config. envFiles are loaded with godotenv (missing files are
// skipped), then the YAML file named by XBRIDGE_CONFIG if set, then the
// environment.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("XBRIDGE_CONFIG"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Init loads the configuration into Conf.
func Init(envFiles ...string) error {
	cfg, err := Load(envFiles...)
	if err != nil {
		return err
	}
	Conf = cfg
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: max_workers=%d", ErrInvalid, c.MaxWorkers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size=%d", ErrInvalid, c.QueueSize)
	}
	switch strings.ToLower(c.Duplicates) {
	case "allow", "reject":
	default:
		return fmt.Errorf("%w: duplicates=%q", ErrInvalid, c.Duplicates)
	}
	return nil
}

// IsDevelopment reports whether the active configuration runs in development mode.
func IsDevelopment() bool {
	m := strings.ToLower(Conf.Mode)
	return m == "development" || m == "dev"
}
