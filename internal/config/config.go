package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/assetsum/assetsum/internal/backoff"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Journal   JournalConfig   `yaml:"journal"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HTTPAddr     string        `yaml:"http_addr"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds index storage settings
type StorageConfig struct {
	DataDir      string         `yaml:"data_dir"`
	OpenAttempts int            `yaml:"open_attempts"`
	OpenBackoff  backoff.Config `yaml:"open_backoff"`
}

// JournalConfig holds journal settings
type JournalConfig struct {
	SegmentSize int64 `yaml:"segment_size"`
	Fsync       bool  `yaml:"fsync"`
}

// ScannerConfig holds asset scanning settings
type ScannerConfig struct {
	Root    string   `yaml:"root"`
	Workers int      `yaml:"workers"`
	Exclude []string `yaml:"exclude"` // filepath.Match patterns on relative slash paths or base names
}

// RateLimitConfig holds per-client HTTP rate limits
type RateLimitConfig struct {
	Capacity   float64 `yaml:"capacity"`
	RefillRate float64 `yaml:"refill_rate"` // tokens per second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			MaxBodyBytes: 64 * 1024 * 1024, // 64MB
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:      "./data",
			OpenAttempts: 5,
			OpenBackoff:  backoff.DefaultConfig(),
		},
		Journal: JournalConfig{
			SegmentSize: 16 * 1024 * 1024, // 16MB
			Fsync:       true,
		},
		Scanner: ScannerConfig{
			Root:    "./assets",
			Workers: runtime.NumCPU(),
			Exclude: []string{".git", "*.tmp"},
		},
		RateLimit: RateLimitConfig{
			Capacity:   100,
			RefillRate: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads config from file or returns default
func LoadOrDefault(path string) *Config {
	if path == "" {
		return Default()
	}

	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v, using defaults\n", err)
		return Default()
	}

	return cfg
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be at least 1, got %d", c.Scanner.Workers)
	}
	for _, pattern := range c.Scanner.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("scanner.exclude %q: %w", pattern, err)
		}
	}
	if c.RateLimit.Capacity < 0 || c.RateLimit.RefillRate < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

// IndexDir is where the pebble index lives
func (c *Config) IndexDir() string {
	return filepath.Join(c.Storage.DataDir, "index")
}

// JournalDir is where journal segments live
func (c *Config) JournalDir() string {
	return filepath.Join(c.Storage.DataDir, "journal")
}
