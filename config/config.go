package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top level service configuration loaded from TOML.
type Config struct {
	ListenAddress string    `toml:"ListenAddress"`
	Environment   string    `toml:"Environment"`
	Paused        []string  `toml:"Paused"`
	Database      Database  `toml:"Database"`
	Auth          Auth      `toml:"Auth"`
	Trust         Trust     `toml:"Trust"`
	Log           Log       `toml:"Log"`
	RateLimit     RateLimit `toml:"RateLimit"`
}

// Database selects the storage backend.
type Database struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Auth configures bearer token issuance.
type Auth struct {
	JWTSecret   string `toml:"JWTSecret"`
	TokenTTLMin int    `toml:"TokenTTLMinutes"`
}

// TokenTTL returns the configured token lifetime.
func (a Auth) TokenTTL() time.Duration {
	if a.TokenTTLMin <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTLMin) * time.Minute
}

// Trust tunes the reputation adjustments applied on dispute outcomes.
type Trust struct {
	DisputePenalty float64 `toml:"DisputePenalty"`
}

// Log configures optional file output with rotation.
type Log struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// RateLimit bounds request volume per client.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Load reads the configuration from the given path, creating a default
// file when none exists. Environment variables override secrets and the
// database DSN.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		cfg = created
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "development"
	}
	if strings.TrimSpace(cfg.Database.Driver) == "" {
		cfg.Database.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "trustmart.db"
	}
	if cfg.Trust.DisputePenalty <= 0 {
		cfg.Trust.DisputePenalty = 5.0
	}
	if cfg.RateLimit.RequestsPerMinute <= 0 {
		cfg.RateLimit.RequestsPerMinute = 600
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.Paused == nil {
		cfg.Paused = []string{}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TRUSTMART_LISTEN_ADDRESS")); v != "" {
		cfg.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("TRUSTMART_DATABASE_DRIVER")); v != "" {
		cfg.Database.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("TRUSTMART_DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("TRUSTMART_JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database DSN is required for driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config: JWT secret is required; set Auth.JWTSecret or TRUSTMART_JWT_SECRET")
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		Environment:   "development",
		Paused:        []string{},
		Database:      Database{Driver: "sqlite", DSN: "trustmart.db"},
		Trust:         Trust{DisputePenalty: 5.0},
		RateLimit:     RateLimit{RequestsPerMinute: 600, Burst: 20},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
