package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	t.Setenv("TRUSTMART_JWT_SECRET", "env-secret")
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file must be written: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Trust.DisputePenalty != 5.0 {
		t.Fatalf("unexpected dispute penalty %v", cfg.Trust.DisputePenalty)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatal("environment secret must be applied")
	}
}

func TestLoadParsesFileAndAppliesOverrides(t *testing.T) {
	t.Setenv("TRUSTMART_DATABASE_DSN", "host=db user=trustmart")
	t.Setenv("TRUSTMART_JWT_SECRET", "env-secret")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
ListenAddress = ":9090"
Environment = "production"
Paused = ["marketplace"]

[Database]
Driver = "postgres"
DSN = "host=localhost"

[Auth]
TokenTTLMinutes = 30

[Trust]
DisputePenalty = 10.0

[RateLimit]
RequestsPerMinute = 120.0
Burst = 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9090" || cfg.Environment != "production" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Database.DSN != "host=db user=trustmart" {
		t.Fatalf("env DSN must override the file, got %q", cfg.Database.DSN)
	}
	if cfg.Auth.TokenTTL() != 30*time.Minute {
		t.Fatalf("unexpected token ttl %v", cfg.Auth.TokenTTL())
	}
	if cfg.Trust.DisputePenalty != 10.0 {
		t.Fatalf("unexpected penalty %v", cfg.Trust.DisputePenalty)
	}
	if len(cfg.Paused) != 1 || cfg.Paused[0] != "marketplace" {
		t.Fatalf("unexpected pause list %v", cfg.Paused)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("TRUSTMART_JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.toml")

	if _, err := Load(path); err == nil {
		t.Fatal("expected missing JWT secret to be rejected")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("TRUSTMART_JWT_SECRET", "env-secret")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[Database]
Driver = "oracle"
DSN = "whatever"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unsupported driver to be rejected")
	}
}

func TestTokenTTLDefault(t *testing.T) {
	if (Auth{}).TokenTTL() != 24*time.Hour {
		t.Fatal("unset TTL must default to 24h")
	}
}
