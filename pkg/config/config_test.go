package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rcpd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Debounce != 100*time.Millisecond {
		t.Errorf("Default debounce wrong: %v", cfg.Engine.Debounce)
	}
	if cfg.Fib.MaxAttempts != 4 {
		t.Errorf("Default max attempts wrong: %d", cfg.Fib.MaxAttempts)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("Default listen wrong: %q", cfg.HTTP.Listen)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
feed:
  upstream_addr: tcp://collector:5556
  stale_after: 2m
engine:
  debounce: 250ms
  workers: 8
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.UpstreamAddr != "tcp://collector:5556" {
		t.Errorf("Upstream not applied: %q", cfg.Feed.UpstreamAddr)
	}
	if cfg.Feed.StaleAfter != 2*time.Minute {
		t.Errorf("StaleAfter not applied: %v", cfg.Feed.StaleAfter)
	}
	if cfg.Engine.Debounce != 250*time.Millisecond || cfg.Engine.Workers != 8 {
		t.Errorf("Engine section not applied: %+v", cfg.Engine)
	}
	// Untouched sections keep their defaults
	if cfg.Fib.CallTimeout != 3*time.Second {
		t.Errorf("Unset field lost its default: %v", cfg.Fib.CallTimeout)
	}
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := writeFile(t, `
feed:
  upstream_addr: tcp://from-file:5556
`)
	t.Setenv("RCP_FEED_UPSTREAM", "tcp://from-env:5556")
	t.Setenv("RCP_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.UpstreamAddr != "tcp://from-env:5556" {
		t.Errorf("Env override lost: %q", cfg.Feed.UpstreamAddr)
	}
	if cfg.HTTP.JWTSecret != "s3cret" {
		t.Errorf("JWT secret not taken from env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Feed.UpstreamAddr = ""
	if err := cfg.Validate(); !errors.Is(err, ErrNoFeedUpstream) {
		t.Errorf("Expected ErrNoFeedUpstream, got %v", err)
	}

	cfg = Default()
	cfg.HTTP.Listen = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidListen) {
		t.Errorf("Expected ErrInvalidListen, got %v", err)
	}

	cfg = Default()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Unknown log level should fail validation")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "feed: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
