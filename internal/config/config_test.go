package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Auth.AdminPassword != "admin123" {
		t.Errorf("unexpected default password: %q", cfg.Auth.AdminPassword)
	}
	if cfg.Auth.SessionExpireHrs != 24 {
		t.Errorf("expected 24h session expiry, got %d", cfg.Auth.SessionExpireHrs)
	}
	if cfg.Monitor.DefaultInterval != 1 || cfg.Monitor.MinInterval != 1 || cfg.Monitor.MaxInterval != 60 {
		t.Errorf("unexpected interval defaults: %+v", cfg.Monitor)
	}
	if cfg.Monitor.MaxConcurrent != 10 {
		t.Errorf("expected 10 concurrent monitors, got %d", cfg.Monitor.MaxConcurrent)
	}
	if cfg.Monitor.RequestTimeout() != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %v", cfg.Monitor.RequestTimeout())
	}
	if cfg.Monitor.HistoryRetentionD != 30 {
		t.Errorf("expected 30 day retention, got %d", cfg.Monitor.HistoryRetentionD)
	}
	if cfg.Auth.LockoutMinutes != 15 || cfg.Auth.MaxLoginAttempts != 5 {
		t.Errorf("unexpected lockout defaults: %+v", cfg.Auth)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info log level, got %q", cfg.Log.Level)
	}
}

func TestLoadFlatEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "supersecret")
	t.Setenv("PORT", "9000")
	t.Setenv("REQUEST_TIMEOUT", "5000")
	t.Setenv("MAX_CONCURRENT_MONITORS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Auth.AdminPassword != "supersecret" {
		t.Errorf("ADMIN_PASSWORD not applied: %q", cfg.Auth.AdminPassword)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("PORT not applied: %d", cfg.Server.Port)
	}
	if cfg.Monitor.RequestTimeout() != 5*time.Second {
		t.Errorf("REQUEST_TIMEOUT not applied: %v", cfg.Monitor.RequestTimeout())
	}
	if cfg.Monitor.MaxConcurrent != 3 {
		t.Errorf("MAX_CONCURRENT_MONITORS not applied: %d", cfg.Monitor.MaxConcurrent)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("LOG_LEVEL not applied: %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("Bad log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("Bad port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		if _, err := Load(); err == nil {
			t.Error("expected error for out-of-range port")
		}
	})
}

func TestNormalizeInvertedIntervalRange(t *testing.T) {
	t.Setenv("MIN_MONITOR_INTERVAL", "30")
	t.Setenv("MAX_MONITOR_INTERVAL", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Monitor.MinInterval > cfg.Monitor.MaxInterval {
		t.Errorf("inverted range not normalized: [%d, %d]", cfg.Monitor.MinInterval, cfg.Monitor.MaxInterval)
	}
	if cfg.Monitor.DefaultInterval < cfg.Monitor.MinInterval || cfg.Monitor.DefaultInterval > cfg.Monitor.MaxInterval {
		t.Errorf("default interval outside bounds: %d not in [%d, %d]",
			cfg.Monitor.DefaultInterval, cfg.Monitor.MinInterval, cfg.Monitor.MaxInterval)
	}
}
