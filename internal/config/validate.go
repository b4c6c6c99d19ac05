package config

import "fmt"

// validateConfig validates the final configuration and returns an error
// describing the first invalid value found.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path must not be empty")
	}
	if cfg.Auth.AdminPassword == "" {
		return fmt.Errorf("admin password must not be empty")
	}
	if cfg.Auth.SessionExpireHrs <= 0 {
		return fmt.Errorf("session expire hours must be positive, got %d", cfg.Auth.SessionExpireHrs)
	}
	if cfg.Auth.LockoutMinutes <= 0 {
		return fmt.Errorf("lockout minutes must be positive, got %d", cfg.Auth.LockoutMinutes)
	}
	if cfg.Auth.MaxLoginAttempts <= 0 {
		return fmt.Errorf("max login attempts must be positive, got %d", cfg.Auth.MaxLoginAttempts)
	}
	if cfg.Monitor.MinInterval < 1 {
		return fmt.Errorf("min monitor interval must be at least 1 minute, got %d", cfg.Monitor.MinInterval)
	}
	if cfg.Monitor.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent monitors must be at least 1, got %d", cfg.Monitor.MaxConcurrent)
	}
	if cfg.Monitor.RequestTimeoutMs <= 0 {
		return fmt.Errorf("request timeout must be positive, got %dms", cfg.Monitor.RequestTimeoutMs)
	}
	if cfg.Monitor.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", cfg.Monitor.MaxRetries)
	}
	if cfg.Monitor.HistoryRetentionD <= 0 {
		return fmt.Errorf("history retention days must be positive, got %d", cfg.Monitor.HistoryRetentionD)
	}
	if cfg.Maintenance.Interval <= 0 {
		return fmt.Errorf("maintenance interval must be positive, got %s", cfg.Maintenance.Interval)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Log.Level)
	}
	return nil
}
