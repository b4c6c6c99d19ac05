package config

import "github.com/spf13/viper"

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	// Storage defaults
	v.SetDefault("storage.path", "webwatch.db")

	// Auth defaults
	v.SetDefault("auth.admin_password", "admin123")
	v.SetDefault("auth.session_expire_hours", 24)
	v.SetDefault("auth.lockout_minutes", 15)
	v.SetDefault("auth.max_login_attempts", 5)

	// Monitor defaults (intervals are minutes, timeout is milliseconds)
	v.SetDefault("monitor.default_interval", 1)
	v.SetDefault("monitor.min_interval", 1)
	v.SetDefault("monitor.max_interval", 60)
	v.SetDefault("monitor.max_concurrent", 10)
	v.SetDefault("monitor.request_timeout_ms", 30000)
	v.SetDefault("monitor.max_retries", 2)
	v.SetDefault("monitor.retry_base_delay", "1s")
	v.SetDefault("monitor.history_retention_days", 30)

	// Maintenance defaults
	v.SetDefault("maintenance.interval", "1h")
	v.SetDefault("maintenance.system_log_retention_days", 7)
	v.SetDefault("maintenance.max_system_logs_scan", 1000)

	// Cache defaults
	v.SetDefault("cache.cleanup_interval", "10m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
