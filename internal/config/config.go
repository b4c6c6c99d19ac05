// Package config loads and validates configuration for the webwatch
// monitoring system.
//
// Configuration sources (in order of precedence):
//  1. Defaults
//  2. Configuration file (optional)
//  3. Environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete configuration schema for webwatch.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Monitor     MonitorConfig     `mapstructure:"monitor" yaml:"monitor"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" yaml:"maintenance"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Addr returns the listen address derived from the configured port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type AuthConfig struct {
	AdminPassword    string `mapstructure:"admin_password" yaml:"admin_password"`
	SessionExpireHrs int    `mapstructure:"session_expire_hours" yaml:"session_expire_hours"`
	LockoutMinutes   int    `mapstructure:"lockout_minutes" yaml:"lockout_minutes"`
	MaxLoginAttempts int    `mapstructure:"max_login_attempts" yaml:"max_login_attempts"`
}

// SessionTTL returns the lifetime of a newly created session.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionExpireHrs) * time.Hour
}

// LockoutWindow returns the trailing window during which failed login
// attempts accumulate toward the lockout threshold.
func (a AuthConfig) LockoutWindow() time.Duration {
	return time.Duration(a.LockoutMinutes) * time.Minute
}

type MonitorConfig struct {
	DefaultInterval   int           `mapstructure:"default_interval" yaml:"default_interval"`
	MinInterval       int           `mapstructure:"min_interval" yaml:"min_interval"`
	MaxInterval       int           `mapstructure:"max_interval" yaml:"max_interval"`
	MaxConcurrent     int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	RequestTimeoutMs  int           `mapstructure:"request_timeout_ms" yaml:"request_timeout_ms"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	HistoryRetentionD int           `mapstructure:"history_retention_days" yaml:"history_retention_days"`
}

// RequestTimeout returns the hard per-probe deadline.
func (m MonitorConfig) RequestTimeout() time.Duration {
	return time.Duration(m.RequestTimeoutMs) * time.Millisecond
}

// HistoryRetention returns how long probe history is kept.
func (m MonitorConfig) HistoryRetention() time.Duration {
	return time.Duration(m.HistoryRetentionD) * 24 * time.Hour
}

type MaintenanceConfig struct {
	Interval          time.Duration `mapstructure:"interval" yaml:"interval"`
	SystemLogRetentD  int           `mapstructure:"system_log_retention_days" yaml:"system_log_retention_days"`
	MaxSystemLogsScan int           `mapstructure:"max_system_logs_scan" yaml:"max_system_logs_scan"`
}

// SystemLogRetention returns how long system log entries are kept.
func (m MaintenanceConfig) SystemLogRetention() time.Duration {
	return time.Duration(m.SystemLogRetentD) * 24 * time.Hour
}

type CacheConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"` // human-readable console output
}

// Load loads configuration from defaults, configuration file,
// and environment variables, then validates the result.
//
// The function fails fast on:
//   - Invalid configuration file
//   - Invalid or missing required configuration values
func Load() (*Config, error) {
	v := viper.New()

	// Register default values
	setDefaults(v)

	// Environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment surface uses flat variable names; bind them explicitly
	// so they override both defaults and the optional config file.
	bindFlatEnv(v)

	// Optional configuration file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Read configuration file if present
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
	}

	// Unmarshal configuration into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Normalize configuration
	normalizeConfig(&cfg)

	// Validate final configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindFlatEnv maps the flat environment variable names to their nested
// configuration keys. REQUEST_TIMEOUT is in milliseconds and the interval
// bounds are in minutes.
func bindFlatEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("storage.path", "DB_PATH")
	v.BindEnv("auth.admin_password", "ADMIN_PASSWORD")
	v.BindEnv("auth.session_expire_hours", "SESSION_EXPIRE_HOURS")
	v.BindEnv("auth.lockout_minutes", "LOGIN_LOCKOUT_MINUTES")
	v.BindEnv("auth.max_login_attempts", "MAX_LOGIN_ATTEMPTS")
	v.BindEnv("monitor.default_interval", "DEFAULT_MONITOR_INTERVAL")
	v.BindEnv("monitor.min_interval", "MIN_MONITOR_INTERVAL")
	v.BindEnv("monitor.max_interval", "MAX_MONITOR_INTERVAL")
	v.BindEnv("monitor.max_concurrent", "MAX_CONCURRENT_MONITORS")
	v.BindEnv("monitor.request_timeout_ms", "REQUEST_TIMEOUT")
	v.BindEnv("monitor.history_retention_days", "HISTORY_RETENTION_DAYS")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")
}
