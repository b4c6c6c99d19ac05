package config

import "strings"

// normalizeConfig cleans up configuration values after loading.
func normalizeConfig(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Storage.Path = strings.TrimSpace(cfg.Storage.Path)

	// An inverted interval range is a configuration mistake; swap the two
	// bounds rather than rejecting startup.
	if cfg.Monitor.MinInterval > cfg.Monitor.MaxInterval {
		cfg.Monitor.MinInterval, cfg.Monitor.MaxInterval = cfg.Monitor.MaxInterval, cfg.Monitor.MinInterval
	}
	if cfg.Monitor.DefaultInterval < cfg.Monitor.MinInterval {
		cfg.Monitor.DefaultInterval = cfg.Monitor.MinInterval
	}
	if cfg.Monitor.DefaultInterval > cfg.Monitor.MaxInterval {
		cfg.Monitor.DefaultInterval = cfg.Monitor.MaxInterval
	}
}
