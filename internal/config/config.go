// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"LINGOSYNC_DB_PATH" envDefault:"./data/lingosync.db"`
	ServerHost string `env:"LINGOSYNC_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"LINGOSYNC_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"LINGOSYNC_ENV" envDefault:"development"`
	LogLevel   string `env:"LINGOSYNC_LOG_LEVEL" envDefault:"info"`
	BaseURL    string `env:"LINGOSYNC_BASE_URL" envDefault:"http://localhost:8080"`

	// TMS connection
	TMSBaseURL     string  `env:"LINGOSYNC_TMS_URL" envDefault:"https://myaccount.lingotek.com/api"`
	TMSToken       string  `env:"LINGOSYNC_TMS_TOKEN,required"`
	TMSRateLimit   float64 `env:"LINGOSYNC_TMS_RATE_LIMIT" envDefault:"5"` // requests per second
	TMSRateBurst   int     `env:"LINGOSYNC_TMS_RATE_BURST" envDefault:"10"`
	TMSTimeoutSecs int     `env:"LINGOSYNC_TMS_TIMEOUT" envDefault:"30"`

	// API surface
	APIToken string `env:"LINGOSYNC_API_TOKEN"` // empty disables auth, development only

	// Language configuration
	SourceLang      string   `env:"LINGOSYNC_SOURCE_LANG" envDefault:"en"`
	TargetLangcodes []string `env:"LINGOSYNC_TARGET_LANGS" envDefault:"es,de" envSeparator:","`

	// Download behavior
	InterimDownloads bool `env:"LINGOSYNC_INTERIM_DOWNLOADS" envDefault:"false"`

	// Notification lock configuration
	LockBackend     string `env:"LINGOSYNC_LOCK_BACKEND" envDefault:"memory"` // memory or redis
	RedisURL        string `env:"LINGOSYNC_REDIS_URL"`
	LockPrefix      string `env:"LINGOSYNC_LOCK_PREFIX" envDefault:"lingosync:lock:"`
	LockUnitMillis  int    `env:"LINGOSYNC_LOCK_UNIT_MS" envDefault:"250"`
	LockMaxAttempts int    `env:"LINGOSYNC_LOCK_MAX_ATTEMPTS" envDefault:"30"`

	// Polling schedule, cron expression
	PollSchedule string `env:"LINGOSYNC_POLL_SCHEDULE" envDefault:"*/5 * * * *"`

	// Seeding configuration
	DoSeed bool `env:"LINGOSYNC_DO_SEED" envDefault:"true"` // Seed default profiles and locale mappings
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// NotifyURL returns the callback URL registered with the TMS.
func (c Config) NotifyURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/lingotek/notify"
}

// UseRedisLock returns true if the distributed lock backend is configured.
func (c Config) UseRedisLock() bool {
	return c.LockBackend == "redis" && c.RedisURL != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.LockBackend == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("LINGOSYNC_LOCK_BACKEND is redis but LINGOSYNC_REDIS_URL is not set")
	}

	for i, lang := range cfg.TargetLangcodes {
		cfg.TargetLangcodes[i] = strings.TrimSpace(lang)
	}

	return cfg, nil
}
