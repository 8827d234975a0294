package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.likeswap/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	Telegram TelegramConfig `toml:"telegram"`
	Admin    AdminConfig    `toml:"admin"`
	Executor ExecutorConfig `toml:"executor"`
	Bot      BotConfig      `toml:"bot"`
}

// TelegramConfig holds the bot API credentials.
type TelegramConfig struct {
	Token string `toml:"token"`
}

// AdminConfig configures the local HTTP admin API.
type AdminConfig struct {
	Listen string `toml:"listen"`
}

// ExecutorConfig points at the browser-automation service that performs the
// actual platform actions.
type ExecutorConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// BotConfig holds the negotiation and scheduling policy knobs.
type BotConfig struct {
	OurVideoURL  string         `toml:"our_video_url"`
	DefaultTerms map[string]int `toml:"default_terms"`

	DailySendCap   int `toml:"daily_send_cap"`
	SendsPerMinute int `toml:"sends_per_minute"`

	SweepIntervalMinutes    int `toml:"sweep_interval_minutes"`
	RelaunchIntervalMinutes int `toml:"relaunch_interval_minutes"`
	ResponseTimeoutHours    int `toml:"response_timeout_hours"`
	ExchangeTimeoutHours    int `toml:"exchange_timeout_hours"`

	RelaunchIdleDays    int `toml:"relaunch_idle_days"`
	RelaunchMinScore    int `toml:"relaunch_min_score"`
	ActiveSavedMinScore int `toml:"active_saved_min_score"`
}

// Default returns the built-in configuration: 24h negotiation timeouts,
// 10 minute sweeps, 50 DMs/day.
func Default() *Config {
	return &Config{
		Admin: AdminConfig{Listen: "127.0.0.1:8642"},
		Executor: ExecutorConfig{
			TimeoutSeconds: 120,
		},
		Bot: BotConfig{
			DefaultTerms:            map[string]int{"likes": 5, "subs": 1, "comments": 1, "watch_seconds": 60},
			DailySendCap:            50,
			SendsPerMinute:          6,
			SweepIntervalMinutes:    10,
			RelaunchIntervalMinutes: 60,
			ResponseTimeoutHours:    24,
			ExchangeTimeoutHours:    24,
			RelaunchIdleDays:        7,
			RelaunchMinScore:        40,
			ActiveSavedMinScore:     70,
		},
	}
}

// Load reads config from the given path, applying file values over defaults.
// Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// SweepInterval returns the sweep cadence as a duration.
func (b BotConfig) SweepInterval() time.Duration {
	return time.Duration(b.SweepIntervalMinutes) * time.Minute
}

// RelaunchInterval returns the relaunch-pass cadence as a duration.
func (b BotConfig) RelaunchInterval() time.Duration {
	return time.Duration(b.RelaunchIntervalMinutes) * time.Minute
}

// ResponseTimeout returns how long a conversation may sit waiting for a reply.
func (b BotConfig) ResponseTimeout() time.Duration {
	return time.Duration(b.ResponseTimeoutHours) * time.Hour
}

// ExchangeTimeout returns how long an exchange may stay non-terminal.
func (b BotConfig) ExchangeTimeout() time.Duration {
	return time.Duration(b.ExchangeTimeoutHours) * time.Hour
}

// Timeout returns the executor HTTP timeout as a duration.
func (e ExecutorConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}
