// Package syncconfig resolves user-level settings. Every getter follows the
// same priority: environment > config.json > default. A .env file in the
// working directory is folded into the environment by LoadDotEnv.
package syncconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FetchConfig holds remote fetch settings.
type FetchConfig struct {
	Timeout   string `json:"timeout,omitempty"` // duration string, default "15s"
	UserAgent string `json:"user_agent,omitempty"`
}

// SyncConfig holds orchestration settings.
type SyncConfig struct {
	Concurrency *int   `json:"concurrency,omitempty"` // nil = default 8
	Interval    string `json:"interval,omitempty"`    // duration string, default "5m"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug|info|warn|error
	Format string `json:"format,omitempty"` // text|json
	File   string `json:"file,omitempty"`   // rotated when set
}

// ServeConfig holds settings for the long-running live server.
type ServeConfig struct {
	Addr string `json:"addr,omitempty"`
}

// Config is the user config stored at ~/.config/checkin/config.json.
type Config struct {
	DataDir string      `json:"data_dir,omitempty"`
	Fetch   FetchConfig `json:"fetch"`
	Sync    SyncConfig  `json:"sync"`
	Log     LogConfig   `json:"log"`
	Serve   ServeConfig `json:"serve"`
}

const (
	defaultFetchTimeout = 15 * time.Second
	defaultConcurrency  = 8
	defaultInterval     = 5 * time.Minute
	defaultServeAddr    = "127.0.0.1:8787"
	defaultUserAgent    = "checkin"
)

// ConfigDir returns ~/.config/checkin, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "checkin")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig reads the config from ~/.config/checkin/config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config.json: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes the config to ~/.config/checkin/config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Keys lists the settable config keys, in display order.
var Keys = []string{
	"data_dir", "fetch.timeout", "fetch.user_agent", "sync.concurrency",
	"sync.interval", "log.level", "log.format", "log.file", "serve.addr",
}

// Set validates and stores a single key in cfg.
func (cfg *Config) Set(key, value string) error {
	switch key {
	case "data_dir":
		cfg.DataDir = value
	case "fetch.timeout", "sync.interval":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "fetch.timeout" {
			cfg.Fetch.Timeout = value
		} else {
			cfg.Sync.Interval = value
		}
	case "fetch.user_agent":
		cfg.Fetch.UserAgent = value
	case "sync.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("sync.concurrency must be a positive integer, got %q", value)
		}
		cfg.Sync.Concurrency = &n
	case "log.level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = strings.ToLower(value)
		default:
			return fmt.Errorf("log.level must be debug, info, warn or error, got %q", value)
		}
	case "log.format":
		if value != "text" && value != "json" {
			return fmt.Errorf("log.format must be text or json, got %q", value)
		}
		cfg.Log.Format = value
	case "log.file":
		cfg.Log.File = value
	case "serve.addr":
		cfg.Serve.Addr = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// loaded returns the config file contents, or an empty config when it
// cannot be read.
func loaded() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		return &Config{}
	}
	return cfg
}

func durationSetting(envKey, configured string, def time.Duration) time.Duration {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if configured != "" {
		if d, err := time.ParseDuration(configured); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func stringSetting(envKey, configured, def string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configured != "" {
		return configured
	}
	return def
}

// GetDataDir returns the directory holding the local database.
// Priority: CHECKIN_DATA_DIR env > config.json data_dir > ~/.local/share/checkin
func GetDataDir() (string, error) {
	if dir := stringSetting("CHECKIN_DATA_DIR", loaded().DataDir, ""); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "checkin"), nil
}

// GetFetchTimeout returns the per-request timeout for remote fetches.
// Priority: CHECKIN_FETCH_TIMEOUT env > config.json fetch.timeout > 15s
func GetFetchTimeout() time.Duration {
	return durationSetting("CHECKIN_FETCH_TIMEOUT", loaded().Fetch.Timeout, defaultFetchTimeout)
}

// GetUserAgent returns the User-Agent sent with every fetch.
// Priority: CHECKIN_USER_AGENT env > config.json fetch.user_agent > "checkin"
func GetUserAgent() string {
	return stringSetting("CHECKIN_USER_AGENT", loaded().Fetch.UserAgent, defaultUserAgent)
}

// GetSyncConcurrency returns the event fetch fan-out limit.
// Priority: CHECKIN_SYNC_CONCURRENCY env > config.json sync.concurrency > 8
func GetSyncConcurrency() int {
	if v := os.Getenv("CHECKIN_SYNC_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if c := loaded().Sync.Concurrency; c != nil && *c > 0 {
		return *c
	}
	return defaultConcurrency
}

// GetSyncInterval returns the period between syncs in `checkin serve`.
// Priority: CHECKIN_SYNC_INTERVAL env > config.json sync.interval > 5m
func GetSyncInterval() time.Duration {
	return durationSetting("CHECKIN_SYNC_INTERVAL", loaded().Sync.Interval, defaultInterval)
}

// GetLogLevel returns the configured log level name.
// Priority: CHECKIN_LOG_LEVEL env > config.json log.level > "info"
func GetLogLevel() string {
	return strings.ToLower(stringSetting("CHECKIN_LOG_LEVEL", loaded().Log.Level, "info"))
}

// GetLogFormat returns "text" or "json".
// Priority: CHECKIN_LOG_FORMAT env > config.json log.format > "text"
func GetLogFormat() string {
	return strings.ToLower(stringSetting("CHECKIN_LOG_FORMAT", loaded().Log.Format, "text"))
}

// GetLogFile returns the log file path, empty for stderr.
// Priority: CHECKIN_LOG_FILE env > config.json log.file
func GetLogFile() string {
	return stringSetting("CHECKIN_LOG_FILE", loaded().Log.File, "")
}

// GetServeAddr returns the listen address of `checkin serve`.
// Priority: CHECKIN_SERVE_ADDR env > config.json serve.addr > 127.0.0.1:8787
func GetServeAddr() string {
	return stringSetting("CHECKIN_SERVE_ADDR", loaded().Serve.Addr, defaultServeAddr)
}
