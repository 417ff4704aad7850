package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the follower lookup engine
type Config struct {
	// Instagram session credentials (scraping source)
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Graph API credentials (official source)
	GraphAPI GraphAPIConfig `yaml:"graph_api" json:"graph_api"`

	// Rate limiting for the scraping source
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Lookup run settings
	Lookup LookupConfig `yaml:"lookup" json:"lookup"`

	// Storage paths
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the scraping session configuration
type InstagramConfig struct {
	Username  string `yaml:"username" json:"username"`
	SessionID string `yaml:"session_id" json:"session_id"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// GraphAPIConfig holds the official Graph API configuration. The official
// source is safe to run near the documented limit, so its caps are loose
// compared to the scraper's.
type GraphAPIConfig struct {
	AccessToken string        `yaml:"access_token" json:"access_token"`
	UserID      string        `yaml:"user_id" json:"user_id"`
	HourlyCap   int           `yaml:"hourly_cap" json:"hourly_cap"`
	MinDelay    time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// RateLimitConfig holds the safety caps for the scraping source. The
// defaults are deliberately ultra-conservative: the point is to stay far
// below anything that looks like automation.
type RateLimitConfig struct {
	MinDelay          time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	HourlyCap         int           `yaml:"hourly_cap" json:"hourly_cap"`
	DailyCap          int           `yaml:"daily_cap" json:"daily_cap"`
	SessionCap        int           `yaml:"session_cap" json:"session_cap"`
	SessionRest       time.Duration `yaml:"session_rest" json:"session_rest"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown" json:"rate_limit_cooldown"`
	CooldownCeiling   time.Duration `yaml:"cooldown_ceiling" json:"cooldown_ceiling"`
	LongPauseMin      time.Duration `yaml:"long_pause_min" json:"long_pause_min"`
	LongPauseMax      time.Duration `yaml:"long_pause_max" json:"long_pause_max"`
	LongPauseEveryMin int           `yaml:"long_pause_every_min" json:"long_pause_every_min"`
	LongPauseEveryMax int           `yaml:"long_pause_every_max" json:"long_pause_every_max"`
}

// LookupConfig holds run-level settings shared by both sources
type LookupConfig struct {
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" json:"resolve_timeout"`
	MaxDuration    time.Duration `yaml:"max_duration" json:"max_duration"`
}

// StorageConfig holds filesystem paths
type StorageConfig struct {
	// DataDirectory overrides the platform default data directory
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
	// DatabaseFile is the checkpoint database filename inside the data directory
	DatabaseFile string `yaml:"database_file" json:"database_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		GraphAPI: GraphAPIConfig{
			HourlyCap: 180,
			MinDelay:  2 * time.Second,
			MaxDelay:  5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MinDelay:          30 * time.Second,
			MaxDelay:          90 * time.Second,
			HourlyCap:         40,
			DailyCap:          400,
			SessionCap:        150,
			SessionRest:       2 * time.Hour,
			RateLimitCooldown: 30 * time.Minute,
			CooldownCeiling:   4 * time.Hour,
			LongPauseMin:      2 * time.Minute,
			LongPauseMax:      5 * time.Minute,
			LongPauseEveryMin: 10,
			LongPauseEveryMax: 20,
		},
		Lookup: LookupConfig{
			BatchSize:      50,
			MaxRetries:     3,
			ResolveTimeout: 2 * time.Minute,
			MaxDuration:    0, // no ceiling
		},
		Storage: StorageConfig{
			DatabaseFile: "checkpoint.db",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Load .env file if present; missing files are not an error
	_ = godotenv.Load()

	if username := os.Getenv("IGFOLLOWERS_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if sessionID := os.Getenv("IGFOLLOWERS_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("IGFOLLOWERS_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("IGFOLLOWERS_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if token := os.Getenv("GRAPH_API_TOKEN"); token != "" {
		c.GraphAPI.AccessToken = token
	}
	if userID := os.Getenv("GRAPH_API_USER_ID"); userID != "" {
		c.GraphAPI.UserID = userID
	}
	if dir := os.Getenv("IGFOLLOWERS_DATA_DIR"); dir != "" {
		c.Storage.DataDirectory = dir
	}
	if level := os.Getenv("IGFOLLOWERS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if v := os.Getenv("IGFOLLOWERS_HOURLY_CAP"); v != "" {
		cap, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IGFOLLOWERS_HOURLY_CAP: %w", err)
		}
		c.RateLimit.HourlyCap = cap
	}
	if v := os.Getenv("IGFOLLOWERS_DAILY_CAP"); v != "" {
		cap, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IGFOLLOWERS_DAILY_CAP: %w", err)
		}
		c.RateLimit.DailyCap = cap
	}
	if v := os.Getenv("IGFOLLOWERS_SESSION_CAP"); v != "" {
		cap, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IGFOLLOWERS_SESSION_CAP: %w", err)
		}
		c.RateLimit.SessionCap = cap
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// SaveToFile writes the configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.RateLimit.HourlyCap <= 0 {
		return errors.New("rate_limit.hourly_cap must be positive")
	}
	if c.RateLimit.DailyCap < c.RateLimit.HourlyCap {
		return errors.New("rate_limit.daily_cap must be at least the hourly cap")
	}
	if c.RateLimit.SessionCap <= 0 {
		return errors.New("rate_limit.session_cap must be positive")
	}
	if c.RateLimit.MinDelay < 0 || c.RateLimit.MaxDelay < c.RateLimit.MinDelay {
		return errors.New("rate_limit delays must satisfy 0 <= min_delay <= max_delay")
	}
	if c.RateLimit.LongPauseEveryMin <= 0 || c.RateLimit.LongPauseEveryMax < c.RateLimit.LongPauseEveryMin {
		return errors.New("rate_limit.long_pause_every range is invalid")
	}
	if c.Lookup.BatchSize <= 0 {
		return errors.New("lookup.batch_size must be positive")
	}
	if c.Lookup.ResolveTimeout <= 0 {
		return errors.New("lookup.resolve_timeout must be positive")
	}
	if c.Storage.DatabaseFile == "" {
		return errors.New("storage.database_file must not be empty")
	}
	return nil
}

// Load reads configuration with the standard precedence:
// defaults, then the config file (if any), then environment overrides.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	} else {
		// Try the default location; absence is fine
		if home, err := os.UserHomeDir(); err == nil {
			defaultPath := filepath.Join(home, ".igfollowers.yaml")
			if _, err := os.Stat(defaultPath); err == nil {
				if err := cfg.LoadFromFile(defaultPath); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DataDirectory resolves the data directory for the current OS, honoring
// the configured override.
func (c *Config) DataDirectory() (string, error) {
	if c.Storage.DataDirectory != "" {
		if err := os.MkdirAll(c.Storage.DataDirectory, 0755); err != nil {
			return "", fmt.Errorf("failed to create data directory: %w", err)
		}
		return c.Storage.DataDirectory, nil
	}

	var dataDir string
	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "igfollowers")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "igfollowers")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "igfollowers")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "igfollowers")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}

// DatabasePath resolves the full path of the checkpoint database
func (c *Config) DatabasePath() (string, error) {
	dir, err := c.DataDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.DatabaseFile), nil
}
