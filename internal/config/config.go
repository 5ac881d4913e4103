package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete application configuration.
// It is built once by LoadFromEnv and passed to every component that needs it.
type Config struct {
	Nextcloud   NextcloudConfig
	OpenProject OpenProjectConfig
	Link        LinkConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	configDir   string
}

// NextcloudConfig holds the connection to the Nextcloud instance hosting the integration app
type NextcloudConfig struct {
	URL         string        // Base URL, e.g. https://cloud.example.com
	User        string        // Admin user used for admin-config calls
	AppPassword string        // App password for User
	Timeout     time.Duration // Per request timeout
	MaxRetries  int           // Retries for transient failures
}

// OpenProjectConfig holds the connection to the OpenProject API
type OpenProjectConfig struct {
	URL          string // Base URL, e.g. https://openproject.example.com
	Token        string // Personal access token, takes precedence over client credentials
	ClientID     string
	ClientSecret string
	TokenURL     string // Defaults to <URL>/oauth/token
	Timeout      time.Duration
	MaxRetries   int
}

// LinkConfig tunes the bulk link orchestrator
type LinkConfig struct {
	Concurrency       int // Maximum requests in flight
	RequestsPerMinute int // Pacing for link requests
	BurstLimit        int
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	CacheSize       int           // Cache size in KiB
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error, none
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool
	TimeFormat string
}

// New returns a new empty Config
func New() *Config {
	return &Config{}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateNextcloud(); err != nil {
		return fmt.Errorf("nextcloud config: %w", err)
	}

	if err := c.validateOpenProject(); err != nil {
		return fmt.Errorf("openproject config: %w", err)
	}

	if err := c.validateLink(); err != nil {
		return fmt.Errorf("link config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateNextcloud() error {
	// Credentials may still arrive from stored settings, only the shape is checked here
	if c.Nextcloud.URL != "" {
		if err := validateHTTPURL(c.Nextcloud.URL); err != nil {
			return err
		}
	}

	if c.Nextcloud.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.Nextcloud.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	return nil
}

func (c *Config) validateOpenProject() error {
	if c.OpenProject.URL == "" {
		return nil
	}

	if err := validateHTTPURL(c.OpenProject.URL); err != nil {
		return err
	}

	if c.OpenProject.Token == "" && (c.OpenProject.ClientID == "") != (c.OpenProject.ClientSecret == "") {
		return fmt.Errorf("client_id and client_secret must be set together")
	}

	if c.OpenProject.TokenURL == "" {
		c.OpenProject.TokenURL = strings.TrimRight(c.OpenProject.URL, "/") + "/oauth/token"
	}

	if c.OpenProject.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

func (c *Config) validateLink() error {
	if c.Link.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if c.Link.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}

	if c.Link.BurstLimit <= 0 {
		c.Link.BurstLimit = c.Link.Concurrency
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if c.Database.Path != ":memory:" {
		dir := filepath.Dir(c.Database.Path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory for database: %w", err)
			}
		}
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy timeout must be positive")
	}

	if c.Database.ConnMaxLife <= 0 {
		return fmt.Errorf("connection max life must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getTimeFormat converts a named time format to its layout
func getTimeFormat(name string) string {
	switch name {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Kitchen":
		return time.Kitchen
	case "DateTime":
		return time.DateTime
	case "Date":
		return time.DateOnly
	case "Time":
		return time.TimeOnly
	default:
		return name
	}
}
