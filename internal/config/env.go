package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// DefaultConfigDir returns ~/.oplink
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".oplink"), nil
}

// LoadFromEnv loads configuration from environment variables.
// configDir defaults to ~/.oplink and configFilePath to <configDir>/.env.
// ENV_FILE_PATH overrides both.
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	cfg.configDir = configDir

	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	if envFilePath := getEnvString("ENV_FILE_PATH", ""); envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else if err := godotenv.Load(configFilePath); err != nil {
		_ = godotenv.Load() // fall back to ./.env, absence is fine
	}

	cfg.Nextcloud = NextcloudConfig{
		URL:         getEnvString("OPLINK_NEXTCLOUD_URL", ""),
		User:        getEnvString("OPLINK_NEXTCLOUD_USER", ""),
		AppPassword: getEnvString("OPLINK_NEXTCLOUD_APP_PASSWORD", ""),
		Timeout:     getEnvDuration("OPLINK_NEXTCLOUD_TIMEOUT", 30*time.Second),
		MaxRetries:  getEnvInt("OPLINK_NEXTCLOUD_MAX_RETRIES", 3),
	}

	cfg.OpenProject = OpenProjectConfig{
		URL:          getEnvString("OPLINK_OPENPROJECT_URL", ""),
		Token:        getEnvString("OPLINK_OPENPROJECT_TOKEN", ""),
		ClientID:     getEnvString("OPLINK_OPENPROJECT_CLIENT_ID", ""),
		ClientSecret: getEnvString("OPLINK_OPENPROJECT_CLIENT_SECRET", ""),
		TokenURL:     getEnvString("OPLINK_OPENPROJECT_TOKEN_URL", ""),
		Timeout:      getEnvDuration("OPLINK_OPENPROJECT_TIMEOUT", 30*time.Second),
		MaxRetries:   getEnvInt("OPLINK_OPENPROJECT_MAX_RETRIES", 3),
	}

	cfg.Link = LinkConfig{
		Concurrency:       getEnvInt("OPLINK_LINK_CONCURRENCY", 4),
		RequestsPerMinute: getEnvInt("OPLINK_LINK_REQUESTS_PER_MINUTE", 600),
		BurstLimit:        getEnvInt("OPLINK_LINK_BURST_LIMIT", 4),
	}

	cfg.Database = DatabaseConfig{
		Path:            getEnvString("OPLINK_DB_PATH", filepath.Join(configDir, "oplink.db")),
		BusyTimeout:     getEnvInt("OPLINK_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("OPLINK_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("OPLINK_DB_SYNCHRONOUS_MODE", "NORMAL"),
		CacheSize:       getEnvInt("OPLINK_DB_CACHE_SIZE", -16000),
		ForeignKeys:     getEnvBool("OPLINK_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("OPLINK_DB_CONN_MAX_LIFE", 5*time.Minute),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("OPLINK_LOG_LEVEL", "info"),
		Format:     getEnvString("OPLINK_LOG_FORMAT", "text"),
		Output:     getEnvString("OPLINK_LOG_OUTPUT", filepath.Join(configDir, "oplink.log")),
		AddSource:  getEnvBool("OPLINK_LOG_ADD_SOURCE", true),
		TimeFormat: getTimeFormat(getEnvString("OPLINK_LOG_TIME_FORMAT", "RFC3339")),
	}

	return cfg, cfg.Validate()
}
