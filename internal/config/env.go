package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".verdant")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	cfg.configDir = configDir

	// Default database and log paths are in the config directory
	cfg.Database.Path = filepath.Join(configDir, "verdant.db")
	defaultLogPath := filepath.Join(configDir, "verdant.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// Check if ENV_FILE_PATH is set to load from a custom .env file
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		// Try to load from config directory first, then current directory
		if err := godotenv.Load(configFilePath); err != nil {
			_ = godotenv.Load() // Ignore errors if file doesn't exist
		}
	}

	// Database Configuration
	cfg.Database = DatabaseConfig{
		Path:            getEnvString("VERDANT_DB_PATH", cfg.Database.Path),
		BusyTimeout:     getEnvInt("VERDANT_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("VERDANT_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("VERDANT_DB_SYNCHRONOUS_MODE", "NORMAL"),
		ForeignKeys:     getEnvBool("VERDANT_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("VERDANT_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("VERDANT_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	// Logging Configuration
	cfg.Logging = LoggingConfig{
		Level:      getEnvString("VERDANT_LOG_LEVEL", "info"),
		Format:     getEnvString("VERDANT_LOG_FORMAT", "text"),
		Output:     getEnvString("VERDANT_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("VERDANT_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("VERDANT_LOG_TIME_FORMAT", time.RFC3339),
	}

	// Remote service configuration
	cfg.Remote = RemoteConfig{
		URL:        getEnvString("VERDANT_REMOTE_URL", "http://localhost:4000"),
		Token:      getEnvString("VERDANT_REMOTE_TOKEN", ""),
		Timeout:    getEnvDuration("VERDANT_REMOTE_TIMEOUT", 30*time.Second),
		MaxRetries: getEnvInt("VERDANT_REMOTE_MAX_RETRIES", 2),
		DeviceName: getEnvString("VERDANT_REMOTE_DEVICE_NAME", ""),
	}

	// Reconciliation configuration
	cfg.Sync = SyncConfig{
		Enabled:          getEnvBool("VERDANT_SYNC_ENABLED", true),
		SweepInterval:    getEnvDuration("VERDANT_SYNC_SWEEP_INTERVAL", 30*time.Second),
		OnlineDebounce:   getEnvDuration("VERDANT_SYNC_ONLINE_DEBOUNCE", 2*time.Second),
		ProbeInterval:    getEnvDuration("VERDANT_SYNC_PROBE_INTERVAL", 10*time.Second),
		PushesPerSecond:  getEnvFloat("VERDANT_SYNC_PUSHES_PER_SECOND", 5),
		PushBurst:        getEnvInt("VERDANT_SYNC_PUSH_BURST", 10),
		MaxCreateRetries: getEnvInt("VERDANT_SYNC_MAX_CREATE_RETRIES", 3),
		BatchLimit:       getEnvInt("VERDANT_SYNC_BATCH_LIMIT", 100),
	}

	return cfg, cfg.Validate()
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

// getEnvFloat returns a float64 from the environment variable
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
