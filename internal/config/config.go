// Package config provides configuration management for the Verdant client
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Logging   LoggingConfig
	Remote    RemoteConfig
	Sync      SyncConfig
	configDir string // Internal: Directory where config was loaded from
}

// DatabaseConfig represents local store configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// RemoteConfig holds configuration for the remote assessment service
type RemoteConfig struct {
	URL        string        // Service base URL
	Token      string        // Bearer token supplied by the identity provider
	Timeout    time.Duration // Request timeout
	MaxRetries int           // Transient-failure retries inside the HTTP client
	DeviceName string        // Device name for identification
}

// SyncConfig holds configuration for the reconciliation engine
type SyncConfig struct {
	Enabled          bool          // Whether background reconciliation is enabled
	SweepInterval    time.Duration // Period between reconciliation sweeps while online
	OnlineDebounce   time.Duration // Settle delay after an offline-to-online transition
	ProbeInterval    time.Duration // Connectivity probe period
	PushesPerSecond  float64       // Rate limit for sweep pushes to the remote service
	PushBurst        int           // Burst allowance for the push rate limiter
	MaxCreateRetries int           // Bounded foreground creation attempts in the facades
	BatchLimit       int           // Maximum pending records per table per sweep pass
}

// New returns a new empty Config
func New() *Config {
	return &Config{
		Database: DatabaseConfig{},
		Logging:  LoggingConfig{},
		Remote:   RemoteConfig{},
		Sync:     SyncConfig{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.validateSync(); err != nil {
		return fmt.Errorf("sync config: %w", err)
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
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Create the directory if it doesn't exist
	dir := filepath.Dir(c.Database.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy_timeout must be positive")
	}

	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error", "none":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}

	if c.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval must be positive")
	}

	if c.Sync.MaxCreateRetries <= 0 {
		return fmt.Errorf("max_create_retries must be positive")
	}

	if c.Sync.PushesPerSecond <= 0 {
		return fmt.Errorf("pushes_per_second must be positive")
	}

	if c.Sync.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive")
	}

	return nil
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}
