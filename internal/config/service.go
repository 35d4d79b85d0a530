package config

import (
	"context"
	"database/sql"

	"github.com/verdantlabs/verdant/internal/loggy"
)

// SettingsService provides operations for managing application settings
type SettingsService struct {
	repo   SettingsRepository
	config *Config
	logger *loggy.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *sql.DB, config *Config, logger *loggy.Logger) *SettingsService {
	repo := NewSQLSettingsRepository(db, logger)

	return &SettingsService{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// GetSetting retrieves a setting by key
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting sets a setting value
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// DeleteSetting deletes a setting
func (s *SettingsService) DeleteSetting(ctx context.Context, key string) error {
	return s.repo.DeleteSetting(ctx, key)
}

// GetRepository returns the underlying repository
func (s *SettingsService) GetRepository() SettingsRepository {
	return s.repo
}

// LoadRemoteSettings loads remote sync settings from the database into the Config
func (s *SettingsService) LoadRemoteSettings(ctx context.Context) error {
	return LoadRemoteSettings(ctx, s.config, s.repo)
}

// SaveRemoteSettings saves remote sync settings from the Config to the database
func (s *SettingsService) SaveRemoteSettings(ctx context.Context) error {
	return SaveRemoteSettings(ctx, s.config, s.repo)
}

// SetToken sets the remote bearer token with proper obfuscation
func (s *SettingsService) SetToken(ctx context.Context, token string) error {
	s.config.Remote.Token = token

	// Saved with automatic obfuscation by the repository
	if err := s.repo.SetSetting(ctx, tokenSettingKey, token); err != nil {
		return err
	}

	// Link state follows token presence
	enabledStr := "false"
	if token != "" {
		enabledStr = "true"
	}
	s.config.Sync.Enabled = token != ""
	return s.repo.SetSetting(ctx, "remote.sync_enabled", enabledStr)
}

// SetServerURL sets the remote service URL
func (s *SettingsService) SetServerURL(ctx context.Context, url string) error {
	s.config.Remote.URL = url
	return s.repo.SetSetting(ctx, "remote.url", url)
}

// SetDeviceName sets the device name used for identification
func (s *SettingsService) SetDeviceName(ctx context.Context, name string) error {
	s.config.Remote.DeviceName = name
	return s.repo.SetSetting(ctx, "remote.device_name", name)
}
