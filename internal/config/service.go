package config

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/oplink/internal/loggy"
)

// SettingsService layers stored settings on top of the environment configuration
type SettingsService struct {
	repo   SettingsRepository
	config *Config
	logger *loggy.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo SettingsRepository, cfg *Config, logger *loggy.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		config: cfg,
		logger: logger,
	}
}

// ApplyStoredConnection fills empty Nextcloud connection fields from stored settings.
// Values coming from the environment always win.
func (s *SettingsService) ApplyStoredConnection(ctx context.Context) error {
	settings, err := s.repo.GetSettings(ctx, "nextcloud.")
	if err != nil {
		return fmt.Errorf("loading nextcloud settings: %w", err)
	}

	nc := &s.config.Nextcloud
	if nc.URL == "" {
		nc.URL = settings[KeyNextcloudURL]
	}
	if nc.User == "" {
		nc.User = settings[KeyNextcloudUser]
	}
	if nc.AppPassword == "" {
		nc.AppPassword = settings[KeyNextcloudAppPassword]
	}

	return s.config.validateNextcloud()
}

// SaveConnection stores the Nextcloud connection and applies it to the running config
func (s *SettingsService) SaveConnection(ctx context.Context, url, user, appPassword string) error {
	if err := validateHTTPURL(url); err != nil {
		return err
	}

	for key, value := range map[string]string{
		KeyNextcloudURL:         url,
		KeyNextcloudUser:        user,
		KeyNextcloudAppPassword: appPassword,
	} {
		if err := s.repo.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}

	s.config.Nextcloud.URL = url
	s.config.Nextcloud.User = user
	s.config.Nextcloud.AppPassword = appPassword
	s.logger.Info("Stored nextcloud connection", "url", url, "user", user)
	return nil
}

// ClearConnection removes the stored Nextcloud connection
func (s *SettingsService) ClearConnection(ctx context.Context) error {
	for _, key := range []string{KeyNextcloudURL, KeyNextcloudUser, KeyNextcloudAppPassword} {
		if err := s.repo.DeleteSetting(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	return nil
}

// LastWorkPackage returns the work package used by the previous link run, if any
func (s *SettingsService) LastWorkPackage(ctx context.Context) (string, error) {
	return s.repo.GetSetting(ctx, KeyLastWorkPackage)
}

// RememberWorkPackage stores the work package used by a link run
func (s *SettingsService) RememberWorkPackage(ctx context.Context, id string) error {
	return s.repo.SetSetting(ctx, KeyLastWorkPackage, id)
}
