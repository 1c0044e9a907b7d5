package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/repository"
)

// Setting keys
const (
	SettingBaseURL = "base_url"
)

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// GetBaseURL returns the application base URL used in scoring links
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, SettingBaseURL)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil // No default - setting not yet configured
		}
		return "", storeErr(err, "setting")
	}
	return value, nil
}

// SetBaseURL saves the application base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return storeErr(s.repo.SetSetting(ctx, SettingBaseURL, strings.TrimSuffix(url, "/")), "setting")
}

// SetDefaultBaseURL stores url unless a usable base URL is already configured.
// A localhost value is replaced since it is useless in QR codes scanned by phones.
func (s *SettingsService) SetDefaultBaseURL(ctx context.Context, url string) error {
	existing, err := s.GetBaseURL(ctx)
	if err != nil {
		return err
	}
	if existing != "" && !strings.Contains(existing, "localhost") {
		return nil
	}
	if err := s.SetBaseURL(ctx, url); err != nil {
		return err
	}
	s.log.Info("Default base URL set", "url", url)
	return nil
}

// GetSetting retrieves an arbitrary setting
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	value, err := s.repo.GetSetting(ctx, key)
	return value, storeErr(err, "setting")
}

// SetSetting saves an arbitrary setting
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return storeErr(s.repo.SetSetting(ctx, key, value), "setting")
}

// AllSettings returns commonly used settings as a map
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]any, error) {
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{SettingBaseURL: baseURL}, nil
}
