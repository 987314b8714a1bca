package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// ProfileService reads and updates profiles and settings.
type ProfileService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(store storage.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{store: store, logger: logger}
}

// ProfileInput is the body of a profile update.
type ProfileInput struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// SettingsInput is the body of a settings update.
type SettingsInput struct {
	Currency           string           `json:"currency"`
	Theme              string           `json:"theme"`
	EmailNotifications bool             `json:"email_notifications"`
	MonthlyBudget      *decimal.Decimal `json:"monthly_budget"`
}

// GetProfile returns the caller's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// UpdateProfile changes the display name and avatar.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, invalid("display name is required")
	}
	if len(name) > 100 {
		return nil, invalid("display name must be at most 100 characters")
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.DisplayName = name
	profile.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.logger.Info("Profile updated", "user_id", userID)
	return profile, nil
}

// GetSettings returns the caller's preferences.
func (s *ProfileService) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	return s.store.GetSettings(ctx, userID)
}

// UpdateSettings replaces the caller's settings. A nil budget clears it.
func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*models.UserSettings, error) {
	currency := strings.TrimSpace(in.Currency)
	if !currencyCode.MatchString(currency) {
		return nil, invalid("currency must be a 3-letter upper-case code")
	}
	switch in.Theme {
	case models.ThemeSystem, models.ThemeLight, models.ThemeDark:
	default:
		return nil, invalid("theme must be one of system, light, dark")
	}
	if in.MonthlyBudget != nil && in.MonthlyBudget.IsNegative() {
		return nil, invalid("monthly budget cannot be negative")
	}

	settings := &models.UserSettings{
		UserID:             userID,
		Currency:           currency,
		Theme:              in.Theme,
		EmailNotifications: in.EmailNotifications,
		MonthlyBudget:      in.MonthlyBudget,
	}
	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	s.logger.Info("Settings updated", "user_id", userID)
	return settings, nil
}
