package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// GetProfile retrieves a user's profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT p.user_id, u.email, p.display_name, p.avatar_url, p.updated_at
		 FROM profiles p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpdateProfile saves display name and avatar.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET display_name = ?, avatar_url = ?, updated_at = ? WHERE user_id = ?`,
		profile.DisplayName, profile.AvatarURL, profile.UpdatedAt, profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return rowsAffected(res, "profile", profile.UserID)
}

// GetSettings retrieves a user's settings.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	settings := &models.UserSettings{}
	var budget decimal.NullDecimal
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, currency, theme, email_notifications, monthly_budget, updated_at
		 FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&settings.UserID, &settings.Currency, &settings.Theme, &settings.EmailNotifications, &budget, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if budget.Valid {
		settings.MonthlyBudget = &budget.Decimal
	}
	return settings, nil
}

// UpdateSettings saves a user's settings.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings *models.UserSettings) error {
	settings.UpdatedAt = time.Now().Unix()
	var budget any
	if settings.MonthlyBudget != nil {
		budget = settings.MonthlyBudget.String()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_settings SET currency = ?, theme = ?, email_notifications = ?, monthly_budget = ?, updated_at = ?
		 WHERE user_id = ?`,
		settings.Currency, settings.Theme, settings.EmailNotifications, budget, settings.UpdatedAt, settings.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return rowsAffected(res, "settings", settings.UserID)
}
