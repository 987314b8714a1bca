package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the user's email address (unique, lower-cased).
	Email string `json:"email"`

	// DisplayName comes from the user's profile.
	DisplayName string `json:"display_name"`

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`

	// SessionVersion is bumped to end every session issued before it.
	SessionVersion int64 `json:"-"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewUser creates a new User with a generated ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Profile is the public part of an account.
type Profile struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Theme values accepted in UserSettings.
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// UserSettings holds per-user preferences.
type UserSettings struct {
	UserID             string `json:"user_id"`
	Currency           string `json:"currency"`
	Theme              string `json:"theme"`
	EmailNotifications bool   `json:"email_notifications"`

	// MonthlyBudget is nil when the user has no budget.
	MonthlyBudget *decimal.Decimal `json:"monthly_budget"`

	UpdatedAt int64 `json:"updated_at"`
}

// DefaultSettings returns the settings every new account starts with.
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:             userID,
		Currency:           "USD",
		Theme:              ThemeSystem,
		EmailNotifications: true,
		UpdatedAt:          time.Now().Unix(),
	}
}

// PasswordReset is a one-time code that lets a user choose a new password.
type PasswordReset struct {
	ID        string
	UserID    string
	CodeHash  string
	Attempts  int
	ExpiresAt int64
	UsedAt    int64
	CreatedAt int64
}
