package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

const (
	// ResetCodeTTL is how long a password reset code stays valid.
	ResetCodeTTL = 15 * time.Minute
	// MaxResetAttempts is how many wrong guesses burn a reset code.
	MaxResetAttempts = 5
)

var errInvalidResetCode = invalid("invalid or expired code")

// AuthService handles accounts and sessions.
type AuthService struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	groups        *GroupService
	mailer        Mailer
	hub           Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	resetCost     int
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithResetCodeCost sets the bcrypt cost used for reset codes.
func WithResetCodeCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.resetCost = cost
	}
}

// NewAuthService creates a new authentication service. mailer and hub may be nil.
func NewAuthService(store storage.Store, authenticator auth.Authenticator, jwtManager *auth.JWTManager, groups *GroupService, mailer Mailer, hub Publisher, m *metrics.Metrics, logger *slog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:         store,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		groups:        groups,
		mailer:        mailer,
		hub:           hub,
		metrics:       m,
		logger:        logger,
		resetCost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is what sign-up and login return.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
}

// SessionInfo describes the caller of an authenticated request.
type SessionInfo struct {
	User      *models.User         `json:"user"`
	Profile   *models.Profile      `json:"profile"`
	Settings  *models.UserSettings `json:"settings"`
	ExpiresAt int64                `json:"expires_at"`
}

// UpdateUserInput changes any of the account's email, password or display
// name. Nil fields are left alone.
type UpdateUserInput struct {
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	DisplayName *string `json:"display_name"`
}

// Signup creates a new user account and logs it in.
func (s *AuthService) Signup(ctx context.Context, email, password, displayName string) (*Session, error) {
	s.logger.Info("Signup request", "email", email)

	user, err := s.authenticator.Register(ctx, email, strings.TrimSpace(displayName), password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return session, nil
}

// Login authenticates a user and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	session, err := s.newSession(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return session, nil
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return &Session{User: user, Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Session returns the account behind a validated token.
func (s *AuthService) Session(ctx context.Context, claims *auth.Claims) (*SessionInfo, error) {
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	settings, err := s.store.GetSettings(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &SessionInfo{User: user, Profile: profile, Settings: settings, ExpiresAt: claims.ExpiresUnix()}, nil
}

// UpdateUser changes the caller's email, password or display name.
func (s *AuthService) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (*models.User, error) {
	if in.Email == nil && in.Password == nil && in.DisplayName == nil {
		return nil, invalid("nothing to update")
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email, err := auth.NormalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.store.UpdateUserEmail(ctx, userID, email); err != nil {
				if errors.Is(err, storage.ErrConflict) {
					return nil, auth.ErrEmailExists
				}
				return nil, fmt.Errorf("failed to update email: %w", err)
			}
		}
	}
	if in.Password != nil {
		if err := s.authenticator.ValidateCredential(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.authenticator.HashCredential(*in.Password)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, invalid("display name cannot be empty")
		}
		profile, err := s.store.GetProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		profile.DisplayName = name
		if err := s.store.UpdateProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	s.logger.Info("User updated", "user_id", userID,
		"email_changed", in.Email != nil,
		"password_changed", in.Password != nil,
		"display_name_changed", in.DisplayName != nil,
	)
	return s.store.GetUserByID(ctx, userID)
}

// Logout revokes the presented token until it would have expired and tells
// the user's other tabs.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.store.RevokeToken(ctx, claims.ID, claims.ExpiresUnix()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if s.hub != nil {
		s.hub.Publish(claims.UserID, realtime.NewMessage("session", "revoked", claims.ID, nil))
	}
	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}

// RequestPasswordReset mails a reset code when email belongs to an account.
// It reports success either way so callers cannot discover which emails have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := auth.NormalizeEmail(email)
	if err != nil {
		return nil
	}
	user, err := s.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	code, hash, err := auth.NewResetCode(s.resetCost)
	if err != nil {
		return err
	}
	now := time.Now()
	reset := &models.PasswordReset{
		UserID:    user.ID,
		CodeHash:  hash,
		ExpiresAt: now.Add(ResetCodeTTL).Unix(),
		CreatedAt: now.Unix(),
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	if s.mailer == nil || !s.mailer.Configured() {
		s.logger.Warn("Email not configured, password reset code not sent", "user_id", user.ID)
		s.metrics.EmailSent("password_reset", "skipped")
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, code); err != nil {
		s.logger.Error("Failed to send password reset email", "user_id", user.ID, "error", err)
		s.metrics.EmailSent("password_reset", "failed")
		return nil
	}
	s.metrics.EmailSent("password_reset", "sent")
	s.logger.Info("Password reset code sent", "user_id", user.ID)
	return nil
}

// ConfirmPasswordReset sets a new password if code is the user's current
// reset code and ends the user's existing sessions. A code allows at most
// MaxResetAttempts guesses.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, password string) error {
	normalized, err := auth.NormalizeEmail(email)
	if err != nil {
		return errInvalidResetCode
	}
	if err := s.authenticator.ValidateCredential(password); err != nil {
		return err
	}
	user, err := s.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errInvalidResetCode
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	now := time.Now().Unix()
	reset, err := s.store.GetActivePasswordReset(ctx, user.ID, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errInvalidResetCode
		}
		return fmt.Errorf("failed to load reset code: %w", err)
	}
	claimed, err := s.store.ClaimPasswordResetAttempt(ctx, reset.ID, MaxResetAttempts)
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Warn("Password reset code used up", "user_id", user.ID)
		return errInvalidResetCode
	}
	if !auth.CheckResetCode(reset.CodeHash, strings.TrimSpace(code)) {
		s.logger.Warn("Wrong password reset code", "user_id", user.ID, "attempts", reset.Attempts+1)
		return errInvalidResetCode
	}

	hash, err := s.authenticator.HashCredential(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.store.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}
	if err := s.store.BumpSessionVersion(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to end sessions: %w", err)
	}
	if s.hub != nil {
		s.hub.Disconnect(user.ID, realtime.NewMessage("session", "revoked", "", nil))
	}
	s.logger.Info("Password reset", "user_id", user.ID)
	return nil
}

// CheckEmail reports whether an account uses email.
func (s *AuthService) CheckEmail(ctx context.Context, email string) (bool, error) {
	normalized, err := auth.NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	return s.store.EmailExists(ctx, normalized)
}

// DeleteAccount removes the caller's account. It is refused while the user
// owes or is owed money in any group. Owned groups pass to the earliest
// joined remaining member or are deleted when nobody else is left. The
// presented token is revoked; the account's other tokens die with it.
func (s *AuthService) DeleteAccount(ctx context.Context, claims *auth.Claims) error {
	userID := claims.UserID
	groups, err := s.groups.UserBalances(ctx, userID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if !g.NetBalance.IsZero() {
			return conflict("settle your balance of %s in %q before deleting your account", g.NetBalance.StringFixed(2), g.Name)
		}
	}

	if err := s.groups.handOver(ctx, userID); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := s.store.RevokeToken(ctx, claims.ID, claims.ExpiresUnix()); err != nil {
		s.logger.Error("Failed to revoke token of deleted account", "user_id", userID, "error", err)
	}
	if s.hub != nil {
		s.hub.Disconnect(userID, realtime.NewMessage("account", "deleted", userID, nil))
	}
	s.logger.Info("Account deleted", "user_id", userID, "groups", len(groups))
	return nil
}
