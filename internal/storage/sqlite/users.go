package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

const userColumns = `u.id, u.email, COALESCE(p.display_name, ''), u.password_hash, u.session_version, u.created_at, u.updated_at`

const userFrom = ` FROM users u LEFT JOIN profiles p ON p.user_id = u.id`

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.SessionVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user together with their profile and default settings.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, storage.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, display_name, updated_at) VALUES (?, ?, ?)`,
		user.ID, user.DisplayName, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	settings := models.DefaultSettings(user.ID)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, currency, theme, email_notifications, updated_at) VALUES (?, ?, ?, ?, ?)`,
		settings.UserID, settings.Currency, settings.Theme, settings.EmailNotifications, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.email = ?`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Returns a map of user ID to User object.
// Users that don't exist are omitted from the result.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+userFrom+` WHERE u.id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// EmailExists reports whether an account uses email.
func (s *SQLiteStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdateUserEmail changes a user's email address.
func (s *SQLiteStore) UpdateUserEmail(ctx context.Context, userID, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().Unix(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", email, storage.ErrConflict)
		}
		return fmt.Errorf("failed to update email: %w", err)
	}
	return rowsAffected(res, "user", userID)
}

// UpdateUserPassword replaces a user's password hash.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return rowsAffected(res, "user", userID)
}

// BumpSessionVersion ends every session issued to a user so far.
func (s *SQLiteStore) BumpSessionVersion(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET session_version = session_version + 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to bump session version: %w", err)
	}
	return rowsAffected(res, "user", userID)
}

// DeleteUser removes an account, its personal expenses and the invitations
// it still has pending. Group expenses stay so group balances are preserved.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = ? AND group_id IS NULL`, userID); err != nil {
		return fmt.Errorf("failed to delete personal expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE inviter_id = ? AND status = 'pending'`, userID); err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := rowsAffected(res, "user", userID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
