package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// CreatePasswordReset stores a reset code, invalidating any earlier unused
// codes for the same user.
func (s *SQLiteStore) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	if reset.ID == "" {
		reset.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE user_id = ? AND used_at IS NULL`,
		reset.CreatedAt, reset.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate previous codes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO password_resets (id, user_id, code_hash, attempts, expires_at, created_at) VALUES (?, ?, ?, 0, ?, ?)`,
		reset.ID, reset.UserID, reset.CodeHash, reset.ExpiresAt, reset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert password reset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetActivePasswordReset returns the newest unused, unexpired code for a user.
func (s *SQLiteStore) GetActivePasswordReset(ctx context.Context, userID string, now int64) (*models.PasswordReset, error) {
	r := &models.PasswordReset{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, attempts, expires_at, created_at
		 FROM password_resets
		 WHERE user_id = ? AND used_at IS NULL AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID, now,
	).Scan(&r.ID, &r.UserID, &r.CodeHash, &r.Attempts, &r.ExpiresAt, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("password reset for %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	return r, nil
}

// ClaimPasswordResetAttempt counts one guess against a code. It reports
// false once maxAttempts guesses were already counted, so concurrent guesses
// cannot exceed the limit.
func (s *SQLiteStore) ClaimPasswordResetAttempt(ctx context.Context, id string, maxAttempts int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE password_resets SET attempts = attempts + 1 WHERE id = ? AND used_at IS NULL AND attempts < ?`,
		id, maxAttempts,
	)
	if err != nil {
		return false, fmt.Errorf("failed to count reset attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count reset attempt: %w", err)
	}
	return n == 1, nil
}

// MarkPasswordResetUsed consumes a code.
func (s *SQLiteStore) MarkPasswordResetUsed(ctx context.Context, id string, usedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		usedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark password reset used: %w", err)
	}
	return rowsAffected(res, "password reset", id)
}

// RevokeToken blocks a session token until it would have expired anyway.
func (s *SQLiteStore) RevokeToken(ctx context.Context, jti string, expiresAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT(jti) DO NOTHING`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token ID was revoked.
func (s *SQLiteStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return revoked, nil
}

// SessionActive reports whether a token still opens a session: its user
// exists at the same session version and its jti was not revoked.
func (s *SQLiteStore) SessionActive(ctx context.Context, userID, jti string, version int64) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ? AND session_version = ?)
		    AND NOT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = ?)`,
		userID, version, jti,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return active, nil
}

// PurgeExpiredTokens deletes revoked tokens and reset codes that expired before now.
func (s *SQLiteStore) PurgeExpiredTokens(ctx context.Context, now int64) (int64, error) {
	var total int64
	for _, query := range []string{
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`,
		`DELETE FROM password_resets WHERE expires_at <= ?`,
	} {
		res, err := s.db.ExecContext(ctx, query, now)
		if err != nil {
			return total, fmt.Errorf("failed to purge tokens: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
