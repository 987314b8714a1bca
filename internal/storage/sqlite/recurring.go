package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

const recurringColumns = `id, user_id, description, amount, category, frequency, interval, start_date,
	COALESCE(end_date, ''), next_due, active, created_at`

func scanRecurring(scanner interface{ Scan(...any) error }) (*models.RecurringExpense, error) {
	r := &models.RecurringExpense{}
	err := scanner.Scan(&r.ID, &r.UserID, &r.Description, &r.Amount, &r.Category, &r.Frequency, &r.Interval,
		&r.StartDate, &r.EndDate, &r.NextDue, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRecurring persists a new recurring rule.
func (s *SQLiteStore) CreateRecurring(ctx context.Context, rule *models.RecurringExpense) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt == 0 {
		rule.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses (id, user_id, description, amount, category, frequency, interval,
		 start_date, end_date, next_due, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Description, rule.Amount.String(), rule.Category, rule.Frequency, rule.Interval,
		rule.StartDate, nullString(rule.EndDate), rule.NextDue, rule.Active, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring expense: %w", err)
	}
	return nil
}

// GetRecurring retrieves a rule by ID.
func (s *SQLiteStore) GetRecurring(ctx context.Context, id string) (*models.RecurringExpense, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ?`, id)
	r, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring expense: %w", err)
	}
	return r, nil
}

// ListRecurring returns a user's rules ordered by next due date.
func (s *SQLiteStore) ListRecurring(ctx context.Context, userID string) ([]*models.RecurringExpense, error) {
	return s.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE user_id = ? ORDER BY next_due, created_at, id`,
		userID,
	)
}

// SetRecurringActive pauses or resumes a rule.
func (s *SQLiteStore) SetRecurringActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE recurring_expenses SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update recurring expense: %w", err)
	}
	return rowsAffected(res, "recurring expense", id)
}

// ResumeRecurring reactivates a rule with a new next due date.
func (s *SQLiteStore) ResumeRecurring(ctx context.Context, id, nextDue string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET active = 1, next_due = ? WHERE id = ?`, nextDue, id)
	if err != nil {
		return fmt.Errorf("failed to resume recurring expense: %w", err)
	}
	return rowsAffected(res, "recurring expense", id)
}

// DeleteRecurring removes a rule. Expenses it created stay, unlinked.
func (s *SQLiteStore) DeleteRecurring(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring expense: %w", err)
	}
	return rowsAffected(res, "recurring expense", id)
}

// ListDueRecurring returns active rules due on or before today.
func (s *SQLiteStore) ListDueRecurring(ctx context.Context, today string) ([]*models.RecurringExpense, error) {
	return s.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE active = 1 AND next_due <= ? ORDER BY next_due, id`,
		today,
	)
}

// MaterializeRecurring books one occurrence and advances the rule atomically.
// The update is guarded on the stored next_due so two concurrent runs cannot
// book the same date twice.
func (s *SQLiteStore) MaterializeRecurring(ctx context.Context, rule *models.RecurringExpense, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE recurring_expenses SET next_due = ?, active = ? WHERE id = ? AND next_due = ? AND active = 1`,
		rule.NextDue, rule.Active, rule.ID, expense.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to advance recurring expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring expense %s already advanced past %s: %w", rule.ID, expense.Date, storage.ErrConflict)
	}

	expense.RecurringID = rule.ID
	if err := insertExpense(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryRecurring(ctx context.Context, query string, args ...any) ([]*models.RecurringExpense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring expenses: %w", err)
	}
	defer rows.Close()

	rules := []*models.RecurringExpense{}
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring expense: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring expenses: %w", err)
	}
	return rules, nil
}
