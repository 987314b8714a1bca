package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

const expenseSelect = `SELECT e.id, e.user_id, COALESCE(p.display_name, ''), COALESCE(e.group_id, ''), COALESCE(g.name, ''),
	e.description, e.amount, e.category, e.date, e.notes, COALESCE(e.recurring_id, ''), e.created_at, e.updated_at
	FROM expenses e
	LEFT JOIN groups g ON g.id = e.group_id
	LEFT JOIN profiles p ON p.user_id = e.user_id`

func scanExpense(scanner interface{ Scan(...any) error }) (*models.Expense, error) {
	e := &models.Expense{}
	err := scanner.Scan(&e.ID, &e.UserID, &e.PaidByName, &e.GroupID, &e.GroupName,
		&e.Description, &e.Amount, &e.Category, &e.Date, &e.Notes, &e.RecurringID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, db execer, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = expense.CreatedAt
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, group_id, description, amount, category, date, notes, recurring_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, nullString(expense.GroupID), expense.Description, expense.Amount.String(),
		expense.Category, expense.Date, expense.Notes, nullString(expense.RecurringID),
		expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range expense.Splits {
		split := &expense.Splits[i]
		split.ExpenseID = expense.ID
		_, err := db.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, user_id, amount, position) VALUES (?, ?, ?, ?)`,
			split.ExpenseID, split.UserID, split.Amount.String(), i,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate split for %s: %w", split.UserID, storage.ErrConflict)
			}
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

// CreateExpense inserts the expense and its splits in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertExpense(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ?`, expenseID)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if err := s.loadSplits(ctx, []*models.Expense{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateExpense saves the editable fields of an expense. Splits are not touched.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().Unix()
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category = ?, date = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		expense.Description, expense.Amount.String(), expense.Category, expense.Date, expense.Notes,
		expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return rowsAffected(res, "expense", expense.ID)
}

// DeleteExpense removes an expense and its splits.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return rowsAffected(res, "expense", expenseID)
}

// ListExpenses returns the expenses visible to filter.UserID: their personal
// expenses, and group expenses they paid or hold a split in for groups they
// still belong to. Newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error) {
	personal := `(e.group_id IS NULL AND e.user_id = ?)`
	group := `(e.group_id IS NOT NULL
		AND EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = e.group_id AND m.user_id = ?)
		AND (e.user_id = ? OR EXISTS (SELECT 1 FROM expense_splits sp WHERE sp.expense_id = e.id AND sp.user_id = ?)))`

	var where []string
	var args []any
	switch filter.Scope {
	case models.ScopePersonal:
		where = append(where, personal)
		args = append(args, filter.UserID)
	case models.ScopeGroup:
		where = append(where, group)
		args = append(args, filter.UserID, filter.UserID, filter.UserID)
	default:
		where = append(where, "("+personal+" OR "+group+")")
		args = append(args, filter.UserID, filter.UserID, filter.UserID, filter.UserID)
	}

	if filter.Category != "" {
		where = append(where, `e.category = ? COLLATE NOCASE`)
		args = append(args, filter.Category)
	}
	if filter.Start != "" {
		where = append(where, `e.date >= ?`)
		args = append(args, filter.Start)
	}
	if filter.End != "" {
		where = append(where, `e.date <= ?`)
		args = append(args, filter.End)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)

	query := expenseSelect + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY e.date DESC, e.created_at DESC, e.id LIMIT ? OFFSET ?`
	return s.queryExpenses(ctx, query, args...)
}

// ListGroupExpenses returns every expense of a group, newest first.
func (s *SQLiteStore) ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return s.queryExpenses(ctx,
		expenseSelect+` WHERE e.group_id = ? ORDER BY e.date DESC, e.created_at DESC, e.id`,
		groupID,
	)
}

// ListUserCategories returns the distinct categories a user has recorded.
func (s *SQLiteStore) ListUserCategories(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category FROM expenses WHERE user_id = ?
		 UNION
		 SELECT category FROM recurring_expenses WHERE user_id = ?
		 ORDER BY 1`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func (s *SQLiteStore) queryExpenses(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := []*models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if err := s.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// loadSplits attaches splits to the group expenses in one query.
func (s *SQLiteStore) loadSplits(ctx context.Context, expenses []*models.Expense) error {
	byID := make(map[string]*models.Expense)
	var ids []string
	for _, e := range expenses {
		if e.IsGroup() {
			byID[e.ID] = e
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sp.expense_id, sp.user_id, COALESCE(p.display_name, ''), sp.amount
		 FROM expense_splits sp
		 LEFT JOIN profiles p ON p.user_id = sp.user_id
		 WHERE sp.expense_id IN (`+placeholders(len(ids))+`)
		 ORDER BY sp.expense_id, sp.position`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to load splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.ExpenseSplit
		if err := rows.Scan(&split.ExpenseID, &split.UserID, &split.DisplayName, &split.Amount); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if e, ok := byID[split.ExpenseID]; ok {
			e.Splits = append(e.Splits, split)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate splits: %w", err)
	}
	return nil
}
