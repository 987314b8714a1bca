package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/export"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// Listing limits.
const (
	DefaultExpenseLimit = 50
	MaxExpenseLimit     = 500
)

// ExpenseService manages personal expenses and the user's expense views.
type ExpenseService struct {
	store    storage.Store
	notifier *NotificationService
	logger   *slog.Logger
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store, notifier *NotificationService, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{store: store, notifier: notifier, logger: logger}
}

// ExpenseInput is the body of a personal expense create or update.
type ExpenseInput struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes"`
}

// ListInput narrows an expense listing.
type ListInput struct {
	Scope    string
	Category string
	Start    string
	End      string
	Limit    int
	Offset   int
}

// BudgetUsage compares this month's spending with the monthly budget.
type BudgetUsage struct {
	Month     string          `json:"month"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
}

// Summary totals the user's share of spending per category.
type Summary struct {
	Start      string                 `json:"start,omitempty"`
	End        string                 `json:"end,omitempty"`
	Categories []models.CategoryTotal `json:"categories"`
	Total      decimal.Decimal        `json:"total"`
	Budget     *BudgetUsage           `json:"budget,omitempty"`
}

// normalize validates an expense body and fills in its defaults.
func (in *ExpenseInput) normalize() error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return invalid("description is required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return invalid("amount must have at most two decimal places")
	}
	if in.Date == "" {
		in.Date = models.Today()
	} else if !models.ValidDate(in.Date) {
		return invalid("date must be YYYY-MM-DD")
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = assistant.Categorize(in.Description)
	}
	in.Notes = strings.TrimSpace(in.Notes)
	return nil
}

// Create records a personal expense.
func (s *ExpenseService) Create(ctx context.Context, userID string, in ExpenseInput) (*models.Expense, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	expense := &models.Expense{
		UserID:      userID,
		Description: in.Description,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Notes:       in.Notes,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	s.logger.Info("Expense created", "expense_id", expense.ID, "user_id", userID, "category", expense.Category)
	s.notifier.Emit(userID, expenseEvent("created", expense))
	return expense, nil
}

// List returns expenses visible to the user, newest first.
func (s *ExpenseService) List(ctx context.Context, userID string, in ListInput) ([]*models.Expense, error) {
	filter, err := buildFilter(userID, in)
	if err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, filter)
}

func buildFilter(userID string, in ListInput) (models.ExpenseFilter, error) {
	scope := in.Scope
	switch scope {
	case "":
		scope = models.ScopeAll
	case models.ScopeAll, models.ScopePersonal, models.ScopeGroup:
	default:
		return models.ExpenseFilter{}, invalid("scope must be one of all, personal, group")
	}
	if err := validateRange(in.Start, in.End); err != nil {
		return models.ExpenseFilter{}, err
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = DefaultExpenseLimit
	case limit > MaxExpenseLimit:
		limit = MaxExpenseLimit
	}
	if in.Offset < 0 {
		return models.ExpenseFilter{}, invalid("offset cannot be negative")
	}
	return models.ExpenseFilter{
		UserID:   userID,
		Scope:    scope,
		Category: strings.TrimSpace(in.Category),
		Start:    in.Start,
		End:      in.End,
		Limit:    limit,
		Offset:   in.Offset,
	}, nil
}

func validateRange(start, end string) error {
	if start != "" && !models.ValidDate(start) {
		return invalid("start must be YYYY-MM-DD")
	}
	if end != "" && !models.ValidDate(end) {
		return invalid("end must be YYYY-MM-DD")
	}
	if start != "" && end != "" && start > end {
		return invalid("start must not be after end")
	}
	return nil
}

// Range returns every visible expense dated between start and end inclusive.
func (s *ExpenseService) Range(ctx context.Context, userID, start, end string) ([]*models.Expense, error) {
	if start == "" || end == "" {
		return nil, invalid("start and end are required")
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, models.ExpenseFilter{
		UserID: userID,
		Scope:  models.ScopeAll,
		Start:  start,
		End:    end,
	})
}

// Get returns one expense if the user can see it: their own personal
// expense, or an expense of a group they belong to.
func (s *ExpenseService) Get(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !expense.IsGroup() {
		if expense.UserID != userID {
			return nil, notFound("expense")
		}
		return expense, nil
	}
	if _, err := s.store.GetGroupMember(ctx, expense.GroupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound("expense")
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return expense, nil
}

// Update edits a personal expense. Group expenses change through their group.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, in ExpenseInput) (*models.Expense, error) {
	expense, err := s.Get(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.IsGroup() {
		return nil, conflict("group expenses are edited through their group")
	}
	if in.Date == "" {
		in.Date = expense.Date
	}
	if strings.TrimSpace(in.Category) == "" {
		in.Category = expense.Category
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	expense.Description = in.Description
	expense.Amount = in.Amount
	expense.Category = in.Category
	expense.Date = in.Date
	expense.Notes = in.Notes
	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	s.logger.Info("Expense updated", "expense_id", expense.ID, "user_id", userID)
	s.notifier.Emit(userID, expenseEvent("updated", expense))
	return expense, nil
}

// Delete removes an expense. Only its creator may.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	expense, err := s.Get(ctx, userID, expenseID)
	if err != nil {
		return err
	}
	if expense.UserID != userID {
		return forbidden("only the creator can delete this expense")
	}
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	s.logger.Info("Expense deleted", "expense_id", expenseID, "user_id", userID)
	s.notifier.Emit(userID, expenseEvent("deleted", expense))
	return nil
}

// Summary totals the user's share per category between start and end, and
// reports this month's budget usage when a budget is set.
func (s *ExpenseService) Summary(ctx context.Context, userID, start, end string) (*Summary, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, models.ExpenseFilter{UserID: userID, Scope: models.ScopeAll, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	categories, total := CategoryTotals(expenses, userID)
	summary := &Summary{Start: start, End: end, Categories: categories, Total: total}

	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.MonthlyBudget != nil {
		usage, err := s.budgetUsage(ctx, userID, *settings.MonthlyBudget, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		summary.Budget = usage
	}
	return summary, nil
}

func (s *ExpenseService) budgetUsage(ctx context.Context, userID string, budget decimal.Decimal, now time.Time) (*BudgetUsage, error) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	expenses, err := s.store.ListExpenses(ctx, models.ExpenseFilter{
		UserID: userID,
		Scope:  models.ScopeAll,
		Start:  first.Format(models.DateLayout),
		End:    last.Format(models.DateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	_, spent := CategoryTotals(expenses, userID)

	usage := &BudgetUsage{
		Month:     first.Format("2006-01"),
		Budget:    budget,
		Spent:     spent,
		Remaining: budget.Sub(spent),
		Percent:   decimal.Zero,
	}
	if budget.IsPositive() {
		usage.Percent = spent.Div(budget).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return usage, nil
}

// CategoryTotals sums userID's share of expenses per category, largest
// first, and returns the grand total.
func CategoryTotals(expenses []*models.Expense, userID string) ([]models.CategoryTotal, decimal.Decimal) {
	byCategory := map[string]*models.CategoryTotal{}
	total := decimal.Zero
	for _, e := range expenses {
		share := e.ShareOf(userID)
		if share.IsZero() {
			continue
		}
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &models.CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(share)
		ct.Count++
		total = total.Add(share)
	}

	out := make([]models.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, total
}

// Categories returns the default categories plus every category the user
// has used, sorted and de-duplicated without regard to case.
func (s *ExpenseService) Categories(ctx context.Context, userID string) ([]string, error) {
	used, err := s.store.ListUserCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{assistant.DefaultCategories, used} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			key := strings.ToLower(c)
			if c == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}

// Export returns the user's visible expenses between start and end as
// export rows.
func (s *ExpenseService) Export(ctx context.Context, userID, start, end string) ([]export.Row, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, models.ExpenseFilter{UserID: userID, Scope: models.ScopeAll, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return export.Rows(expenses, userID), nil
}

func expenseEvent(action string, e *models.Expense) realtime.Message {
	extra := map[string]any{}
	if e.GroupID != "" {
		extra["group_id"] = e.GroupID
	}
	return realtime.NewMessage("expense", action, e.ID, extra)
}
