package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

func TestCreateExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")

	expense, err := env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: " Netflix ", Amount: dec("15.99")})
	require.NoError(t, err)
	assert.Equal(t, "Netflix", expense.Description)
	assert.Equal(t, "Entertainment", expense.Category)
	assert.Equal(t, models.Today(), expense.Date)
	assert.Contains(t, env.hub.types(alice.ID), "expense_created")

	tests := []struct {
		name string
		in   ExpenseInput
	}{
		{"missing description", ExpenseInput{Amount: dec("1")}},
		{"zero amount", ExpenseInput{Description: "x", Amount: dec("0")}},
		{"fractional cents", ExpenseInput{Description: "x", Amount: dec("1.005")}},
		{"bad date", ExpenseInput{Description: "x", Amount: dec("1"), Date: "2024-13-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.Create(ctx, alice.ID, tt.in)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestListExpenses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	bob := env.user(t, "bob@example.com", "Bob")
	group := env.groupOf(t, alice, bob)

	for _, in := range []ExpenseInput{
		{Description: "Rent", Amount: dec("1000"), Date: "2024-03-01"},
		{Description: "Coffee", Amount: dec("4"), Date: "2024-03-05"},
		{Description: "Groceries", Amount: dec("60"), Date: "2024-02-20"},
	} {
		_, err := env.expenses.Create(ctx, alice.ID, in)
		require.NoError(t, err)
	}
	_, err := env.expenses.Create(ctx, bob.ID, ExpenseInput{Description: "Bob's lunch", Amount: dec("9"), Date: "2024-03-02"})
	require.NoError(t, err)
	_, err = env.splits.CreateGroupExpense(ctx, bob.ID, group.ID, GroupExpenseInput{
		Description: "Cabin", Amount: dec("200"), Date: "2024-03-03",
	})
	require.NoError(t, err)

	all, err := env.expenses.List(ctx, alice.ID, ListInput{})
	require.NoError(t, err)
	var got []string
	for _, e := range all {
		got = append(got, e.Description)
	}
	assert.Equal(t, []string{"Coffee", "Cabin", "Rent", "Groceries"}, got)

	personal, err := env.expenses.List(ctx, alice.ID, ListInput{Scope: models.ScopePersonal, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, personal, 2)

	groupOnly, err := env.expenses.List(ctx, alice.ID, ListInput{Scope: models.ScopeGroup})
	require.NoError(t, err)
	require.Len(t, groupOnly, 1)
	assert.Equal(t, "Cabin", groupOnly[0].Description)

	_, err = env.expenses.List(ctx, alice.ID, ListInput{Scope: "everything"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	march, err := env.expenses.Range(ctx, alice.ID, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Len(t, march, 3)

	_, err = env.expenses.Range(ctx, alice.ID, "2024-03-31", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = env.expenses.Range(ctx, alice.ID, "2024-03-01", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestExpenseOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	bob := env.user(t, "bob@example.com", "Bob")
	group := env.groupOf(t, alice, bob)

	mine, err := env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Book", Amount: dec("12"), Category: "Education"})
	require.NoError(t, err)
	shared, err := env.splits.CreateGroupExpense(ctx, alice.ID, group.ID, GroupExpenseInput{Description: "Taxi", Amount: dec("20")})
	require.NoError(t, err)

	_, err = env.expenses.Get(ctx, bob.ID, mine.ID)
	assert.ErrorIs(t, err, ErrNotFound, "personal expenses are private")
	_, err = env.expenses.Get(ctx, bob.ID, shared.ID)
	assert.NoError(t, err, "members see group expenses")

	updated, err := env.expenses.Update(ctx, alice.ID, mine.ID, ExpenseInput{Description: "Textbook", Amount: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, mine.Date, updated.Date, "an empty date keeps the old one")
	assert.Equal(t, "Education", updated.Category)

	_, err = env.expenses.Update(ctx, alice.ID, shared.ID, ExpenseInput{Description: "Cab", Amount: dec("20")})
	assert.ErrorIs(t, err, ErrConflict)

	err = env.expenses.Delete(ctx, bob.ID, shared.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	err = env.expenses.Delete(ctx, bob.ID, mine.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, env.expenses.Delete(ctx, alice.ID, mine.ID))
}

func TestSummaryAndBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	bob := env.user(t, "bob@example.com", "Bob")
	group := env.groupOf(t, alice, bob)
	today := time.Now().UTC().Format(models.DateLayout)

	_, err := env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Lunch", Amount: dec("20"), Date: today})
	require.NoError(t, err)
	_, err = env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Dinner", Amount: dec("30"), Date: today})
	require.NoError(t, err)
	_, err = env.splits.CreateGroupExpense(ctx, bob.ID, group.ID, GroupExpenseInput{
		Description: "Taxi", Amount: dec("50"), Date: today,
	})
	require.NoError(t, err)

	summary, err := env.expenses.Summary(ctx, alice.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "75.00", summary.Total.StringFixed(2))
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "Food & Dining", summary.Categories[0].Category)
	assert.Equal(t, "50.00", summary.Categories[0].Total.StringFixed(2))
	assert.Equal(t, 2, summary.Categories[0].Count)
	assert.Equal(t, "25.00", summary.Categories[1].Total.StringFixed(2), "only alice's split of the taxi")
	assert.Nil(t, summary.Budget)

	budget := dec("300")
	_, err = env.profiles.UpdateSettings(ctx, alice.ID, SettingsInput{Currency: "EUR", Theme: models.ThemeDark, MonthlyBudget: &budget})
	require.NoError(t, err)

	summary, err = env.expenses.Summary(ctx, alice.ID, "", "")
	require.NoError(t, err)
	require.NotNil(t, summary.Budget)
	assert.Equal(t, "75.00", summary.Budget.Spent.StringFixed(2))
	assert.Equal(t, "225.00", summary.Budget.Remaining.StringFixed(2))
	assert.Equal(t, "25", summary.Budget.Percent.String())
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")

	_, err := env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Yarn", Amount: dec("8"), Category: "crafts"})
	require.NoError(t, err)
	_, err = env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Pie", Amount: dec("8"), Category: "food & dining"})
	require.NoError(t, err)

	categories, err := env.expenses.Categories(ctx, alice.ID)
	require.NoError(t, err)
	assert.Contains(t, categories, "crafts")
	assert.NotContains(t, categories, "food & dining")
	assert.Contains(t, categories, "Food & Dining")
	assert.Equal(t, "Bills & Utilities", categories[0])
	assert.Equal(t, "crafts", categories[1])
}

func TestExportRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")

	_, err := env.expenses.Create(ctx, alice.ID, ExpenseInput{Description: "Rent", Amount: dec("900"), Date: "2024-05-01"})
	require.NoError(t, err)

	rows, err := env.expenses.Export(ctx, alice.ID, "2024-05-01", "2024-05-31")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "You", rows[0].PaidBy)

	_, err = env.expenses.Export(ctx, alice.ID, "bad", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
