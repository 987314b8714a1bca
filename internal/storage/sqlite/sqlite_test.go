package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")

	t.Run("get by email joins profile", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "Alice", got.DisplayName)
		assert.Equal(t, "hash", got.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		err := store.CreateUser(ctx, models.NewUser("alice@example.com", "Other", "hash"))
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("email exists", func(t *testing.T) {
		exists, err := store.EmailExists(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.EmailExists(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("sign-up creates default settings", func(t *testing.T) {
		settings, err := store.GetSettings(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "USD", settings.Currency)
		assert.Equal(t, models.ThemeSystem, settings.Theme)
		assert.True(t, settings.EmailNotifications)
		assert.Nil(t, settings.MonthlyBudget)
	})

	t.Run("update settings with budget", func(t *testing.T) {
		budget := amount("1500.00")
		settings := &models.UserSettings{UserID: alice.ID, Currency: "EUR", Theme: models.ThemeDark, MonthlyBudget: &budget}
		require.NoError(t, store.UpdateSettings(ctx, settings))

		got, err := store.GetSettings(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "EUR", got.Currency)
		assert.False(t, got.EmailNotifications)
		require.NotNil(t, got.MonthlyBudget)
		assert.True(t, got.MonthlyBudget.Equal(budget))
	})

	t.Run("update profile", func(t *testing.T) {
		require.NoError(t, store.UpdateProfile(ctx, &models.Profile{UserID: alice.ID, DisplayName: "Alice A", AvatarURL: "https://x/a.png"}))
		p, err := store.GetProfile(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice A", p.DisplayName)
		assert.Equal(t, "alice@example.com", p.Email)
	})

	t.Run("get users by ids omits unknown", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []string{alice.ID, "ghost"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Contains(t, users, alice.ID)
	})
}

func TestExpenseVisibility(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	carol := createUser(t, store, "carol@example.com", "Carol")

	group := &models.Group{Name: "Trip", CreatedBy: alice.ID}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.AddGroupMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: bob.ID}))
	require.NoError(t, store.AddGroupMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: carol.ID}))

	personal := &models.Expense{UserID: alice.ID, Description: "Coffee", Amount: amount("4.50"), Category: "Food", Date: "2024-03-02"}
	require.NoError(t, store.CreateExpense(ctx, personal))

	dinner := &models.Expense{
		UserID: alice.ID, GroupID: group.ID, Description: "Dinner", Amount: amount("30.00"), Category: "Food", Date: "2024-03-05",
		Splits: []models.ExpenseSplit{
			{UserID: alice.ID, Amount: amount("15.00")},
			{UserID: bob.ID, Amount: amount("15.00")},
		},
	}
	require.NoError(t, store.CreateExpense(ctx, dinner))

	t.Run("payer sees personal and group", func(t *testing.T) {
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, dinner.ID, list[0].ID, "newest date first")
		assert.Equal(t, "Trip", list[0].GroupName)
		assert.Equal(t, "Alice", list[0].PaidByName)
		require.Len(t, list[0].Splits, 2)
		assert.Equal(t, alice.ID, list[0].Splits[0].UserID)
		assert.Equal(t, "Bob", list[0].Splits[1].DisplayName)
	})

	t.Run("split holder sees group expense only", func(t *testing.T) {
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: bob.ID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, dinner.ID, list[0].ID)
		assert.True(t, list[0].ShareOf(bob.ID).Equal(amount("15")))
	})

	t.Run("member without split sees nothing", func(t *testing.T) {
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: carol.ID})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("scope and category filters", func(t *testing.T) {
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID, Scope: models.ScopePersonal})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, personal.ID, list[0].ID)

		list, err = store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID, Category: "food"})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID, Start: "2024-03-01", End: "2024-03-03"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, personal.ID, list[0].ID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, personal.ID, list[0].ID)
	})

	t.Run("removed member loses visibility", func(t *testing.T) {
		require.NoError(t, store.RemoveGroupMember(ctx, group.ID, bob.ID))
		list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: bob.ID})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("categories", func(t *testing.T) {
		cats, err := store.ListUserCategories(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Food"}, cats)
	})

	t.Run("update and delete", func(t *testing.T) {
		personal.Amount = amount("5.25")
		personal.Notes = "large"
		require.NoError(t, store.UpdateExpense(ctx, personal))

		got, err := store.GetExpense(ctx, personal.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(amount("5.25")))
		assert.Equal(t, "large", got.Notes)

		require.NoError(t, store.DeleteExpense(ctx, personal.ID))
		_, err = store.GetExpense(ctx, personal.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteExpense(ctx, personal.ID), storage.ErrNotFound)
	})

	t.Run("deleting the group removes its expenses", func(t *testing.T) {
		require.NoError(t, store.DeleteGroup(ctx, group.ID))
		_, err := store.GetExpense(ctx, dinner.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	group := &models.Group{Name: "Flat", CreatedBy: alice.ID}
	require.NoError(t, store.CreateGroup(ctx, group))

	owner, err := store.GetGroupMember(ctx, group.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, owner.Role)

	require.NoError(t, store.AddGroupMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: bob.ID, JoinedAt: group.CreatedAt + 1}))
	assert.ErrorIs(t, store.AddGroupMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: bob.ID}), storage.ErrConflict)

	groups, err := store.ListGroupsForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].MemberCount)
	assert.Equal(t, models.RoleMember, groups[0].Role)

	members, err := store.ListGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "bob@example.com", members[1].Email)

	require.NoError(t, store.SetGroupMemberRole(ctx, group.ID, bob.ID, models.RoleOwner))
	_, err = store.GetGroupMember(ctx, group.ID, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSettlements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	group := &models.Group{Name: "Flat", CreatedBy: alice.ID}
	require.NoError(t, store.CreateGroup(ctx, group))

	settlement := &models.Settlement{GroupID: group.ID, FromUserID: "bob", ToUserID: alice.ID, Amount: amount("12.34"), CreatedBy: alice.ID}
	require.NoError(t, store.CreateSettlement(ctx, settlement))
	assert.NotEmpty(t, settlement.ID)

	got, err := store.GetSettlement(ctx, settlement.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(amount("12.34")))
	assert.Empty(t, got.Note)

	list, err := store.ListSettlementsByGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteSettlement(ctx, settlement.ID))
	_, err = store.GetSettlement(ctx, settlement.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecurringMaterialize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	rule := &models.RecurringExpense{
		UserID: alice.ID, Description: "Rent", Amount: amount("900"), Category: "Housing",
		Frequency: "monthly", Interval: 1, StartDate: "2024-01-31", NextDue: "2024-01-31", Active: true,
	}
	require.NoError(t, store.CreateRecurring(ctx, rule))

	due, err := store.ListDueRecurring(ctx, "2024-02-01")
	require.NoError(t, err)
	require.Len(t, due, 1)

	advanced := *rule
	advanced.NextDue = "2024-02-29"
	expense := &models.Expense{UserID: alice.ID, Description: "Rent", Amount: rule.Amount, Category: "Housing", Date: "2024-01-31"}
	require.NoError(t, store.MaterializeRecurring(ctx, &advanced, expense))
	assert.Equal(t, rule.ID, expense.RecurringID)

	again := &models.Expense{UserID: alice.ID, Description: "Rent", Amount: rule.Amount, Category: "Housing", Date: "2024-01-31"}
	assert.ErrorIs(t, store.MaterializeRecurring(ctx, &advanced, again), storage.ErrConflict)

	got, err := store.GetRecurring(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got.NextDue)

	list, err := store.ListExpenses(ctx, models.ExpenseFilter{UserID: alice.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.SetRecurringActive(ctx, rule.ID, false))
	due, err = store.ListDueRecurring(ctx, "2030-01-01")
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, store.DeleteRecurring(ctx, rule.ID))
	kept, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.RecurringID)
}

func TestNotificationsAreScopedToOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	n := &models.Notification{UserID: alice.ID, Type: models.NotifGroupInvitation, Title: "Invite", Message: "join", RefID: "inv-1",
		Data: map[string]any{"group_id": "g1"}}
	require.NoError(t, store.CreateNotification(ctx, n))
	require.NoError(t, store.CreateNotification(ctx, &models.Notification{UserID: alice.ID, Type: models.NotifSettlement, Title: "Paid", Message: "x"}))

	count, err := store.CountUnreadNotifications(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ErrorIs(t, store.MarkNotificationRead(ctx, bob.ID, n.ID), storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteNotification(ctx, bob.ID, n.ID), storage.ErrNotFound)

	marked, err := store.MarkNotificationsReadByRef(ctx, alice.ID, "inv-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	unread, err := store.ListNotifications(ctx, alice.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, models.NotifSettlement, unread[0].Type)

	all, err := store.ListNotifications(ctx, alice.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, got := range all {
		if got.ID == n.ID {
			assert.Equal(t, "g1", got.Data["group_id"])
			assert.True(t, got.Read)
		}
	}

	cleared, err := store.MarkAllNotificationsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)
}

func TestInvitations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	group := &models.Group{Name: "Flat", CreatedBy: alice.ID}
	require.NoError(t, store.CreateGroup(ctx, group))

	inv := &models.Invitation{GroupID: group.ID, InviterID: alice.ID, InviteeID: bob.ID}
	require.NoError(t, store.CreateInvitation(ctx, inv))

	pending, err := store.ListPendingInvitations(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Flat", pending[0].GroupName)
	assert.Equal(t, "Alice", pending[0].InviterName)

	found, err := store.FindPendingInvitation(ctx, group.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)

	require.NoError(t, store.RespondToInvitation(ctx, found, true, time.Now().Unix()))
	assert.Equal(t, models.InvitationAccepted, found.Status)

	_, err = store.GetGroupMember(ctx, group.ID, bob.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, store.RespondToInvitation(ctx, found, false, time.Now().Unix()), storage.ErrConflict)
	_, err = store.FindPendingInvitation(ctx, group.ID, bob.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	now := time.Now().Unix()

	first := &models.PasswordReset{UserID: alice.ID, CodeHash: "h1", ExpiresAt: now + 900, CreatedAt: now - 10}
	require.NoError(t, store.CreatePasswordReset(ctx, first))
	second := &models.PasswordReset{UserID: alice.ID, CodeHash: "h2", ExpiresAt: now + 900, CreatedAt: now}
	require.NoError(t, store.CreatePasswordReset(ctx, second))

	active, err := store.GetActivePasswordReset(ctx, alice.ID, now)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID, "earlier codes are invalidated")

	for i := 0; i < 2; i++ {
		claimed, err := store.ClaimPasswordResetAttempt(ctx, active.ID, 2)
		require.NoError(t, err)
		assert.True(t, claimed)
	}
	claimed, err := store.ClaimPasswordResetAttempt(ctx, active.ID, 2)
	require.NoError(t, err)
	assert.False(t, claimed, "attempts stop at the limit")

	require.NoError(t, store.MarkPasswordResetUsed(ctx, active.ID, now))
	_, err = store.GetActivePasswordReset(ctx, alice.ID, now)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.RevokeToken(ctx, "jti-1", now-1))
	require.NoError(t, store.RevokeToken(ctx, "jti-1", now-1))
	revoked, err := store.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	purged, err := store.PurgeExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
	revoked, err = store.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSessionActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")

	active, err := store.SessionActive(ctx, alice.ID, "jti-1", 0)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, store.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour).Unix()))
	active, err = store.SessionActive(ctx, alice.ID, "jti-1", 0)
	require.NoError(t, err)
	assert.False(t, active, "revoked token")

	require.NoError(t, store.BumpSessionVersion(ctx, alice.ID))
	user, err := store.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.SessionVersion)
	active, err = store.SessionActive(ctx, alice.ID, "jti-2", 0)
	require.NoError(t, err)
	assert.False(t, active, "older session version")
	active, err = store.SessionActive(ctx, alice.ID, "jti-2", 1)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, store.DeleteUser(ctx, alice.ID))
	active, err = store.SessionActive(ctx, alice.ID, "jti-2", 1)
	require.NoError(t, err)
	assert.False(t, active, "deleted account")

	assert.ErrorIs(t, store.BumpSessionVersion(ctx, alice.ID), storage.ErrNotFound)
}

func TestDeleteUserKeepsGroupExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	group := &models.Group{Name: "Flat", CreatedBy: alice.ID}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.AddGroupMember(ctx, &models.GroupMember{GroupID: group.ID, UserID: bob.ID}))

	personal := &models.Expense{UserID: bob.ID, Description: "Book", Amount: amount("10"), Category: "Other", Date: "2024-01-01"}
	require.NoError(t, store.CreateExpense(ctx, personal))
	shared := &models.Expense{UserID: bob.ID, GroupID: group.ID, Description: "Milk", Amount: amount("2"), Category: "Groceries", Date: "2024-01-01",
		Splits: []models.ExpenseSplit{{UserID: alice.ID, Amount: amount("1")}, {UserID: bob.ID, Amount: amount("1")}}}
	require.NoError(t, store.CreateExpense(ctx, shared))

	require.NoError(t, store.DeleteUser(ctx, bob.ID))

	_, err := store.GetExpense(ctx, personal.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	kept, err := store.GetExpense(ctx, shared.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.PaidByName)

	members, err := store.ListGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	assert.ErrorIs(t, store.DeleteUser(ctx, bob.ID), storage.ErrNotFound)
}
