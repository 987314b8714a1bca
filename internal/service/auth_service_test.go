package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.auth.Signup(ctx, "  Alice@Example.com ", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
	assert.Greater(t, session.ExpiresAt, int64(0))

	settings, err := env.store.GetSettings(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", settings.Currency)

	_, err = env.auth.Signup(ctx, "alice@example.com", "password123", "Again")
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	_, err = env.auth.Signup(ctx, "bob@example.com", "short", "Bob")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	logged, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, logged.User.ID)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSessionAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.auth.Signup(ctx, "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	claims, err := env.jwt.Validate(session.Token)
	require.NoError(t, err)

	info, err := env.auth.Session(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.Profile.DisplayName)
	assert.Equal(t, models.ThemeSystem, info.Settings.Theme)

	require.NoError(t, env.auth.Logout(ctx, claims))
	revoked, err := env.store.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Contains(t, env.hub.types(claims.UserID), "session_revoked")
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	env.user(t, "bob@example.com", "Bob")

	email := "ALICE2@example.com"
	name := "Alice B"
	updated, err := env.auth.UpdateUser(ctx, alice.ID, UpdateUserInput{Email: &email, DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "alice2@example.com", updated.Email)
	assert.Equal(t, "Alice B", updated.DisplayName)

	taken := "bob@example.com"
	_, err = env.auth.UpdateUser(ctx, alice.ID, UpdateUserInput{Email: &taken})
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	weak := "abc"
	_, err = env.auth.UpdateUser(ctx, alice.ID, UpdateUserInput{Password: &weak})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	password := "new-password"
	_, err = env.auth.UpdateUser(ctx, alice.ID, UpdateUserInput{Password: &password})
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "alice2@example.com", "new-password")
	assert.NoError(t, err)

	_, err = env.auth.UpdateUser(ctx, alice.ID, UpdateUserInput{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "alice@example.com", "Alice")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "nobody@example.com"))
	require.NoError(t, env.auth.RequestPasswordReset(ctx, "not-an-email"))
	assert.Empty(t, env.mailer.resets)

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	code := env.mailer.resets["alice@example.com"]
	require.Len(t, code, auth.ResetCodeLength)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err := env.auth.ConfirmPasswordReset(ctx, "alice@example.com", wrong, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "short")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	require.NoError(t, env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "brand-new-pass"))
	_, err = env.auth.Login(ctx, "alice@example.com", "brand-new-pass")
	assert.NoError(t, err)

	err = env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "another-pass")
	assert.ErrorIs(t, err, ErrInvalidArgument, "a code works once")
}

func TestPasswordResetEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	before := env.claims(t, alice)

	active, err := env.store.SessionActive(ctx, alice.ID, before.ID, before.SessionVersion)
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	code := env.mailer.resets["alice@example.com"]
	require.NoError(t, env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "brand-new-pass"))

	active, err = env.store.SessionActive(ctx, alice.ID, before.ID, before.SessionVersion)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Contains(t, env.hub.disconnected, alice.ID)

	session, err := env.auth.Login(ctx, "alice@example.com", "brand-new-pass")
	require.NoError(t, err)
	after, err := env.jwt.Validate(session.Token)
	require.NoError(t, err)
	active, err = env.store.SessionActive(ctx, alice.ID, after.ID, after.SessionVersion)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestPasswordResetAttemptsBurnCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "alice@example.com", "Alice")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	code := env.mailer.resets["alice@example.com"]
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < MaxResetAttempts; i++ {
		err := env.auth.ConfirmPasswordReset(ctx, "alice@example.com", wrong, "brand-new-pass")
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	err := env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPasswordResetConcurrentGuesses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "alice@example.com", "Alice")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "alice@example.com"))
	code := env.mailer.resets["alice@example.com"]
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	var wg sync.WaitGroup
	for i := 0; i < 3*MaxResetAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.auth.ConfirmPasswordReset(ctx, "alice@example.com", wrong, "brand-new-pass")
		}()
	}
	wg.Wait()

	user, err := env.store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	reset, err := env.store.GetActivePasswordReset(ctx, user.ID, time.Now().Unix())
	require.NoError(t, err)
	assert.Equal(t, MaxResetAttempts, reset.Attempts)

	err = env.auth.ConfirmPasswordReset(ctx, "alice@example.com", code, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCheckEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.user(t, "alice@example.com", "Alice")

	exists, err := env.auth.CheckEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = env.auth.CheckEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = env.auth.CheckEmail(ctx, "bob")
	assert.ErrorIs(t, err, auth.ErrInvalidEmail)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice@example.com", "Alice")
	bob := env.user(t, "bob@example.com", "Bob")

	shared := env.groupOf(t, alice, bob)
	solo, err := env.groups.CreateGroup(ctx, alice.ID, CreateGroupInput{Name: "Solo"})
	require.NoError(t, err)

	_, err = env.splits.CreateGroupExpense(ctx, alice.ID, shared.ID, GroupExpenseInput{
		Description: "Dinner",
		Amount:      dec("40"),
		SplitType:   "equal",
	})
	require.NoError(t, err)

	claims := env.claims(t, alice)
	err = env.auth.DeleteAccount(ctx, claims)
	assert.ErrorIs(t, err, ErrConflict, "outstanding balance blocks deletion")

	_, err = env.groups.Settle(ctx, bob.ID, shared.ID, SettleInput{ToUserID: alice.ID, Amount: dec("20")})
	require.NoError(t, err)

	require.NoError(t, env.auth.DeleteAccount(ctx, claims))

	_, err = env.store.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.store.GetGroup(ctx, solo.Group.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	member, err := env.store.GetGroupMember(ctx, shared.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)
	assert.Contains(t, env.hub.disconnected, alice.ID)

	revoked, err := env.store.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	active, err := env.store.SessionActive(ctx, alice.ID, env.claims(t, alice).ID, 0)
	require.NoError(t, err)
	assert.False(t, active, "tokens of a deleted account open no session")
}
