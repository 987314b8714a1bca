package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage/sqlite"
)

// recorder captures realtime messages per user.
type recorder struct {
	mu           sync.Mutex
	messages     map[string][]realtime.Message
	disconnected []string
}

func newRecorder() *recorder {
	return &recorder{messages: map[string][]realtime.Message{}}
}

func (r *recorder) Publish(userID string, msg realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[userID] = append(r.messages[userID], msg)
}

func (r *recorder) Disconnect(userID string, msg realtime.Message) {
	r.Publish(userID, msg)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = append(r.disconnected, userID)
}

func (r *recorder) types(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.messages[userID] {
		out = append(out, m.Type)
	}
	return out
}

// fakeMailer records what would have been sent.
type fakeMailer struct {
	mu          sync.Mutex
	resets      map[string]string
	invitations []string
}

func (m *fakeMailer) Configured() bool { return true }

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resets == nil {
		m.resets = map[string]string{}
	}
	m.resets[to] = code
	return nil
}

func (m *fakeMailer) SendGroupInvitation(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, to)
	return nil
}

type testEnv struct {
	store       *sqlite.SQLiteStore
	hub         *recorder
	mailer      *fakeMailer
	jwt         *auth.JWTManager
	notifier    *NotificationService
	groups      *GroupService
	splits      *SplitService
	invitations *InvitationService
	expenses    *ExpenseService
	recurring   *RecurringService
	auth        *AuthService
	profiles    *ProfileService
	assistant   *AssistantService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	env := &testEnv{
		store:  store,
		hub:    newRecorder(),
		mailer: &fakeMailer{},
		jwt:    auth.NewJWTManager("test-secret", time.Hour),
	}
	env.notifier = NewNotificationService(store, env.hub, m, logger)
	env.groups = NewGroupService(store, env.notifier, env.mailer, m, logger)
	env.splits = NewSplitService(store, env.groups, env.notifier, logger)
	env.invitations = NewInvitationService(store, env.notifier, logger)
	env.expenses = NewExpenseService(store, env.notifier, logger)
	env.recurring = NewRecurringService(store, env.notifier, m, logger)
	env.profiles = NewProfileService(store, logger)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	env.auth = NewAuthService(store, authenticator, env.jwt, env.groups, env.mailer, env.hub, m, logger,
		WithResetCodeCost(bcrypt.MinCost))
	env.assistant = NewAssistantService(assistant.NewClient("", ""), store, env.groups, logger)
	return env
}

func (e *testEnv) user(t *testing.T, email, name string) *models.User {
	t.Helper()
	session, err := e.auth.Signup(context.Background(), email, "password123", name)
	require.NoError(t, err)
	return session.User
}

// claims issues a token for user and returns its validated claims.
func (e *testEnv) claims(t *testing.T, user *models.User) *auth.Claims {
	t.Helper()
	token, err := e.jwt.Generate(user)
	require.NoError(t, err)
	claims, err := e.jwt.Validate(token.Value)
	require.NoError(t, err)
	return claims
}

// groupOf creates a group owned by owner with members already joined.
func (e *testEnv) groupOf(t *testing.T, owner *models.User, members ...*models.User) *models.Group {
	t.Helper()
	ctx := context.Background()
	res, err := e.groups.CreateGroup(ctx, owner.ID, CreateGroupInput{Name: "Trip"})
	require.NoError(t, err)
	for _, m := range members {
		inv, err := e.groups.AddMember(ctx, owner.ID, res.Group.ID, m.Email)
		require.NoError(t, err)
		_, err = e.invitations.Respond(ctx, m.ID, inv.ID, true)
		require.NoError(t, err)
	}
	return res.Group
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
