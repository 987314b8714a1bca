package auth

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

type memUsers struct {
	byEmail map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*models.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return storage.ErrConflict
	}
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"  Alice@Example.COM ", "alice@example.com", false},
		{"bob@x", "bob@x", false},
		{"no-at-sign", "", true},
		{"@example.com", "", true},
		{"alice@", "", true},
		{"a@b@c", "", true},
		{"a b@c.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeEmail(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(newMemUsers()).WithCost(bcrypt.MinCost)

	user, err := a.Register(ctx, "Alice@Example.com", "", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.DisplayName, "display name falls back to the local part")
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = a.Register(ctx, "alice@example.com", "Again", "another password")
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = a.Register(ctx, "bob@example.com", "Bob", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	got, err := a.Authenticate(ctx, " ALICE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = a.Authenticate(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "alice@example.com"}

	token, err := m.Generate(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token.ID)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), token.ExpiresAt, 2)

	claims, err := m.Validate(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, token.ID, claims.ID)
	assert.Equal(t, token.ExpiresAt, claims.ExpiresUnix())

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTManager("other", time.Hour).Validate(token.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := NewJWTManager("test-secret", -time.Minute).Generate(user)
		require.NoError(t, err)
		_, err = m.Validate(expired.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := &Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = m.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestResetCode(t *testing.T) {
	code, hash, err := NewResetCode(bcrypt.MinCost)
	require.NoError(t, err)
	assert.Len(t, code, ResetCodeLength)
	assert.Empty(t, strings.Trim(code, "0123456789"))
	assert.True(t, CheckResetCode(hash, code))
	assert.False(t, CheckResetCode(hash, "abcdef"))
}
