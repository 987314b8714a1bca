package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// ClaimsKey is the context key for the validated token claims.
	ClaimsKey contextKey = "claims"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetClaims returns the claims of the token the request was authenticated with.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// WithUser returns ctx carrying the given claims, as RequireAuth would set them.
func WithUser(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, EmailKey, claims.Email)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// UserFromRequest reports the authenticated user of r.
func UserFromRequest(r *http.Request) (string, bool) {
	id := GetUserID(r.Context())
	return id, id != ""
}

// SessionChecker reports whether a validated token still opens a session.
// A session ends when its token is revoked at sign-out, when the account is
// deleted, or when the account's session version moves past the token's.
type SessionChecker interface {
	SessionActive(ctx context.Context, userID, jti string, version int64) (bool, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// When allowQuery is set, the access_token query parameter is accepted too,
// since browsers cannot set headers on WebSocket upgrades.
func BearerToken(r *http.Request, allowQuery bool) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if allowQuery {
			if token := r.URL.Query().Get("access_token"); token != "" {
				return token, nil
			}
		}
		return "", auth.ErrMissingToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}

// RequireAuth returns middleware that validates bearer tokens and rejects
// missing, invalid or ended ones with 401. It adds the user ID, email and
// claims to the request context.
func RequireAuth(jwtManager *auth.JWTManager, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := BearerToken(r, r.Method == http.MethodGet)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			if sessions != nil {
				active, err := sessions.SessionActive(r.Context(), claims.UserID, claims.ID, claims.SessionVersion)
				if err != nil {
					logger.Error("failed to check session", "error", err)
					WriteError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if !active {
					WriteError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}
