// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with existing state
	// (duplicate key, already-answered invitation, already-advanced rule).
	ErrConflict = errors.New("conflict")
)

// UserStore persists accounts. CreateUser also creates the profile and the
// default settings row.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateUserEmail(ctx context.Context, userID, email string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	// BumpSessionVersion ends every session issued to the user so far.
	BumpSessionVersion(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}

// ProfileStore persists profiles and user settings.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, settings *models.UserSettings) error
}

// TokenStore persists password reset codes and revoked session tokens.
type TokenStore interface {
	// CreatePasswordReset stores a new code and invalidates earlier unused ones.
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	GetActivePasswordReset(ctx context.Context, userID string, now int64) (*models.PasswordReset, error)
	// ClaimPasswordResetAttempt counts a guess, reporting false once the
	// code has used up maxAttempts.
	ClaimPasswordResetAttempt(ctx context.Context, id string, maxAttempts int) (bool, error)
	MarkPasswordResetUsed(ctx context.Context, id string, usedAt int64) error
	RevokeToken(ctx context.Context, jti string, expiresAt int64) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	// SessionActive reports whether the user still exists at version and
	// jti is not revoked.
	SessionActive(ctx context.Context, userID, jti string, version int64) (bool, error)
	// PurgeExpiredTokens drops revoked tokens and reset codes past expiry.
	PurgeExpiredTokens(ctx context.Context, now int64) (int64, error)
}

// GroupStore persists groups and memberships. CreateGroup adds the creator
// as owner.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID string) error
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.GroupSummary, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error)
	GetGroupMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	AddGroupMember(ctx context.Context, member *models.GroupMember) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	SetGroupMemberRole(ctx context.Context, groupID, userID, role string) error
}

// ExpenseStore persists expenses and their splits.
type ExpenseStore interface {
	// CreateExpense inserts the expense and its splits atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, expenseID string) error
	// ListExpenses returns expenses visible to filter.UserID, newest first.
	ListExpenses(ctx context.Context, filter models.ExpenseFilter) ([]*models.Expense, error)
	ListGroupExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)
	ListUserCategories(ctx context.Context, userID string) ([]string, error)
}

// RecurringStore persists recurring expense rules.
type RecurringStore interface {
	CreateRecurring(ctx context.Context, rule *models.RecurringExpense) error
	GetRecurring(ctx context.Context, id string) (*models.RecurringExpense, error)
	ListRecurring(ctx context.Context, userID string) ([]*models.RecurringExpense, error)
	SetRecurringActive(ctx context.Context, id string, active bool) error
	// ResumeRecurring activates a paused rule from nextDue on.
	ResumeRecurring(ctx context.Context, id, nextDue string) error
	DeleteRecurring(ctx context.Context, id string) error
	// ListDueRecurring returns active rules with next_due on or before today.
	ListDueRecurring(ctx context.Context, today string) ([]*models.RecurringExpense, error)
	// MaterializeRecurring inserts expense (one occurrence of rule, dated
	// expense.Date) and moves the rule to rule.NextDue / rule.Active in one
	// transaction. It returns ErrConflict when the rule's stored next_due is
	// no longer expense.Date.
	MaterializeRecurring(ctx context.Context, rule *models.RecurringExpense, expense *models.Expense) error
}

// SettlementStore persists settlements.
type SettlementStore interface {
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)
	DeleteSettlement(ctx context.Context, settlementID string) error
}

// NotificationStore persists notifications. Every per-notification call is
// scoped to its owner and returns ErrNotFound for anyone else.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	MarkNotificationsReadByRef(ctx context.Context, userID, refID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
}

// InvitationStore persists group invitations.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitation(ctx context.Context, invitationID string) (*models.Invitation, error)
	FindPendingInvitation(ctx context.Context, groupID, inviteeID string) (*models.Invitation, error)
	ListPendingInvitations(ctx context.Context, inviteeID string) ([]*models.Invitation, error)
	// RespondToInvitation records the answer and, on accept, adds the
	// membership. It returns ErrConflict if the invitation is not pending.
	RespondToInvitation(ctx context.Context, inv *models.Invitation, accept bool, at int64) error
}

// Store defines every storage operation the services need.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	ProfileStore
	TokenStore
	GroupStore
	ExpenseStore
	RecurringStore
	SettlementStore
	NotificationStore
	InvitationStore

	// Close releases any resources held by the store.
	Close() error
}
