package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// DefaultNotificationLimit is used when a listing does not set a limit.
const DefaultNotificationLimit = 50

// Publisher delivers realtime events to a user's open connections.
type Publisher interface {
	Publish(userID string, msg realtime.Message)
	Disconnect(userID string, msg realtime.Message)
}

// NotificationService stores notifications and mirrors every change to the
// owner's realtime connections.
type NotificationService struct {
	store   storage.NotificationStore
	hub     Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewNotificationService creates a NotificationService. hub may be nil.
func NewNotificationService(store storage.NotificationStore, hub Publisher, m *metrics.Metrics, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: store, hub: hub, metrics: m, logger: logger}
}

// Notify persists a notification for userID and publishes it.
func (s *NotificationService) Notify(ctx context.Context, userID, typ, title, message, refID string, data map[string]any) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		RefID:   refID,
		Data:    data,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	s.metrics.NotificationCreated(typ)

	s.publish(ctx, userID, "created", n.ID, map[string]any{"notification": n})
	return n, nil
}

// notifyQuietly is Notify for side effects of an already committed change:
// failures are logged, never returned.
func (s *NotificationService) notifyQuietly(ctx context.Context, userID, typ, title, message, refID string, data map[string]any) {
	if s == nil {
		return
	}
	if _, err := s.Notify(ctx, userID, typ, title, message, refID, data); err != nil {
		s.logger.Error("Failed to notify user", "user_id", userID, "type", typ, "error", err)
	}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > 500 {
		limit = 500
	}
	return s.store.ListNotifications(ctx, userID, unreadOnly, limit)
}

// UnreadCount returns the badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnreadNotifications(ctx, userID)
}

// MarkRead marks one notification read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkNotificationRead(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, userID, "read", id, nil)
	return nil
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publishEvent(ctx, userID, realtime.Message{Type: "notifications_cleared", Entity: "notification", Action: "cleared"})
	}
	return n, nil
}

// MarkReadByRef marks the user's notifications about refID read.
func (s *NotificationService) MarkReadByRef(ctx context.Context, userID, refID string) error {
	n, err := s.store.MarkNotificationsReadByRef(ctx, userID, refID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.publish(ctx, userID, "read", "", map[string]any{"ref_id": refID})
	}
	return nil
}

// Delete removes one notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteNotification(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, userID, "deleted", id, nil)
	return nil
}

// Emit sends msg to userID's sockets without storing anything.
func (s *NotificationService) Emit(userID string, msg realtime.Message) {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.Publish(userID, msg)
}

func (s *NotificationService) publish(ctx context.Context, userID, action, id string, extra map[string]any) {
	s.publishEvent(ctx, userID, realtime.NewMessage("notification", action, id, extra))
}

// publishEvent attaches the current unread count to msg and sends it.
func (s *NotificationService) publishEvent(ctx context.Context, userID string, msg realtime.Message) {
	if s == nil || s.hub == nil {
		return
	}
	count, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Failed to count unread notifications", "user_id", userID, "error", err)
	}
	if msg.Extra == nil {
		msg.Extra = map[string]any{}
	}
	msg.Extra["unread_count"] = count
	s.hub.Publish(userID, msg)
}
