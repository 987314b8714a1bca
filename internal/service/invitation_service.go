package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// InvitationService lets invitees see and answer group invitations.
type InvitationService struct {
	store    storage.Store
	notifier *NotificationService
	logger   *slog.Logger
}

// NewInvitationService creates an InvitationService.
func NewInvitationService(store storage.Store, notifier *NotificationService, logger *slog.Logger) *InvitationService {
	return &InvitationService{store: store, notifier: notifier, logger: logger}
}

// List returns the pending invitations addressed to userID.
func (s *InvitationService) List(ctx context.Context, userID string) ([]*models.Invitation, error) {
	return s.store.ListPendingInvitations(ctx, userID)
}

// Respond accepts or declines an invitation. Only the invitee may answer,
// and only once.
func (s *InvitationService) Respond(ctx context.Context, userID, invitationID string, accept bool) (*models.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != userID {
		// Someone else's invitation is indistinguishable from a missing one.
		return nil, notFound("invitation")
	}
	if inv.Status != models.InvitationPending {
		return nil, conflict("invitation has already been %s", inv.Status)
	}

	if err := s.store.RespondToInvitation(ctx, inv, accept, unixNow()); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, conflict("invitation has already been answered")
		}
		return nil, fmt.Errorf("failed to respond to invitation: %w", err)
	}
	s.logger.Info("Invitation answered", "invitation_id", inv.ID, "group_id", inv.GroupID, "status", inv.Status)

	if err := s.notifier.MarkReadByRef(ctx, userID, inv.ID); err != nil {
		s.logger.Warn("Failed to mark invitation notification read", "invitation_id", inv.ID, "error", err)
	}

	name := "Someone"
	if u, err := s.store.GetUserByID(ctx, userID); err == nil {
		name = u.DisplayName
	}
	typ, title := models.NotifInvitationDeclined, "Invitation declined"
	msg := fmt.Sprintf("%s declined your invitation to %q", name, inv.GroupName)
	if accept {
		typ, title = models.NotifInvitationAccepted, "Invitation accepted"
		msg = fmt.Sprintf("%s joined %q", name, inv.GroupName)
	}
	s.notifier.notifyQuietly(ctx, inv.InviterID, typ, title, msg, inv.ID, map[string]any{
		"invitation_id": inv.ID,
		"group_id":      inv.GroupID,
		"group_name":    inv.GroupName,
		"status":        inv.Status,
	})
	return inv, nil
}
