package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// SettleInput is the body of a settle up request. FromUserID defaults to
// the caller.
type SettleInput struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
}

// Settle records a payment between two members of a group. The caller must
// be one of the two parties or the group owner.
func (s *GroupService) Settle(ctx context.Context, userID, groupID string, in SettleInput) (*models.Settlement, error) {
	caller, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	from := in.FromUserID
	if from == "" {
		from = userID
	}
	if in.ToUserID == "" {
		return nil, invalid("to_user_id is required")
	}
	if from == in.ToUserID {
		return nil, invalid("cannot settle with yourself")
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, invalid("amount must have at most two decimal places")
	}
	if userID != from && userID != in.ToUserID && caller.Role != models.RoleOwner {
		return nil, forbidden("only the two parties or the group owner can record a settlement")
	}
	for _, party := range []string{from, in.ToUserID} {
		if _, err := s.store.GetGroupMember(ctx, groupID, party); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, invalid("user '%s' is not a member of the group", party)
			}
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
	}

	settlement := &models.Settlement{
		GroupID:    groupID,
		FromUserID: from,
		ToUserID:   in.ToUserID,
		Amount:     in.Amount,
		CreatedBy:  userID,
		Note:       strings.TrimSpace(in.Note),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", err)
	}
	s.logger.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"group_id", groupID,
		"from", from,
		"to", in.ToUserID,
		"amount", settlement.Amount.String(),
	)

	names, _ := s.store.GetUsersByIDs(ctx, []string{from, in.ToUserID})
	nameOf := func(id string) string {
		if u, ok := names[id]; ok {
			return u.DisplayName
		}
		return "Someone"
	}
	data := map[string]any{
		"settlement_id": settlement.ID,
		"group_id":      groupID,
		"amount":        settlement.Amount.StringFixed(2),
	}
	for _, party := range []string{from, in.ToUserID} {
		if party == userID {
			continue
		}
		msg := fmt.Sprintf("%s paid you %s", nameOf(from), settlement.Amount.StringFixed(2))
		if party == from {
			msg = fmt.Sprintf("A payment of %s from you to %s was recorded", settlement.Amount.StringFixed(2), nameOf(in.ToUserID))
		}
		s.notifier.notifyQuietly(ctx, party, models.NotifSettlement, "Settlement recorded", msg, settlement.ID, data)
	}
	return settlement, nil
}

// ListSettlements returns a group's settlements, newest first.
func (s *GroupService) ListSettlements(ctx context.Context, userID, groupID string) ([]*models.Settlement, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementsByGroup(ctx, groupID)
}

// DeleteSettlement removes a settlement recorded by mistake. Only whoever
// recorded it or the group owner may.
func (s *GroupService) DeleteSettlement(ctx context.Context, userID, groupID, settlementID string) error {
	caller, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return err
	}
	if settlement.GroupID != groupID {
		return notFound("settlement")
	}
	if settlement.CreatedBy != userID && caller.Role != models.RoleOwner {
		return forbidden("only whoever recorded the settlement or the group owner can delete it")
	}
	if err := s.store.DeleteSettlement(ctx, settlementID); err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}
	s.logger.Info("Settlement deleted", "settlement_id", settlementID, "group_id", groupID, "user_id", userID)
	return nil
}
