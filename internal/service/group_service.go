package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/calculator"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// Mailer sends transactional email. Implemented by email.Client.
type Mailer interface {
	Configured() bool
	SendPasswordReset(ctx context.Context, to, code string) error
	SendGroupInvitation(ctx context.Context, to, inviterName, groupName string) error
}

// GroupService manages groups, memberships, invitations and balances.
type GroupService struct {
	store    storage.Store
	notifier *NotificationService
	mailer   Mailer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store, notifier *NotificationService, mailer Mailer, m *metrics.Metrics, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		metrics:  m,
		logger:   logger,
	}
}

// CreateGroupInput is the body of a create group request.
type CreateGroupInput struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MemberEmails []string `json:"member_emails"`
}

// CreateGroupResult reports the new group and what happened to each email.
type CreateGroupResult struct {
	Group         *models.Group        `json:"group"`
	Invitations   []*models.Invitation `json:"invitations"`
	UnknownEmails []string             `json:"unknown_emails"`
}

// GroupDetail is a group as seen by one of its members.
type GroupDetail struct {
	*models.Group
	Role    string                `json:"role"`
	Members []*models.GroupMember `json:"members"`
}

// MemberBalance is one member's position in a group.
type MemberBalance struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalOwed   decimal.Decimal `json:"total_owed"`
	NetBalance  decimal.Decimal `json:"net_balance"`
}

// Debt is one suggested payment that helps settle a group.
type Debt struct {
	From     string          `json:"from"`
	FromName string          `json:"from_name"`
	To       string          `json:"to"`
	ToName   string          `json:"to_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// GroupBalances is the balances view of a group. Degraded is set when the
// computation failed and every balance is reported as zero.
type GroupBalances struct {
	Balances        []MemberBalance      `json:"balances"`
	SimplifiedDebts []Debt               `json:"simplified_debts"`
	Settlements     []*models.Settlement `json:"settlements"`
	Degraded        bool                 `json:"degraded,omitempty"`
}

// ListGroups returns the caller's groups with their net balance in each.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	for _, g := range groups {
		net, err := s.netBalance(ctx, g.ID, userID)
		if err != nil {
			s.logger.Warn("Failed to compute group balance", "group_id", g.ID, "error", err)
			continue
		}
		g.NetBalance = net
	}
	return groups, nil
}

// CreateGroup creates a group owned by userID and invites every member email
// that belongs to a registered user.
func (s *GroupService) CreateGroup(ctx context.Context, userID string, in CreateGroupInput) (*CreateGroupResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("group name is required")
	}
	if len(name) > 100 {
		return nil, invalid("group name must be at most 100 characters")
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   userID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	s.logger.Info("Group created", "group_id", group.ID, "user_id", userID)

	result := &CreateGroupResult{
		Group:         group,
		Invitations:   []*models.Invitation{},
		UnknownEmails: []string{},
	}
	seen := map[string]bool{}
	for _, raw := range in.MemberEmails {
		email, err := auth.NormalizeEmail(raw)
		if err != nil {
			result.UnknownEmails = append(result.UnknownEmails, raw)
			continue
		}
		if seen[email] {
			continue
		}
		seen[email] = true

		inv, err := s.invite(ctx, group, userID, email)
		switch {
		case errors.Is(err, ErrNotFound):
			result.UnknownEmails = append(result.UnknownEmails, email)
		case errors.Is(err, ErrConflict):
			// the creator's own address
		case err != nil:
			return nil, err
		default:
			result.Invitations = append(result.Invitations, inv)
		}
	}
	return result, nil
}

// GetGroup returns a group and its members. Non-members get ErrNotFound.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*GroupDetail, error) {
	member, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return &GroupDetail{Group: group, Role: member.Role, Members: members}, nil
}

// DeleteGroup deletes a group with everything in it. Only the owner may.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	member, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleOwner {
		return forbidden("only the group owner can delete the group")
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	s.logger.Info("Group deleted", "group_id", groupID, "user_id", userID)

	for _, m := range members {
		if m.UserID == userID {
			continue
		}
		s.notifier.notifyQuietly(ctx, m.UserID, models.NotifGroupDeleted,
			"Group deleted",
			fmt.Sprintf("%q was deleted by its owner", group.Name),
			groupID, map[string]any{"group_id": groupID, "group_name": group.Name})
	}
	return nil
}

// ListMembers returns a group's members, earliest joined first.
func (s *GroupService) ListMembers(ctx context.Context, userID, groupID string) ([]*models.GroupMember, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListGroupMembers(ctx, groupID)
}

// AddMember invites the user registered under email to the group.
func (s *GroupService) AddMember(ctx context.Context, userID, groupID, email string) (*models.Invitation, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	normalized, err := auth.NormalizeEmail(email)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.invite(ctx, group, userID, normalized)
}

// invite creates a pending invitation for the user behind email, notifies
// them and sends the invitation email.
func (s *GroupService) invite(ctx context.Context, group *models.Group, inviterID, email string) (*models.Invitation, error) {
	invitee, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound("user with that email")
		}
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	if _, err := s.store.GetGroupMember(ctx, group.ID, invitee.ID); err == nil {
		return nil, conflict("user is already a member")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if _, err := s.store.FindPendingInvitation(ctx, group.ID, invitee.ID); err == nil {
		return nil, conflict("user has already been invited")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check invitations: %w", err)
	}

	inv := &models.Invitation{
		GroupID:   group.ID,
		GroupName: group.Name,
		InviterID: inviterID,
		InviteeID: invitee.ID,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, conflict("user has already been invited")
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	inviterName := ""
	if inviter, err := s.store.GetUserByID(ctx, inviterID); err == nil {
		inviterName = inviter.DisplayName
	}
	inv.InviterName = inviterName
	s.logger.Info("Invitation created", "invitation_id", inv.ID, "group_id", group.ID, "invitee_id", invitee.ID)

	s.notifier.notifyQuietly(ctx, invitee.ID, models.NotifGroupInvitation,
		"Group invitation",
		fmt.Sprintf("%s invited you to join %q", inviterName, group.Name),
		inv.ID, map[string]any{"invitation_id": inv.ID, "group_id": group.ID, "group_name": group.Name})
	s.sendInvitationEmail(ctx, invitee, inviterName, group.Name)
	return inv, nil
}

func (s *GroupService) sendInvitationEmail(ctx context.Context, invitee *models.User, inviterName, groupName string) {
	if s.mailer == nil || !s.mailer.Configured() {
		s.logger.Debug("Email not configured, skipping invitation email", "user_id", invitee.ID)
		s.metrics.EmailSent("invitation", "skipped")
		return
	}
	if settings, err := s.store.GetSettings(ctx, invitee.ID); err == nil && !settings.EmailNotifications {
		s.metrics.EmailSent("invitation", "skipped")
		return
	}
	if err := s.mailer.SendGroupInvitation(ctx, invitee.Email, inviterName, groupName); err != nil {
		s.logger.Error("Failed to send invitation email", "user_id", invitee.ID, "error", err)
		s.metrics.EmailSent("invitation", "failed")
		return
	}
	s.metrics.EmailSent("invitation", "sent")
}

// RemoveMember removes targetID from the group. The owner may remove anyone
// but themselves; members may only remove themselves. Nobody leaves with a
// non-zero balance. An owner alone in the group deletes it by leaving.
func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID, targetID string) error {
	caller, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if targetID != userID && caller.Role != models.RoleOwner {
		return forbidden("only the group owner can remove other members")
	}
	target, err := s.store.GetGroupMember(ctx, groupID, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound("member")
		}
		return err
	}

	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	if target.Role == models.RoleOwner {
		if len(members) > 1 {
			return conflict("the owner cannot leave while other members remain")
		}
		return s.DeleteGroup(ctx, userID, groupID)
	}

	net, err := s.netBalance(ctx, groupID, targetID)
	if errors.Is(err, ErrConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to compute balance: %w", err)
	}
	if !net.IsZero() {
		return conflict("member has an outstanding balance of %s", net.StringFixed(2))
	}

	if err := s.store.RemoveGroupMember(ctx, groupID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	s.logger.Info("Member removed", "group_id", groupID, "user_id", targetID, "by", userID)

	if targetID != userID {
		group, err := s.store.GetGroup(ctx, groupID)
		if err == nil {
			s.notifier.notifyQuietly(ctx, targetID, models.NotifMemberRemoved,
				"Removed from group",
				fmt.Sprintf("You were removed from %q", group.Name),
				groupID, map[string]any{"group_id": groupID, "group_name": group.Name})
		}
	}
	return nil
}

// Balances computes every member's balance in the group. When the
// computation fails the members are reported with zero balances and
// Degraded set.
func (s *GroupService) Balances(ctx context.Context, userID, groupID string) (*GroupBalances, error) {
	if _, err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("Failed to list settlements", "group_id", groupID, "error", err)
		return s.degradedBalances(members), nil
	}

	balances, debts, err := s.compute(ctx, groupID, members, settlements)
	if err != nil {
		s.logger.Error("Balance computation failed", "group_id", groupID, "error", err)
		result := s.degradedBalances(members)
		result.Settlements = settlements
		return result, nil
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.DisplayName
	}
	if missing := missingNames(names, balances); len(missing) > 0 {
		if users, err := s.store.GetUsersByIDs(ctx, missing); err == nil {
			for id, u := range users {
				names[id] = u.DisplayName
			}
		}
	}

	result := &GroupBalances{
		Balances:        make([]MemberBalance, 0, len(balances)),
		SimplifiedDebts: make([]Debt, 0, len(debts)),
		Settlements:     settlements,
	}
	for _, b := range balances {
		result.Balances = append(result.Balances, MemberBalance{
			UserID:      b.UserID,
			DisplayName: names[b.UserID],
			TotalPaid:   b.TotalPaid,
			TotalOwed:   b.TotalOwed,
			NetBalance:  b.NetBalance,
		})
	}
	for _, d := range debts {
		result.SimplifiedDebts = append(result.SimplifiedDebts, Debt{
			From:     d.From,
			FromName: names[d.From],
			To:       d.To,
			ToName:   names[d.To],
			Amount:   d.Amount,
		})
	}
	return result, nil
}

func (s *GroupService) degradedBalances(members []*models.GroupMember) *GroupBalances {
	result := &GroupBalances{
		Balances:        make([]MemberBalance, 0, len(members)),
		SimplifiedDebts: []Debt{},
		Settlements:     []*models.Settlement{},
		Degraded:        true,
	}
	for _, m := range members {
		result.Balances = append(result.Balances, MemberBalance{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			TotalPaid:   decimal.Zero,
			TotalOwed:   decimal.Zero,
			NetBalance:  decimal.Zero,
		})
	}
	return result
}

func missingNames(names map[string]string, balances []calculator.MemberBalance) []string {
	var missing []string
	for _, b := range balances {
		if _, ok := names[b.UserID]; !ok {
			missing = append(missing, b.UserID)
		}
	}
	return missing
}

// compute runs the balance calculator over the group's expenses and settlements.
func (s *GroupService) compute(ctx context.Context, groupID string, members []*models.GroupMember, settlements []*models.Settlement) ([]calculator.MemberBalance, []calculator.DebtEdge, error) {
	expenses, err := s.store.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list group expenses: %w", err)
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.UserID
	}
	forBalance := make([]calculator.ExpenseForBalance, len(expenses))
	for i, e := range expenses {
		splits := make([]calculator.Allocation, len(e.Splits))
		for j, sp := range e.Splits {
			splits[j] = calculator.Allocation{UserID: sp.UserID, Amount: sp.Amount}
		}
		forBalance[i] = calculator.ExpenseForBalance{
			ID:      e.ID,
			PayerID: e.UserID,
			Amount:  e.Amount,
			Splits:  splits,
		}
	}
	settled := make([]calculator.SettlementForBalance, len(settlements))
	for i, st := range settlements {
		settled[i] = calculator.SettlementForBalance{
			FromUserID: st.FromUserID,
			ToUserID:   st.ToUserID,
			Amount:     st.Amount,
		}
	}
	balances, debts, err := calculator.CalculateGroupBalances(memberIDs, forBalance, settled)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBalancesUnavailable, err)
	}
	return balances, debts, nil
}

// errBalancesUnavailable marks stored expenses the balance calculator rejects.
var errBalancesUnavailable = errors.New("group balances cannot be computed")

// netBalance returns userID's net balance in one group.
func (s *GroupService) netBalance(ctx context.Context, groupID, userID string) (decimal.Decimal, error) {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	settlements, err := s.store.ListSettlementsByGroup(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	balances, _, err := s.compute(ctx, groupID, members, settlements)
	if errors.Is(err, errBalancesUnavailable) {
		s.logger.Error("Balance computation failed", "group_id", groupID, "error", err)
		return decimal.Zero, conflict("balances of this group cannot be computed until its expenses are fixed")
	}
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range balances {
		if b.UserID == userID {
			return b.NetBalance, nil
		}
	}
	return decimal.Zero, nil
}

// UserBalances returns the caller's net balance in every group they belong to.
func (s *GroupService) UserBalances(ctx context.Context, userID string) ([]*models.GroupSummary, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	for _, g := range groups {
		net, err := s.netBalance(ctx, g.ID, userID)
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("failed to compute balance for group %s: %w", g.ID, err)
		}
		g.NetBalance = net
	}
	return groups, nil
}

// handOver prepares userID's groups for account deletion: groups with other
// members pass to the earliest joined of them, solo groups are deleted.
func (s *GroupService) handOver(ctx context.Context, userID string) error {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}
	for _, g := range groups {
		if g.Role != models.RoleOwner {
			continue
		}
		members, err := s.store.ListGroupMembers(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		var heir *models.GroupMember
		for _, m := range members {
			if m.UserID != userID {
				heir = m
				break
			}
		}
		if heir == nil {
			if err := s.store.DeleteGroup(ctx, g.ID); err != nil {
				return fmt.Errorf("failed to delete group %s: %w", g.ID, err)
			}
			s.logger.Info("Deleted solo group of departing user", "group_id", g.ID, "user_id", userID)
			continue
		}
		if err := s.store.SetGroupMemberRole(ctx, g.ID, heir.UserID, models.RoleOwner); err != nil {
			return fmt.Errorf("failed to transfer group %s: %w", g.ID, err)
		}
		s.logger.Info("Transferred group ownership", "group_id", g.ID, "from", userID, "to", heir.UserID)
	}
	return nil
}

// requireMember returns the caller's membership, or ErrNotFound so that
// non-members cannot tell a hidden group from a missing one.
func (s *GroupService) requireMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	member, err := s.store.GetGroupMember(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound("group")
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	return member, nil
}

func unixNow() int64 {
	return time.Now().Unix()
}
