package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/calculator"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// SplitService creates and removes group expenses.
type SplitService struct {
	store    storage.Store
	groups   *GroupService
	notifier *NotificationService
	logger   *slog.Logger
}

// NewSplitService creates a new SplitService with the given storage backend.
func NewSplitService(store storage.Store, groups *GroupService, notifier *NotificationService, logger *slog.Logger) *SplitService {
	return &SplitService{store: store, groups: groups, notifier: notifier, logger: logger}
}

// SplitShare is one requested share of a group expense. Value is ignored
// for equal splits.
type SplitShare struct {
	UserID string          `json:"user_id"`
	Value  decimal.Decimal `json:"value"`
}

// GroupExpenseInput is the body of a create group expense request.
type GroupExpenseInput struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes"`
	PaidBy      string          `json:"paid_by"`
	SplitType   string          `json:"split_type"`
	Splits      []SplitShare    `json:"splits"`
}

// BillItem is one line of an itemized bill.
type BillItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	AssignedTo  []string        `json:"assigned_to"`
}

// ItemizedExpenseInput creates a group expense from a bill whose line items
// are assigned to members. Tax and fees (Amount minus Subtotal) are shared
// in proportion to each member's items.
type ItemizedExpenseInput struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Category     string          `json:"category"`
	Date         string          `json:"date"`
	Notes        string          `json:"notes"`
	PaidBy       string          `json:"paid_by"`
	Participants []string        `json:"participants"`
	Items        []BillItem      `json:"items"`
}

// validatePayerID checks that the payer is a member of the group.
func validatePayerID(payerID string, members map[string]*models.GroupMember) error {
	if _, ok := members[payerID]; !ok {
		return invalid("paid_by '%s' must be a member of the group", payerID)
	}
	return nil
}

// CreateGroupExpense records an expense paid by one member and divides it
// among members. The splits add up to the amount exactly.
func (s *SplitService) CreateGroupExpense(ctx context.Context, userID, groupID string, in GroupExpenseInput) (*models.Expense, error) {
	members, ordered, err := s.memberSet(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	kind, err := calculator.ParseKind(in.SplitType)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	shares := make([]calculator.Share, len(in.Splits))
	for i, sp := range in.Splits {
		if _, ok := members[sp.UserID]; !ok {
			return nil, invalid("split user '%s' must be a member of the group", sp.UserID)
		}
		shares[i] = calculator.Share{UserID: sp.UserID, Value: sp.Value}
	}
	if len(shares) == 0 && kind == calculator.Equal {
		for _, m := range ordered {
			shares = append(shares, calculator.Share{UserID: m.UserID})
		}
	}

	allocs, err := calculator.CalculateSplit(kind, in.Amount, shares)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	return s.create(ctx, userID, groupID, members, expenseFields{
		description: in.Description,
		amount:      in.Amount,
		category:    in.Category,
		date:        in.Date,
		notes:       in.Notes,
		paidBy:      in.PaidBy,
	}, allocs)
}

// CreateItemizedExpense records a group expense split by bill line items.
func (s *SplitService) CreateItemizedExpense(ctx context.Context, userID, groupID string, in ItemizedExpenseInput) (*models.Expense, error) {
	members, _, err := s.memberSet(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	if in.Subtotal.IsZero() {
		in.Subtotal = decimal.Zero
		for _, item := range in.Items {
			in.Subtotal = in.Subtotal.Add(item.Amount)
		}
	}
	if !in.Subtotal.IsPositive() || in.Subtotal.GreaterThan(in.Amount) {
		return nil, invalid("subtotal must be positive and no more than the amount")
	}
	for _, p := range in.Participants {
		if _, ok := members[p]; !ok {
			return nil, invalid("participant '%s' must be a member of the group", p)
		}
	}

	items := make([]calculator.Item, len(in.Items))
	for i, item := range in.Items {
		for _, p := range item.AssignedTo {
			if !contains(in.Participants, p) {
				return nil, invalid("item %q is assigned to '%s' who is not a participant", item.Description, p)
			}
		}
		items[i] = calculator.Item{Description: item.Description, Amount: item.Amount, AssignedTo: item.AssignedTo}
	}

	splits, err := calculator.CalculateItemizedSplit(items, in.Amount, in.Subtotal, in.Participants)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	allocs := make([]calculator.Allocation, 0, len(in.Participants))
	sum := decimal.Zero
	for _, p := range in.Participants {
		sum = sum.Add(splits[p].Total)
		allocs = append(allocs, calculator.Allocation{UserID: p, Amount: splits[p].Total})
	}
	if !sum.Equal(in.Amount) {
		return nil, invalid("every item must be assigned: shares add up to %s, want %s", sum.StringFixed(2), in.Amount.StringFixed(2))
	}

	return s.create(ctx, userID, groupID, members, expenseFields{
		description: in.Description,
		amount:      in.Amount,
		category:    in.Category,
		date:        in.Date,
		notes:       in.Notes,
		paidBy:      in.PaidBy,
	}, allocs)
}

type expenseFields struct {
	description, category, date, notes, paidBy string
	amount                                     decimal.Decimal
}

func (s *SplitService) create(ctx context.Context, userID, groupID string, members map[string]*models.GroupMember, f expenseFields, allocs []calculator.Allocation) (*models.Expense, error) {
	description := strings.TrimSpace(f.description)
	if description == "" {
		return nil, invalid("description is required")
	}
	payer := f.paidBy
	if payer == "" {
		payer = userID
	}
	if err := validatePayerID(payer, members); err != nil {
		return nil, err
	}
	date := f.date
	if date == "" {
		date = models.Today()
	} else if !models.ValidDate(date) {
		return nil, invalid("date must be YYYY-MM-DD")
	}
	category := strings.TrimSpace(f.category)
	if category == "" {
		category = assistant.Categorize(description)
	}

	expense := &models.Expense{
		UserID:      payer,
		GroupID:     groupID,
		Description: description,
		Amount:      f.amount,
		Category:    category,
		Date:        date,
		Notes:       strings.TrimSpace(f.notes),
		Splits:      make([]models.ExpenseSplit, 0, len(allocs)),
	}
	for _, a := range allocs {
		expense.Splits = append(expense.Splits, models.ExpenseSplit{
			UserID:      a.UserID,
			DisplayName: members[a.UserID].DisplayName,
			Amount:      a.Amount,
		})
	}
	if total := models.SplitTotal(expense.Splits); !total.Equal(expense.Amount) {
		return nil, fmt.Errorf("splits add up to %s, want %s", total, expense.Amount)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, invalid("a member appears more than once in the splits")
		}
		return nil, fmt.Errorf("failed to create group expense: %w", err)
	}
	expense.PaidByName = members[payer].DisplayName
	s.logger.Info("Group expense created",
		"expense_id", expense.ID,
		"group_id", groupID,
		"amount", expense.Amount.String(),
		"splits", len(expense.Splits),
	)

	group, err := s.store.GetGroup(ctx, groupID)
	if err == nil {
		expense.GroupName = group.Name
	}
	creator := members[userID].DisplayName
	for _, sp := range expense.Splits {
		if sp.UserID == userID {
			continue
		}
		s.notifier.notifyQuietly(ctx, sp.UserID, models.NotifGroupExpense,
			"New group expense",
			fmt.Sprintf("%s added %q in %s. Your share: %s", creator, description, expense.GroupName, sp.Amount.StringFixed(2)),
			expense.ID, map[string]any{
				"expense_id": expense.ID,
				"group_id":   groupID,
				"amount":     expense.Amount.StringFixed(2),
				"share":      sp.Amount.StringFixed(2),
			})
	}
	return expense, nil
}

// ListGroupExpenses returns a group's expenses, newest first.
func (s *SplitService) ListGroupExpenses(ctx context.Context, userID, groupID string) ([]*models.Expense, error) {
	if _, err := s.groups.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.ListGroupExpenses(ctx, groupID)
}

// DeleteGroupExpense removes a group expense. Only its payer or the group
// owner may.
func (s *SplitService) DeleteGroupExpense(ctx context.Context, userID, groupID, expenseID string) error {
	member, err := s.groups.requireMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense.GroupID != groupID {
		return notFound("expense")
	}
	if expense.UserID != userID && member.Role != models.RoleOwner {
		return forbidden("only the payer or the group owner can delete this expense")
	}
	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	s.logger.Info("Group expense deleted", "expense_id", expenseID, "group_id", groupID, "user_id", userID)

	for _, sp := range expense.Splits {
		if sp.UserID != userID {
			s.notifier.Emit(sp.UserID, expenseEvent("deleted", expense))
		}
	}
	return nil
}

// memberSet checks the caller's membership and returns every member by ID
// and in join order.
func (s *SplitService) memberSet(ctx context.Context, groupID, userID string) (map[string]*models.GroupMember, []*models.GroupMember, error) {
	if _, err := s.groups.requireMember(ctx, groupID, userID); err != nil {
		return nil, nil, err
	}
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list members: %w", err)
	}
	set := make(map[string]*models.GroupMember, len(members))
	for _, m := range members {
		set[m.UserID] = m
	}
	return set, members, nil
}

// contains checks if the user is in the list.
func contains(list []string, userID string) bool {
	for _, p := range list {
		if p == userID {
			return true
		}
	}
	return false
}
