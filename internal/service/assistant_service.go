package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// Categorization sources.
const (
	SourceAssistant = "assistant"
	SourceRules     = "rules"
)

// chatWindow is how far back the spending context sent with chat goes.
const chatWindow = 30 * 24 * time.Hour

// AssistantService fronts the external assistant with local fallbacks and
// the caller's spending context.
type AssistantService struct {
	client *assistant.Client
	store  storage.Store
	groups *GroupService
	logger *slog.Logger
}

// NewAssistantService creates an AssistantService.
func NewAssistantService(client *assistant.Client, store storage.Store, groups *GroupService, logger *slog.Logger) *AssistantService {
	return &AssistantService{client: client, store: store, groups: groups, logger: logger}
}

// Categorization is a suggested category and where it came from.
type Categorization struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}

// Categorize suggests a category for an expense description. The upstream
// assistant is asked first when configured; the keyword rules answer when
// it is not or when it fails.
func (s *AssistantService) Categorize(ctx context.Context, description string, amount *decimal.Decimal) (*Categorization, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, invalid("description is required")
	}
	if s.client.Configured() {
		category, err := s.client.Categorize(ctx, description, amount)
		if err == nil && category != "" {
			return &Categorization{Category: category, Source: SourceAssistant}, nil
		}
		s.logger.Warn("Assistant categorization failed, using rules", "error", err)
	}
	return &Categorization{Category: assistant.Categorize(description), Source: SourceRules}, nil
}

// Chat forwards a message to the assistant together with the caller's
// recent spending and group balances.
func (s *AssistantService) Chat(ctx context.Context, userID, message string, history []assistant.ChatTurn) (*assistant.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message is required")
	}
	if !s.client.Configured() {
		return nil, assistant.ErrNotConfigured
	}
	chatContext, err := s.spendingContext(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.client.Chat(ctx, assistant.ChatRequest{
		Message: message,
		History: history,
		Context: chatContext,
	})
}

func (s *AssistantService) spendingContext(ctx context.Context, userID string, now time.Time) (map[string]any, error) {
	start := now.Add(-chatWindow).Format(models.DateLayout)
	end := now.Format(models.DateLayout)
	expenses, err := s.store.ListExpenses(ctx, models.ExpenseFilter{UserID: userID, Scope: models.ScopeAll, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	categories, total := CategoryTotals(expenses, userID)

	groups, err := s.groups.UserBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	balances := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		balances = append(balances, map[string]any{
			"group":       g.Name,
			"net_balance": g.NetBalance.StringFixed(2),
		})
	}

	return map[string]any{
		"period":          map[string]string{"start": start, "end": end},
		"category_totals": categories,
		"total_spent":     total.StringFixed(2),
		"group_balances":  balances,
	}, nil
}

// ParseBill sends an uploaded receipt to the assistant and returns its
// structured reading of it.
func (s *AssistantService) ParseBill(ctx context.Context, filename, contentType string, file io.Reader) (json.RawMessage, error) {
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		return nil, invalid("file must be an image or a PDF")
	}
	if !s.client.Configured() {
		return nil, assistant.ErrNotConfigured
	}
	return s.client.ParseBill(ctx, filename, contentType, file)
}
