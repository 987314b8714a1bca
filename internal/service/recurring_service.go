package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/recurrence"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// MaxOccurrencesPerRun bounds how many missed occurrences of one rule a
// single run books.
const MaxOccurrencesPerRun = 366

// RecurringService manages recurring expense rules and books their
// occurrences.
type RecurringService struct {
	store    storage.Store
	notifier *NotificationService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRecurringService creates a RecurringService.
func NewRecurringService(store storage.Store, notifier *NotificationService, m *metrics.Metrics, logger *slog.Logger) *RecurringService {
	return &RecurringService{store: store, notifier: notifier, metrics: m, logger: logger}
}

// RecurringInput is the body of a create recurring expense request.
type RecurringInput struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Frequency   string          `json:"frequency"`
	Interval    int             `json:"interval"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
}

// List returns the caller's recurring rules.
func (s *RecurringService) List(ctx context.Context, userID string) ([]*models.RecurringExpense, error) {
	return s.store.ListRecurring(ctx, userID)
}

// Create stores a new rule. Occurrences already due are booked right away.
func (s *RecurringService) Create(ctx context.Context, userID string, in RecurringInput) (*models.RecurringExpense, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalid("description is required")
	}
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, invalid("amount must be positive with at most two decimal places")
	}
	if in.Interval == 0 {
		in.Interval = 1
	}
	if in.StartDate == "" {
		in.StartDate = models.Today()
	}
	freq, err := recurrence.Validate(strings.ToLower(in.Frequency), in.Interval, in.StartDate, in.EndDate)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = assistant.Categorize(description)
	}

	rule := &models.RecurringExpense{
		UserID:      userID,
		Description: description,
		Amount:      in.Amount,
		Category:    category,
		Frequency:   string(freq),
		Interval:    in.Interval,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		NextDue:     in.StartDate,
		Active:      true,
	}
	if err := s.store.CreateRecurring(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create recurring expense: %w", err)
	}
	s.logger.Info("Recurring expense created", "recurring_id", rule.ID, "user_id", userID, "frequency", rule.Frequency)

	if _, err := s.runRule(ctx, rule, models.Today()); err != nil {
		s.logger.Error("Failed to book due occurrences", "recurring_id", rule.ID, "error", err)
	}
	return rule, nil
}

// SetActive pauses or resumes a rule. A resumed rule skips the occurrences
// it missed while paused.
func (s *RecurringService) SetActive(ctx context.Context, userID, id string, active bool) (*models.RecurringExpense, error) {
	rule, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rule.Active == active {
		return rule, nil
	}

	if !active {
		if err := s.store.SetRecurringActive(ctx, id, false); err != nil {
			return nil, err
		}
		rule.Active = false
		s.logger.Info("Recurring expense paused", "recurring_id", id)
		return rule, nil
	}

	next, err := nextOnOrAfter(rule, models.Today())
	if err != nil {
		return nil, err
	}
	if rule.EndDate != "" && next > rule.EndDate {
		return nil, conflict("recurring expense has ended")
	}
	if err := s.store.ResumeRecurring(ctx, id, next); err != nil {
		return nil, err
	}
	rule.Active = true
	rule.NextDue = next
	s.logger.Info("Recurring expense resumed", "recurring_id", id, "next_due", next)
	return rule, nil
}

// Delete removes a rule. Expenses it already created are kept.
func (s *RecurringService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Recurring expense deleted", "recurring_id", id, "user_id", userID)
	return nil
}

// RunDue books every occurrence due on or before today and returns how many
// expenses were created.
func (s *RecurringService) RunDue(ctx context.Context, today string) (int, error) {
	rules, err := s.store.ListDueRecurring(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list due recurring expenses: %w", err)
	}
	total := 0
	for _, rule := range rules {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.runRule(ctx, rule, today)
		total += n
		if err != nil {
			s.logger.Error("Failed to book recurring expense", "recurring_id", rule.ID, "error", err)
		}
	}
	if total > 0 {
		s.logger.Info("Recurring expenses booked", "rules", len(rules), "expenses", total)
	}
	return total, nil
}

// runRule books the occurrences of one rule that are due by today. Each
// occurrence is booked together with the advance of next_due.
func (s *RecurringService) runRule(ctx context.Context, rule *models.RecurringExpense, today string) (int, error) {
	freq, err := recurrence.ParseFrequency(rule.Frequency)
	if err != nil {
		return 0, err
	}

	booked := 0
	var lastDate string
	for booked < MaxOccurrencesPerRun && rule.Active && rule.NextDue <= today {
		date := rule.NextDue
		if rule.EndDate != "" && date > rule.EndDate {
			if err := s.store.SetRecurringActive(ctx, rule.ID, false); err != nil {
				return booked, err
			}
			rule.Active = false
			break
		}

		next, err := recurrence.NextDate(freq, rule.Interval, rule.StartDate, date)
		if err != nil {
			return booked, err
		}
		advanced := *rule
		advanced.NextDue = next
		advanced.Active = rule.EndDate == "" || next <= rule.EndDate

		expense := &models.Expense{
			UserID:      rule.UserID,
			Description: rule.Description,
			Amount:      rule.Amount,
			Category:    rule.Category,
			Date:        date,
		}
		if err := s.store.MaterializeRecurring(ctx, &advanced, expense); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				s.logger.Debug("Recurring occurrence already booked", "recurring_id", rule.ID, "date", date)
				break
			}
			return booked, err
		}
		*rule = advanced
		booked++
		lastDate = date
	}

	if booked > 0 {
		s.metrics.RecurringCreated(booked)
		msg := fmt.Sprintf("%q for %s was added for %s", rule.Description, rule.Amount.StringFixed(2), lastDate)
		if booked > 1 {
			msg = fmt.Sprintf("%d occurrences of %q were added, the latest for %s", booked, rule.Description, lastDate)
		}
		s.notifier.notifyQuietly(ctx, rule.UserID, models.NotifRecurringExpense,
			"Recurring expense added", msg, rule.ID, map[string]any{
				"recurring_id": rule.ID,
				"count":        booked,
				"next_due":     rule.NextDue,
			})
	}
	return booked, nil
}

// owned returns the rule if userID owns it.
func (s *RecurringService) owned(ctx context.Context, userID, id string) (*models.RecurringExpense, error) {
	rule, err := s.store.GetRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.UserID != userID {
		return nil, notFound("recurring expense")
	}
	return rule, nil
}

// nextOnOrAfter returns the first occurrence of rule dated today or later,
// starting from its current next_due.
func nextOnOrAfter(rule *models.RecurringExpense, today string) (string, error) {
	freq, err := recurrence.ParseFrequency(rule.Frequency)
	if err != nil {
		return "", err
	}
	next := rule.NextDue
	for next < today {
		if next, err = recurrence.NextDate(freq, rule.Interval, rule.StartDate, next); err != nil {
			return "", err
		}
	}
	return next, nil
}
