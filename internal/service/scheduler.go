package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

// Scheduler periodically books due recurring expenses.
type Scheduler struct {
	mu        sync.RWMutex
	recurring *RecurringService
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a recurring expense scheduler.
func NewScheduler(recurring *RecurringService, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		recurring: recurring,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs one pass immediately and then one every interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.recurring.RunDue(ctx, models.Today()); err != nil && ctx.Err() == nil {
		s.logger.Error("Recurring scheduler pass failed", "error", err)
	}
}
