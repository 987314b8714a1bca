// Package recurrence computes the due dates of recurring expenses.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

// Frequency is the unit a rule repeats in.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

var (
	ErrUnknownFrequency = errors.New("frequency must be daily, weekly, monthly or yearly")
	ErrInvalidInterval  = errors.New("interval must be at least 1")
)

// ParseFrequency accepts a frequency name in any case.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly, Yearly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// Next returns the occurrence following from. Monthly and yearly rules land
// on the anchor's day of month, or on the last day of months that are too
// short, so a rule anchored on the 31st goes Jan 31, Feb 29, Mar 31.
func Next(freq Frequency, interval int, anchor, from time.Time) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case Daily:
		return from.AddDate(0, 0, interval)
	case Weekly:
		return from.AddDate(0, 0, 7*interval)
	case Monthly:
		first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, interval, 0)
		return clamp(first.Year(), first.Month(), anchor.Day())
	case Yearly:
		return clamp(from.Year()+interval, anchor.Month(), anchor.Day())
	}
	return from
}

// NextDate is Next over DateLayout strings.
func NextDate(freq Frequency, interval int, startDate, fromDate string) (string, error) {
	anchor, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	from, err := time.Parse(models.DateLayout, fromDate)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", fromDate, err)
	}
	return Next(freq, interval, anchor, from).Format(models.DateLayout), nil
}

// Validate checks a rule's schedule fields.
func Validate(freq string, interval int, startDate, endDate string) (Frequency, error) {
	f, err := ParseFrequency(freq)
	if err != nil {
		return "", err
	}
	if interval < 1 {
		return "", ErrInvalidInterval
	}
	if !models.ValidDate(startDate) {
		return "", fmt.Errorf("invalid start date %q", startDate)
	}
	if endDate != "" {
		if !models.ValidDate(endDate) {
			return "", fmt.Errorf("invalid end date %q", endDate)
		}
		if endDate < startDate {
			return "", errors.New("end date is before start date")
		}
	}
	return f, nil
}

func clamp(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
