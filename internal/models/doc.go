// Package models defines the core domain models for Coincious.
//
// # Models
//
//   - User, Profile, UserSettings: an account, its public profile and preferences
//   - Expense, ExpenseSplit: a personal or group expense and the per-member shares
//   - RecurringExpense: a rule that produces expenses on a schedule
//   - Group, GroupMember, Invitation: shared expense groups and how people join them
//   - Settlement: a recorded payment between two group members
//   - Notification: an in-app message for one user
//
// # Conventions
//
//  1. IDs are UUID strings; relationships are ID strings, never pointers.
//  2. Timestamps are Unix seconds; calendar dates are "YYYY-MM-DD" strings (DateLayout).
//  3. Money is decimal.Decimal, stored as TEXT and serialized as a JSON string.
package models

import "time"

// DateLayout is the calendar date format used by expenses and recurring rules.
const DateLayout = "2006-01-02"

// Today returns the current UTC calendar date.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
