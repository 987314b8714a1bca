// Package service implements Coincious's operations on top of storage.
// Services are transport-agnostic; they return the sentinel errors below
// (or storage.ErrNotFound) and the HTTP layer maps them to status codes.
package service

import (
	"errors"
	"fmt"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

var (
	// ErrForbidden means the caller may see the resource but not do this to it.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument means the request itself is malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict means the request collides with current state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is storage.ErrNotFound, so both match one errors.Is check.
	ErrNotFound = storage.ErrNotFound
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}
