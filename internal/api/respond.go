package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/middleware"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", service.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", service.ErrInvalidArgument, err)
	}
	return nil
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage drops the sentinel prefix from wrapped argument errors, so
// "invalid argument: amount must be positive" reads "amount must be positive".
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{service.ErrInvalidArgument, service.ErrForbidden, service.ErrConflict} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
		}
	}
	return msg
}

// writeError answers err with its mapped status. Internal errors are logged
// and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.WriteError(w, status, "internal server error")
		return
	}
	if status == http.StatusBadGateway {
		s.logger.Warn("assistant upstream failed", "path", r.URL.Path, "error", err)
	}
	middleware.WriteError(w, status, publicMessage(err))
}

// queryInt reads a non-negative integer query parameter, 0 when absent.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", service.ErrInvalidArgument, key)
	}
	return n, nil
}

func userID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

func invalidBody(msg string) error {
	return fmt.Errorf("%w: %s", service.ErrInvalidArgument, msg)
}
