package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
)

// Metrics records request counts and latency labelled by the matched route
// template, so /api/groups/{id} is one series. Unmatched requests use "other".
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := recorderFor(w)

			next.ServeHTTP(rec, r)

			route := "other"
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			m.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		})
	}
}
