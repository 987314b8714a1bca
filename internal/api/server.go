// Package api exposes Coincious over HTTP: a JSON REST API under /api, the
// realtime WebSocket, health and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/middleware"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
)

const (
	authRateLimit  = 10
	authRatePeriod = time.Minute
)

// Services bundles the domain services the handlers call.
type Services struct {
	Auth          *service.AuthService
	Profiles      *service.ProfileService
	Expenses      *service.ExpenseService
	Recurring     *service.RecurringService
	Groups        *service.GroupService
	Splits        *service.SplitService
	Invitations   *service.InvitationService
	Notifications *service.NotificationService
	Assistant     *service.AssistantService
}

// Options configures a Server.
type Options struct {
	JWT      *auth.JWTManager
	Sessions middleware.SessionChecker
	// ClientIP keys the auth rate limit and request logs. Nil trusts no proxy.
	ClientIP    *middleware.ClientIP
	Hub         *realtime.Hub
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	// StaticDir, when set, serves a built front end for non-API paths.
	StaticDir string
	Logger    *slog.Logger
}

// Server holds the handlers' dependencies.
type Server struct {
	svc     Services
	opts    Options
	logger  *slog.Logger
	limiter *middleware.RateLimiter
}

// New creates a Server. A nil Limiter gets a fresh in-memory one.
func New(svc Services, opts Options) *Server {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:     svc,
		opts:    opts,
		logger:  logger,
		limiter: limiter,
	}
}

// Handler builds the router wrapped in the global middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(s.opts.Metrics))

	r.HandleFunc("/health", s.health).Methods("GET")
	r.Handle("/metrics", s.opts.Metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	public := api.NewRoute().Subrouter()
	public.Use(middleware.RateLimit(s.limiter, s.opts.ClientIP.Resolve, authRateLimit, authRatePeriod))
	public.HandleFunc("/auth/signup", s.signup).Methods("POST")
	public.HandleFunc("/auth/login", s.login).Methods("POST")
	public.HandleFunc("/auth/password-reset", s.requestPasswordReset).Methods("POST")
	public.HandleFunc("/auth/password-reset/confirm", s.confirmPasswordReset).Methods("POST")
	public.HandleFunc("/auth/check-email", s.checkEmail).Methods("POST")
	public.HandleFunc("/auth/oauth/{provider}", s.oauth).Methods("POST")

	private := api.NewRoute().Subrouter()
	private.Use(middleware.RequireAuth(s.opts.JWT, s.opts.Sessions, s.logger))

	// Auth
	private.HandleFunc("/auth/session", s.session).Methods("GET")
	private.HandleFunc("/auth/user", s.updateUser).Methods("PATCH")
	private.HandleFunc("/auth/logout", s.logout).Methods("POST")
	private.HandleFunc("/user", s.deleteAccount).Methods("DELETE")

	// Profile and settings
	private.HandleFunc("/profile", s.getProfile).Methods("GET")
	private.HandleFunc("/profile", s.updateProfile).Methods("PUT")
	private.HandleFunc("/settings", s.getSettings).Methods("GET")
	private.HandleFunc("/settings", s.updateSettings).Methods("PUT")

	// Personal expenses
	private.HandleFunc("/expenses", s.listExpenses).Methods("GET")
	private.HandleFunc("/expenses", s.createExpense).Methods("POST")
	private.HandleFunc("/expenses/range", s.expensesInRange).Methods("GET")
	private.HandleFunc("/expenses/summary", s.expenseSummary).Methods("GET")
	private.HandleFunc("/expenses/{id}", s.getExpense).Methods("GET")
	private.HandleFunc("/expenses/{id}", s.updateExpense).Methods("PUT")
	private.HandleFunc("/expenses/{id}", s.deleteExpense).Methods("DELETE")
	private.HandleFunc("/categories", s.categories).Methods("GET")
	private.HandleFunc("/export", s.exportExpenses).Methods("GET")

	// Recurring expenses
	private.HandleFunc("/recurring-expenses", s.listRecurring).Methods("GET")
	private.HandleFunc("/recurring-expenses", s.createRecurring).Methods("POST")
	private.HandleFunc("/recurring-expenses/{id}/active", s.setRecurringActive).Methods("PUT")
	private.HandleFunc("/recurring-expenses/{id}", s.deleteRecurring).Methods("DELETE")

	// Groups
	private.HandleFunc("/groups", s.listGroups).Methods("GET")
	private.HandleFunc("/groups", s.createGroup).Methods("POST")
	private.HandleFunc("/groups/{id}", s.getGroup).Methods("GET")
	private.HandleFunc("/groups/{id}", s.deleteGroup).Methods("DELETE")
	private.HandleFunc("/groups/{id}/members", s.listMembers).Methods("GET")
	private.HandleFunc("/groups/{id}/add-member", s.addMember).Methods("POST")
	private.HandleFunc("/groups/{id}/members/{userId}", s.removeMember).Methods("DELETE")
	private.HandleFunc("/groups/{id}/expenses", s.listGroupExpenses).Methods("GET")
	private.HandleFunc("/groups/{id}/expenses", s.createGroupExpense).Methods("POST")
	private.HandleFunc("/groups/{id}/expenses/itemized", s.createItemizedExpense).Methods("POST")
	private.HandleFunc("/groups/{id}/expenses/{expenseId}", s.deleteGroupExpense).Methods("DELETE")
	private.HandleFunc("/groups/{id}/balances", s.groupBalances).Methods("GET")
	private.HandleFunc("/groups/{id}/settle", s.settle).Methods("POST")
	private.HandleFunc("/groups/{id}/settlements", s.listSettlements).Methods("GET")
	private.HandleFunc("/groups/{id}/settlements/{settlementId}", s.deleteSettlement).Methods("DELETE")

	// Invitations
	private.HandleFunc("/invitations", s.listInvitations).Methods("GET")
	private.HandleFunc("/invitations/{id}/respond", s.respondToInvitation).Methods("POST")

	// Notifications
	private.HandleFunc("/notifications", s.listNotifications).Methods("GET")
	private.HandleFunc("/notifications/unread-count", s.unreadCount).Methods("GET")
	private.HandleFunc("/notifications/read-all", s.markAllRead).Methods("POST")
	private.HandleFunc("/notifications/{id}/read", s.markRead).Methods("POST")
	private.HandleFunc("/notifications/{id}", s.deleteNotification).Methods("DELETE")

	// Assistant
	private.HandleFunc("/categorize", s.categorize).Methods("POST")
	private.HandleFunc("/parse-bill", s.parseBill).Methods("POST")
	private.HandleFunc("/ai/chat", s.chat).Methods("POST")

	// Realtime
	private.Handle("/realtime", realtime.Handler(s.opts.Hub, middleware.UserFromRequest, s.opts.CORSOrigins, s.logger.With("component", "realtime"))).Methods("GET")

	if s.opts.StaticDir != "" {
		r.PathPrefix("/").Handler(staticHandler(s.opts.StaticDir)).Methods("GET", "HEAD")
	}

	var h http.Handler = r
	h = middleware.CORS(s.opts.CORSOrigins)(h)
	h = middleware.RequestLogger(s.logger, s.opts.ClientIP)(h)
	h = middleware.Recover(s.logger)(h)
	return h
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"websocket_clients": s.opts.Hub.ClientCount(),
	})
}

// staticHandler serves files from dir and falls back to index.html so
// client-side routes load the front end.
func staticHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}
		filePath := filepath.Join(dir, filepath.Clean(urlPath))
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		http.ServeFile(w, r, filePath)
	})
}
