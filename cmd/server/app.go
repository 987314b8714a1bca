package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/api"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/assistant"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/auth"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/config"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/email"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/metrics"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/realtime"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage/sqlite"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/pkg/logging"
)

// app is the wired server: storage, realtime hub and every service.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *sqlite.SQLiteStore
	metrics *metrics.Metrics
	hub     *realtime.Hub
	jwt     *auth.JWTManager
	svc     api.Services
}

// loadConfig reads the environment and applies flags on top:
// flag > env > default.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed(flagDB) {
		cfg.DBPath, _ = flags.GetString(flagDB)
	}
	if flags.Changed(flagLogLevel) {
		cfg.LogLevel, _ = flags.GetString(flagLogLevel)
	}
	if flags.Lookup(flagPort) != nil && flags.Changed(flagPort) {
		cfg.Port, _ = flags.GetInt(flagPort)
		if cfg.Port <= 0 || cfg.Port > 65535 {
			return config.Config{}, fmt.Errorf("invalid --port %d", cfg.Port)
		}
	}
	return cfg, nil
}

func newApp(cfg config.Config) (*app, error) {
	logger := logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()
	hub := realtime.NewHub(logger.With("component", "realtime"))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mailer := email.NewClient(cfg.PostmarkToken, cfg.EmailFrom, cfg.AppBaseURL)
	if !mailer.Configured() {
		logger.Warn("Email is not configured; reset codes and invitations will not be mailed")
	}
	assistantClient := assistant.NewClient(cfg.AssistantURL, cfg.AssistantAPIKey)
	if !assistantClient.Configured() {
		logger.Info("Assistant is not configured; categorization uses keyword rules")
	}

	svcLogger := logger.With("component", "service")
	notifier := service.NewNotificationService(store, hub, m, svcLogger)
	groups := service.NewGroupService(store, notifier, mailer, m, svcLogger)
	authenticator := auth.NewPasswordAuthenticator(store)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: m,
		hub:     hub,
		jwt:     jwtManager,
		svc: api.Services{
			Auth:          service.NewAuthService(store, authenticator, jwtManager, groups, mailer, hub, m, svcLogger),
			Profiles:      service.NewProfileService(store, svcLogger),
			Expenses:      service.NewExpenseService(store, notifier, svcLogger),
			Recurring:     service.NewRecurringService(store, notifier, m, svcLogger),
			Groups:        groups,
			Splits:        service.NewSplitService(store, groups, notifier, svcLogger),
			Invitations:   service.NewInvitationService(store, notifier, svcLogger),
			Notifications: notifier,
			Assistant:     service.NewAssistantService(assistantClient, store, groups, svcLogger),
		},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
