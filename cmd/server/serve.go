package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/api"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/config"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/middleware"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/service"
)

const (
	shutdownTimeout   = 10 * time.Second
	tokenPurgePeriod  = time.Hour
	rateLimitCleanup  = 5 * time.Minute
	serverReadTimeout = 15 * time.Second
	// Long enough for an assistant round trip.
	serverWriteTimeout = 45 * time.Second
	serverIdleTimeout  = 120 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime hub and recurring expense scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			static, _ := cmd.Flags().GetString(flagStatic)
			return serve(cfg, static)
		},
	}
	cmd.Flags().Int(flagPort, 8000, "HTTP listen port (env: PORT)")
	cmd.Flags().String(flagStatic, config.GetEnv("STATIC_PATH", ""), "directory of a built front end to serve (env: STATIC_PATH)")
	return cmd
}

func serve(cfg config.Config, staticPath string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if staticPath != "" {
		if staticPath, err = filepath.Abs(staticPath); err != nil {
			return err
		}
		if _, err := os.Stat(staticPath); err != nil {
			return err
		}
		logger.Info("Serving static files", "path", staticPath)
	}

	a.metrics.RegisterGauge("websocket_clients", "Open realtime WebSocket connections.", func() float64 {
		return float64(a.hub.ClientCount())
	})

	clientIP, err := middleware.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	limiter := middleware.NewRateLimiter()
	go limiter.RunCleanup(ctx, rateLimitCleanup)
	go purgeRevokedTokens(ctx, a)

	scheduler := service.NewScheduler(a.svc.Recurring, cfg.RecurringInterval, logger.With("component", "scheduler"))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := api.New(a.svc, api.Options{
		JWT:         a.jwt,
		Sessions:    a.store,
		ClientIP:    clientIP,
		Hub:         a.hub,
		Metrics:     a.metrics,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   staticPath,
		Logger:      logger.With("component", "http"),
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
		// Open WebSockets end when the server stops.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Addr(), "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// purgeRevokedTokens drops expired revoked tokens and reset codes.
func purgeRevokedTokens(ctx context.Context, a *app) {
	ticker := time.NewTicker(tokenPurgePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.PurgeExpiredTokens(ctx, time.Now().Unix())
			if err != nil {
				a.logger.Error("Failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("Purged revoked tokens", "count", n)
			}
		}
	}
}
