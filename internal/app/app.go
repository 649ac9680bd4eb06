package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/craftdesk/craftdesk/internal/config"
	"github.com/craftdesk/craftdesk/internal/httpserver"
	"github.com/craftdesk/craftdesk/internal/platform"
	"github.com/craftdesk/craftdesk/internal/telemetry"
	"github.com/craftdesk/craftdesk/pkg/booking"
	"github.com/craftdesk/craftdesk/pkg/channel"
	"github.com/craftdesk/craftdesk/pkg/contact"
	"github.com/craftdesk/craftdesk/pkg/conversation"
	"github.com/craftdesk/craftdesk/pkg/dispatch"
	"github.com/craftdesk/craftdesk/pkg/form"
	"github.com/craftdesk/craftdesk/pkg/integration"
	"github.com/craftdesk/craftdesk/pkg/reminder"
	"github.com/craftdesk/craftdesk/pkg/staff"
	"github.com/craftdesk/craftdesk/pkg/workspace"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api or worker).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting craftdesk",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	// Database
	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	// Redis
	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	// Metrics
	metricsReg := telemetry.NewMetricsRegistry()

	deps := buildDeps(cfg, logger, db, rdb)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, deps)
	case "worker":
		return runWorker(ctx, deps)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// deps bundles the stores and pipeline every mode shares.
type deps struct {
	workspaces    *workspace.Store
	contacts      *contact.Store
	forms         *form.Store
	integrations  *integration.Store
	conversations *conversation.Store
	bookings      *booking.Store
	users         *staff.Store
	dispatcher    *dispatch.Dispatcher
	sweeper       *reminder.Sweeper
	worker        *reminder.Worker
	logger        *slog.Logger
}

func buildDeps(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) *deps {
	d := &deps{
		workspaces:    workspace.NewStore(db),
		contacts:      contact.NewStore(db),
		forms:         form.NewStore(db),
		integrations:  integration.NewStore(db),
		conversations: conversation.NewStore(db),
		bookings:      booking.NewStore(db),
		users:         staff.NewStore(db),
		logger:        logger,
	}

	d.dispatcher = dispatch.NewDispatcher(dispatch.Config{
		Credentials:   d.integrations,
		Tokens:        d.integrations,
		Activity:      d.conversations,
		Forms:         d.forms,
		Workspaces:    d.workspaces,
		Email:         channel.NewEmailSender(cfg.EmailAPIBaseURL, cfg.ProviderTimeout),
		SMS:           channel.NewSMSSender(cfg.SMSAPIBaseURL, cfg.ProviderTimeout),
		Calendar:      channel.NewCalendarSender(cfg.CalendarAPIBaseURL, cfg.ProviderTimeout),
		Ops:           channel.NewOpsSender(cfg.SlackAPIBaseURL, cfg.ProviderTimeout),
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})

	var guard reminder.Guard
	if cfg.ReminderDedup {
		guard = reminder.NewRedisGuard(rdb)
		logger.Info("reminder dedup enabled")
	}
	d.sweeper = reminder.NewSweeper(d.bookings, d.workspaces, d.dispatcher, guard, logger)
	d.worker = reminder.NewWorker(d.sweeper, cfg.ReminderInterval, logger)

	return d
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, d *deps) error {
	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	// Mount domain handlers.
	integrationHandler := integration.NewHandler(d.integrations, logger)
	srv.APIRouter.Mount("/settings/{workspaceID}/integrations", integrationHandler.Routes())

	bookingHandler := booking.NewHandler(d.bookings, d.workspaces, d.dispatcher, logger)
	srv.APIRouter.Mount("/bookings", bookingHandler.Routes())

	conversationHandler := conversation.NewHandler(d.conversations, d.contacts, d.dispatcher, logger)
	srv.APIRouter.Mount("/inbox", conversationHandler.Routes())

	staffHandler := staff.NewHandler(d.users, d.workspaces, d.dispatcher, logger)
	srv.APIRouter.Mount("/staff", staffHandler.Routes())

	publicHandler := booking.NewPublicHandler(d.bookings, d.workspaces, d.contacts, d.dispatcher, logger)
	srv.APIRouter.Mount("/public", publicHandler.Routes())

	reminderHandler := reminder.NewHandler(d.sweeper, logger)
	srv.APIRouter.Mount("/tasks", reminderHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, d *deps) error {
	err := d.worker.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
