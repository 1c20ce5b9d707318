package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/zapagenda/zapagenda/internal/api/router"
	"github.com/zapagenda/zapagenda/internal/booking"
	"github.com/zapagenda/zapagenda/internal/bot"
	appconfig "github.com/zapagenda/zapagenda/internal/config"
	"github.com/zapagenda/zapagenda/internal/http/handlers"
	httpmiddleware "github.com/zapagenda/zapagenda/internal/http/middleware"
	"github.com/zapagenda/zapagenda/internal/messaging"
	"github.com/zapagenda/zapagenda/internal/notify"
	"github.com/zapagenda/zapagenda/internal/observability/metrics"
	"github.com/zapagenda/zapagenda/internal/schedule"
	"github.com/zapagenda/zapagenda/internal/store"
	"github.com/zapagenda/zapagenda/pkg/logging"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting zapagenda API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	// The admin read views run on database/sql.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Error("invalid business timezone", "timezone", cfg.BusinessTimezone, "error", err)
		os.Exit(1)
	}

	users := store.NewUserRepository(pool)
	services := store.NewServiceRepository(pool)
	appointments := store.NewAppointmentRepository(pool)
	admins := store.NewAdminAccountRepository(pool)

	if err := handlers.BootstrapAdminAccount(ctx, admins, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	botMetrics := metrics.NewBotMetrics(registry)

	var notifier booking.Notifier
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
		notifier = notify.NewService(sender, cfg.NotifyGroupNumber, cfg.AdminPhoneNumbers, logger)
	} else {
		logger.Warn("twilio credentials not configured, booking notifications disabled")
	}

	calendar := schedule.NewCalendar(appointments, loc, cfg.BusinessOpenHour, cfg.BusinessCloseHour)
	committer := booking.NewCommitter(appointments, calendar, notifier, logger)
	engine := bot.NewEngine(bot.Config{
		Users:        users,
		Services:     services,
		Appointments: appointments,
		Calendar:     calendar,
		Committer:    committer,
		Location:     loc,
		AdminPhones:  cfg.AdminPhoneNumbers,
		IdleTimeout:  cfg.SessionTimeout,
		Logger:       logger,
		Metrics:      botMetrics,
	})

	var limiter *httpmiddleware.RedisRateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = rdb.Close() }()
		limiter = httpmiddleware.NewRedisRateLimiter(rdb, cfg.WebhookRateLimit, time.Minute, logger)
	}

	r := router.New(&router.Config{
		Logger:            logger,
		BotHandler:        handlers.NewBotWebhookHandler(engine, cfg.TwilioWebhookSecret, logger, botMetrics),
		AuthHandler:       handlers.NewAuthHandler(admins, cfg.AdminJWTSecret, logger),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(sqlDB, loc, logger),
		AdminAuthSecret:   cfg.AdminJWTSecret,
		WebhookLimiter:    limiter,
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
