package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repair_audit_backend/internal/diagnostic"
	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/repository"
	"repair_audit_backend/internal/email"
	"repair_audit_backend/internal/events"
	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/internal/http/router"
	"repair_audit_backend/internal/leads"
	leadservice "repair_audit_backend/internal/leads/service"
	"repair_audit_backend/internal/notification"
	"repair_audit_backend/internal/scheduler"
	"repair_audit_backend/internal/webhook"
	"repair_audit_backend/internal/whatsapp"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/db"
	"repair_audit_backend/platform/logger"
	"repair_audit_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionJanitorInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	policies, err := loadPolicies(cfg)
	if err != nil {
		log.Error("failed to load stage policy table", "error", err)
		panic("failed to load stage policy table: " + err.Error())
	}

	store, closeStore := initSessionStore(cfg, log)
	if closeStore != nil {
		defer closeStore()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, reminderScheduler, cfg.GetCallbackReminderDelay(), val, log)

	whatsappClient := whatsapp.NewClient(cfg, log)

	notificationModule := notification.New(whatsappSender(whatsappClient), email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.SSE().Close()

	diagnosticModule, err := diagnostic.NewModule(policies, store, initPersonalizer(cfg, policies, log), eventBus, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize diagnostic module", "error", err)
		panic("failed to initialize diagnostic module: " + err.Error())
	}
	go diagnosticModule.RunJanitor(ctx, sessionJanitorInterval, cfg.GetSessionTTL())

	webhookModule := webhook.NewModule(diagnosticModule.Service(), messageSender(whatsappClient), cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			diagnosticModule,
			leadsModule,
			notificationModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// streams never finish on their own; close them before draining requests
		notificationModule.SSE().Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		webhookModule.Service().Wait()
		eventBus.Wait()
		log.Info("server stopped")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func loadPolicies(cfg config.PolicyConfig) (*domain.PolicyTable, error) {
	if path := cfg.GetPolicyFile(); path != "" {
		return domain.LoadPolicyTable(path)
	}
	return domain.DefaultPolicyTable()
}

func initSessionStore(cfg config.SessionConfig, log *logger.Logger) (repository.SessionStore, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; diagnostic sessions are kept in memory")
		return repository.NewMemoryStore(), nil
	}

	rdb, err := repository.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize redis session store, falling back to memory", "error", err)
		return repository.NewMemoryStore(), nil
	}

	return repository.NewRedisStore(rdb, cfg.GetSessionTTL()), func() {
		_ = rdb.Close()
	}
}

func initPersonalizer(cfg config.AIConfig, policies *domain.PolicyTable, log *logger.Logger) agent.Personalizer {
	static := agent.NewStaticPersonalizer(policies)
	if !cfg.IsAIPersonalizationEnabled() {
		log.Info("AI personalization disabled; using policy texts")
		return static
	}

	ai, err := agent.NewMoonshotPersonalizer(cfg.GetMoonshotAPIKey(), cfg.GetMoonshotModel(), static)
	if err != nil {
		log.Error("failed to initialize AI personalizer, using policy texts", "error", err)
		return static
	}
	return agent.NewFallback(ai, static, log)
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (leadservice.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; callback reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

// whatsappSender and messageSender keep a nil client from becoming a
// non-nil interface.
func whatsappSender(c *whatsapp.Client) notification.WhatsAppSender {
	if c == nil {
		return nil
	}
	return c
}

func messageSender(c *whatsapp.Client) webhook.MessageSender {
	if c == nil {
		return nil
	}
	return c
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
