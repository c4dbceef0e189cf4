package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repair_audit_backend/internal/email"
	"repair_audit_backend/internal/events"
	leadrepo "repair_audit_backend/internal/leads/repository"
	leadservice "repair_audit_backend/internal/leads/service"
	"repair_audit_backend/internal/notification"
	"repair_audit_backend/internal/scheduler"
	"repair_audit_backend/internal/whatsapp"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/db"
	"repair_audit_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	var alerts notification.WhatsAppSender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		alerts = client
	} else {
		log.Warn("WHATSAPP_URL not configured; callback reminders are only logged")
	}

	// The worker publishes reminders on its own bus; only the admin alert
	// handlers are needed here.
	notificationModule := notification.New(alerts, email.NewSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// Reminders are claimed directly; no scheduling happens from this process.
	contacts := leadservice.New(leadrepo.New(pool), nil, cfg.GetCallbackReminderDelay(), log)

	worker, err := scheduler.NewWorker(cfg, contacts, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
