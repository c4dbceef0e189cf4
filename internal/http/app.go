// Package http holds the pieces shared by the router and the bounded
// context modules: the Module contract and the assembled App.
package http

import (
	"context"

	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/logger"
)

// RouterConfig is the config slice the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/ready. *pgxpool.Pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api assembles and hands to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health may be nil; readiness then reports the check as disabled.
	Health  HealthChecker
	Modules []Module
}
