package http

import (
	"github.com/gin-gonic/gin"

	"repair_audit_backend/platform/httpkit"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module gets to mount routes on.
type RouterContext struct {
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Admin is /api/v1/admin, already behind the operator JWT and role check.
	Admin *gin.RouterGroup
	// PublicRateLimiter throttles anonymous routes per client IP.
	PublicRateLimiter *httpkit.IPRateLimiter
}
