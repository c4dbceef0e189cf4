package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/platform/logger"
)

const testSecret = "test-secret"

type routerConfigStub struct{}

func (routerConfigStub) GetHTTPAddr() string        { return ":0" }
func (routerConfigStub) GetCORSAllowAll() bool      { return false }
func (routerConfigStub) GetCORSOrigins() []string   { return []string{"https://example.com"} }
func (routerConfigStub) GetCORSAllowCreds() bool    { return true }
func (routerConfigStub) GetJWTAccessSecret() string { return testSecret }

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

type adminModule struct{}

func (adminModule) Name() string { return "admin-ping" }

func (adminModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  routerConfigStub{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{adminModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "operator-1",
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(engine *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	rec := do(newEngine(nil), "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(newEngine(nil), "/api/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")

	rec = do(newEngine(pingStub{err: errors.New("down")}), "/api/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	engine := newEngine(pingStub{})

	assert.Equal(t, http.StatusUnauthorized, do(engine, "/api/v1/admin/ping", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(engine, "/api/v1/admin/ping", "garbage").Code)
	assert.Equal(t, http.StatusForbidden, do(engine, "/api/v1/admin/ping", token(t, "viewer")).Code)
	assert.Equal(t, http.StatusOK, do(engine, "/api/v1/admin/ping", token(t, "admin")).Code)
}
