package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/repository"
	"repair_audit_backend/internal/diagnostic/service"
	"repair_audit_backend/internal/diagnostic/transport"
	"repair_audit_backend/platform/events"
	"repair_audit_backend/platform/logger"
	"repair_audit_backend/platform/validator"
)

type funnelStub struct{}

func (funnelStub) GetExpertPhone() string    { return "+79615223190" }
func (funnelStub) GetExpertTelegram() string { return "@systemkontrolrem" }
func (funnelStub) GetPriceNormal() int       { return 9900 }
func (funnelStub) GetPriceDiscount() int     { return 4900 }
func (funnelStub) GetPriceVIP() int          { return 29900 }
func (funnelStub) GetPaymentURL() string     { return "https://t.me/systemkontrolrem" }
func (funnelStub) GetEstimateBot() string    { return "@repair_estimate_bot" }
func (funnelStub) GetAIBot() string          { return "@repair_ai_bot" }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	table, err := domain.DefaultPolicyTable()
	require.NoError(t, err)
	val := validator.New()
	require.NoError(t, transport.RegisterValidations(val))

	log := logger.Discard()
	svc := service.New(domain.NewMachine(table), repository.NewMemoryStore(), agent.NewStaticPersonalizer(table), events.NewInMemoryBus(log), funnelStub{}, log)

	engine := gin.New()
	New(svc, val, "@systemkontrolrem").RegisterRoutes(engine.Group("/api/v1/diagnostic"))
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSessionLifecycle(t *testing.T) {
	engine := newTestEngine(t)

	rec := doJSON(engine, http.MethodPost, "/api/v1/diagnostic/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[service.Reply](t, rec)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, domain.StateAwaitingStage, created.State)
	require.NotNil(t, created.Prompt)

	eventsPath := "/api/v1/diagnostic/sessions/" + created.SessionID + "/events"
	rec = doJSON(engine, http.MethodPost, eventsPath, transport.SessionEventRequest{Type: "answer", Text: created.Prompt.Options[0]})
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[service.Reply](t, rec)
	assert.Equal(t, domain.StateAwaitingArea, reply.State)
	assert.Contains(t, reply.Options, domain.BackLabel)

	rec = doJSON(engine, http.MethodPost, eventsPath, transport.SessionEventRequest{Type: "back"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StateAwaitingStage, decode[service.Reply](t, rec).State)

	rec = doJSON(engine, http.MethodGet, "/api/v1/diagnostic/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[transport.SessionResponse](t, rec)
	assert.Equal(t, created.SessionID, snap.ID)
	assert.Equal(t, "web", snap.Channel)
	assert.Equal(t, domain.StateAwaitingStage, snap.State)
	assert.Equal(t, "not_started", snap.Answers[domain.DimensionStage].Code)
	assert.Empty(t, snap.History)
	assert.False(t, snap.HasPhone)
}

func TestSessionRoutesRejectForeignIDs(t *testing.T) {
	engine := newTestEngine(t)

	rec := doJSON(engine, http.MethodGet, "/api/v1/diagnostic/sessions/whatsapp:79615223190", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(engine, http.MethodPost, "/api/v1/diagnostic/sessions/nope/events", transport.SessionEventRequest{Type: "start"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(engine, http.MethodGet, "/api/v1/diagnostic/sessions/6f1c1f3e-3c55-4a39-8f34-8c2f7d0b9a11", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventValidation(t *testing.T) {
	engine := newTestEngine(t)
	path := "/api/v1/diagnostic/sessions/6f1c1f3e-3c55-4a39-8f34-8c2f7d0b9a11/events"

	rec := doJSON(engine, http.MethodPost, path, transport.SessionEventRequest{Type: "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")

	rec = doJSON(engine, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateEndpoint(t *testing.T) {
	engine := newTestEngine(t)

	rec := doJSON(engine, http.MethodPost, "/api/v1/diagnostic/estimate", transport.EstimateRequest{
		Stage: "rough", Area: "xlarge", Control: "nobody", Fixation: "none",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[service.EstimateResult](t, rec)
	assert.Equal(t, 3.98, result.Loss.Multipliers.Total)

	rec = doJSON(engine, http.MethodPost, "/api/v1/diagnostic/estimate", transport.EstimateRequest{
		Stage: "not_started", Area: "medium", Control: "foreman",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[service.EstimateResult](t, rec)
	assert.Equal(t, int64(175000), result.Loss.Avg)

	rec = doJSON(engine, http.MethodPost, "/api/v1/diagnostic/estimate", transport.EstimateRequest{Stage: "moon", Area: "medium"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, map[string]interface{}{"stage": "dimension_code"}, body["details"])

	rec = doJSON(engine, http.MethodPost, "/api/v1/diagnostic/estimate", transport.EstimateRequest{Stage: "rough", Area: "medium"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStagesAndQR(t *testing.T) {
	engine := newTestEngine(t)

	rec := doJSON(engine, http.MethodGet, "/api/v1/diagnostic/stages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stages := decode[struct {
		Items []service.StageView `json:"items"`
	}](t, rec)
	assert.Len(t, stages.Items, 5)

	rec = doJSON(engine, http.MethodGet, "/api/v1/diagnostic/expert/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = doJSON(engine, http.MethodGet, "/api/v1/diagnostic/expert/qr?size=10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
