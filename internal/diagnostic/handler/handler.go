package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/service"
	"repair_audit_backend/internal/diagnostic/transport"
	"repair_audit_backend/platform/httpkit"
	"repair_audit_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidSession   = "invalid session id"

	defaultChannel = "web"
	defaultQRSize  = 256
)

// Handler serves the public diagnostic API.
type Handler struct {
	svc            *service.Service
	val            *validator.Validator
	expertTelegram string
}

func New(svc *service.Service, val *validator.Validator, expertTelegram string) *Handler {
	return &Handler{svc: svc, val: val, expertTelegram: expertTelegram}
}

// RegisterRoutes mounts the diagnostic routes on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)
	rg.GET("/sessions/:id", h.GetSession)
	rg.POST("/sessions/:id/events", h.PostEvent)
	rg.POST("/estimate", h.Estimate)
	rg.GET("/stages", h.ListStages)
	rg.GET("/expert/qr", h.ExpertQR)
}

// bind decodes a JSON body into req and validates it.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return false
	}
	return true
}

// sessionID accepts only server-issued ids, so chat sessions keyed by a
// phone number cannot be reached over HTTP.
func sessionID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSession, nil)
		return "", false
	}
	return id.String(), true
}

// CreateSession issues a session id and starts the questionnaire.
// POST /api/v1/diagnostic/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req transport.CreateSessionRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	channel := req.Channel
	if channel == "" {
		channel = defaultChannel
	}

	reply, err := h.svc.Handle(c.Request.Context(), uuid.NewString(), service.InboundEvent{
		Type:    service.EventStart,
		Channel: channel,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, reply)
}

// PostEvent applies one user action and returns the bot's reply.
// POST /api/v1/diagnostic/sessions/:id/events
func (h *Handler) PostEvent(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req transport.SessionEventRequest
	if !h.bind(c, &req) {
		return
	}

	reply, err := h.svc.Handle(c.Request.Context(), id, service.InboundEvent{
		Type:    service.EventType(req.Type),
		Channel: defaultChannel,
		Text:    req.Text,
		Data:    req.Data,
		Phone:   req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, reply)
}

// GetSession returns the stored session.
// GET /api/v1/diagnostic/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	session, err := h.svc.Snapshot(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	options, err := h.svc.Options(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSessionResponse(session, options))
}

// Estimate runs the calculator on answer codes without a session.
// POST /api/v1/diagnostic/estimate
func (h *Handler) Estimate(c *gin.Context) {
	var req transport.EstimateRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Estimate(c.Request.Context(), service.EstimateInput{
		Stage:    domain.Stage(req.Stage),
		Area:     domain.Area(req.Area),
		Control:  domain.Control(req.Control),
		Fixation: domain.Fixation(req.Fixation),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListStages returns the stage policies.
// GET /api/v1/diagnostic/stages
func (h *Handler) ListStages(c *gin.Context) {
	stages, err := h.svc.Stages()
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": stages})
}

// ExpertQR renders the expert's Telegram link as a PNG QR code.
// GET /api/v1/diagnostic/expert/qr
func (h *Handler) ExpertQR(c *gin.Context) {
	var q transport.QRQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}
	size := q.Size
	if size == 0 {
		size = defaultQRSize
	}

	png, err := qrcode.Encode(service.TelegramURL(h.expertTelegram), qrcode.Medium, size)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

func toSessionResponse(s *domain.Session, options []string) transport.SessionResponse {
	answers := make(map[domain.Dimension]transport.AnswerResponse, 4)
	if s.Stage != nil {
		answers[domain.DimensionStage] = transport.AnswerResponse{Code: string(s.Stage.Code), Label: s.Stage.Label}
	}
	if s.Area != nil {
		answers[domain.DimensionArea] = transport.AnswerResponse{Code: string(s.Area.Code), Label: s.Area.Label}
	}
	if s.Control != nil {
		answers[domain.DimensionControl] = transport.AnswerResponse{Code: string(s.Control.Code), Label: s.Control.Label}
	}
	if s.Fixation != nil {
		answers[domain.DimensionFixation] = transport.AnswerResponse{Code: string(s.Fixation.Code), Label: s.Fixation.Label}
	}

	history := make([]transport.HistoryResponse, 0, len(s.History))
	for _, e := range s.History {
		history = append(history, transport.HistoryResponse{Question: e.Question, Answer: e.Answer, Timestamp: e.Timestamp})
	}

	return transport.SessionResponse{
		ID:          s.ID,
		Channel:     s.Channel,
		State:       s.State,
		Answers:     answers,
		Result:      s.Result,
		History:     history,
		Options:     options,
		HasPhone:    s.Phone != "",
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
	}
}
