package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"repair_audit_backend/internal/leads/repository"
	"repair_audit_backend/internal/leads/service"
	"repair_audit_backend/internal/leads/transport"
	"repair_audit_backend/platform/httpkit"
	"repair_audit_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the operator lead listings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the listings on an admin-only group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads", h.ListContacts)
	rg.GET("/leads/:id", h.GetContact)
	rg.GET("/questions", h.ListQuestions)
	rg.GET("/diagnostics", h.ListDiagnostics)
}

func (h *Handler) bindList(c *gin.Context) (repository.ListParams, bool) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return repository.ListParams{}, false
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return repository.ListParams{}, false
	}
	return repository.ListParams{Limit: q.Limit, Offset: q.Offset}, true
}

func (h *Handler) ListContacts(c *gin.Context) {
	params, ok := h.bindList(c)
	if !ok {
		return
	}
	items, total, err := h.svc.ListContacts(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.ContactResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toContactResponse(item))
	}
	httpkit.OK(c, transport.ListResponse[transport.ContactResponse]{Items: out, Total: total})
}

func (h *Handler) GetContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	contact, err := h.svc.GetContact(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toContactResponse(contact))
}

func (h *Handler) ListQuestions(c *gin.Context) {
	params, ok := h.bindList(c)
	if !ok {
		return
	}
	items, total, err := h.svc.ListQuestions(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.QuestionResponse, 0, len(items))
	for _, q := range items {
		out = append(out, transport.QuestionResponse{
			ID:        q.ID,
			SessionID: q.SessionID,
			Channel:   q.Channel,
			Question:  q.Question,
			Phone:     q.Phone,
			CreatedAt: q.CreatedAt,
		})
	}
	httpkit.OK(c, transport.ListResponse[transport.QuestionResponse]{Items: out, Total: total})
}

func (h *Handler) ListDiagnostics(c *gin.Context) {
	params, ok := h.bindList(c)
	if !ok {
		return
	}
	items, total, err := h.svc.ListDiagnostics(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.DiagnosticResponse, 0, len(items))
	for _, d := range items {
		out = append(out, transport.DiagnosticResponse{
			ID:              d.ID,
			SessionID:       d.SessionID,
			Channel:         d.Channel,
			Stage:           d.Stage,
			Area:            d.Area,
			Control:         d.Control,
			Fixation:        d.Fixation,
			LossMin:         d.LossMin,
			LossAvg:         d.LossAvg,
			LossMax:         d.LossMax,
			TotalMultiplier: d.TotalMultiplier,
			CreatedAt:       d.CreatedAt,
		})
	}
	httpkit.OK(c, transport.ListResponse[transport.DiagnosticResponse]{Items: out, Total: total})
}

func toContactResponse(c repository.Contact) transport.ContactResponse {
	return transport.ContactResponse{
		ID:         c.ID,
		SessionID:  c.SessionID,
		Channel:    c.Channel,
		Phone:      c.Phone,
		Stage:      c.Stage,
		LossAvg:    c.LossAvg,
		RemindedAt: c.RemindedAt,
		CreatedAt:  c.CreatedAt,
	}
}
