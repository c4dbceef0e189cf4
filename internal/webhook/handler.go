package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repair_audit_backend/platform/httpkit"
)

const errInvalidRequest = "invalid request body"

// Handler handles the GOWA inbound webhook.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleWhatsAppInbound accepts a message and answers before the reply is
// sent. Payloads that are not direct user messages are acknowledged and
// dropped.
// POST /api/v1/webhook/whatsapp
func (h *Handler) HandleWhatsAppInbound(c *gin.Context) {
	var payload gowaPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}

	msg, ok := payload.toInbound()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	h.service.Enqueue(c.Request.Context(), msg)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
