// Package whatsapp sends messages through a GOWA (go-whatsapp-web-multidevice)
// gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/logger"
	"repair_audit_backend/platform/phone"
)

// ErrNotConfigured is returned by a nil Client.
var ErrNotConfigured = errors.New("whatsapp gateway is not configured")

const (
	sendAttempts    = 3
	defaultBackoff  = 500 * time.Millisecond
	errorBodyLimit  = 4096
	sendMessagePath = "/send/message"
	deviceIDHeader  = "X-Device-Id"
	requestTimeout  = 10 * time.Second
)

// GatewayError is a non-2xx answer from GOWA.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("whatsapp gateway returned %d: %s", e.Status, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *GatewayError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Client talks to the GOWA REST API. A nil *Client is valid and reports
// ErrNotConfigured so callers can treat WhatsApp as optional.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	backoff  time.Duration
	http     *http.Client
	log      *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	} `json:"results"`
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   authorization(cfg.GetWhatsAppKey()),
		deviceID: cfg.GetWhatsAppDeviceID(),
		backoff:  defaultBackoff,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// SendMessage delivers a text message to phoneNumber. Throttling and 5xx
// answers are retried with a growing pause; other failures are returned
// as they are.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return ErrNotConfigured
	}

	recipient := phone.Digits(phone.NormalizeE164(phoneNumber))
	if recipient == "" {
		return errors.New("whatsapp recipient is empty")
	}

	body, err := json.Marshal(sendRequest{Phone: recipient, Message: message})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		messageID, err := c.post(ctx, body)
		if err == nil {
			c.log.Info("whatsapp sent via gowa", slog.String("phone", recipient), slog.String("messageId", messageID))
			return nil
		}
		lastErr = err

		var gwErr *GatewayError
		if errors.As(err, &gwErr) && !gwErr.Temporary() {
			return err
		}
		if attempt == sendAttempts {
			break
		}

		c.log.Warn("whatsapp send failed, retrying", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendMessagePath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	if c.deviceID != "" {
		req.Header.Set(deviceIDHeader, c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &GatewayError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var out sendResponse
	if err := json.Unmarshal(data, &out); err != nil {
		// older gateways answer with an empty body
		return "", nil
	}
	return out.Results.MessageID, nil
}

// authorization turns "user:pass" into a Basic header value. Values that
// already carry a scheme are used as is.
func authorization(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	lower := strings.ToLower(apiKey)
	if strings.HasPrefix(lower, "basic ") || strings.HasPrefix(lower, "bearer ") {
		return apiKey
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey))
}
