package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SignatureHeader carries "sha256=<hex hmac of the raw body>".
	SignatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	maxPayloadBytes = 1 << 20
)

// SignatureMiddleware rejects requests whose body is not signed with secret.
// The body is restored for the next handler.
func SignatureMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(SignatureHeader))
		if !strings.HasPrefix(header, signaturePrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}
		received, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		if len(body) > maxPayloadBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}

		if !hmac.Equal(received, Sign(key, body)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// Sign returns the HMAC-SHA256 of body.
func Sign(key, body []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}
