package creemwebhook

import (
	"context"
	"io"
	"log"
	"net/http"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/creem"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 65536

type Processor interface {
	Process(ctx context.Context, ev billing.InboundEvent) (string, error)
}

type Handler struct {
	processor Processor
	secret    string
}

func NewHandler(processor Processor, secret string) *Handler {
	return &Handler{processor: processor, secret: secret}
}

// POST /webhook/creem
func (h *Handler) Receive(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CREEM_WEBHOOK_SECRET not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	if err := creem.VerifyWebhookSignature(payload, c.GetHeader(creem.SignatureHeader), h.secret); err != nil {
		log.Printf("❌ Creem signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	event, err := creem.ParseEvent(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	in, err := Translate(event, payload)
	if err != nil {
		log.Printf("❌ Creem event %s (%s) unreadable: %v", event.ID, event.EventType, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event object"})
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), in)
	if err != nil {
		// 500 makes Creem redeliver the event.
		log.Printf("❌ Creem event %s failed: %v", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome})
}
