package stripewebhooks

import (
	"context"
	"io"
	"log"
	"net/http"

	"storyforge-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// Translator verifies a Stripe delivery and maps it to local terms.
type Translator interface {
	WebhookConfigured() bool
	TranslateEvent(ctx context.Context, payload []byte, signature string) (billing.InboundEvent, error)
}

type Processor interface {
	Process(ctx context.Context, ev billing.InboundEvent) (string, error)
}

type Handler struct {
	translator Translator
	processor  Processor
}

func NewHandler(translator Translator, processor Processor) *Handler {
	return &Handler{translator: translator, processor: processor}
}

// POST /webhook/stripe
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.translator == nil || !h.translator.WebhookConfigured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	in, err := h.translator.TranslateEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("❌ Stripe webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), in)
	if err != nil {
		// Retryable: Stripe redelivers on 5xx.
		log.Printf("❌ Stripe event %s (%s) failed: %v", in.EventID, in.EventType, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
