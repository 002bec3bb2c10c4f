package billing

import (
	"errors"
	"net/http"
	"strings"

	"storyforge-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

type checkoutBody struct {
	ProductID     string `json:"product_id" binding:"required"`
	ProductType   string `json:"product_type"`
	CreditsAmount int    `json:"credits_amount" binding:"gte=0,lte=1000"`
	DiscountCode  string `json:"discount_code"`
	RetryOf       string `json:"retry_of"`
}

// POST /create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	sess := sessionFrom(c)
	if sess == nil || strings.TrimSpace(sess.Email) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body checkoutBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.ProductID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid product_id"})
		return
	}

	productType := billing.ProductSubscription
	if strings.TrimSpace(body.ProductType) != "" {
		pt, err := billing.ParseProductType(body.ProductType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_type"})
			return
		}
		productType = pt
	}
	if productType == billing.ProductCredits && body.CreditsAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "credits_amount is required for credit purchases"})
		return
	}

	res, err := h.checkout.Start(c.Request.Context(), billing.CheckoutInput{
		ProductID:     body.ProductID,
		Email:         sess.Email,
		UserID:        sess.UserID,
		ProductType:   productType,
		CreditsAmount: body.CreditsAmount,
		DiscountCode:  body.DiscountCode,
	}, body.RetryOf)

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"checkout_url": res.CheckoutURL, "request_id": res.RequestID})
	case errors.Is(err, billing.ErrRetryNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case isStorageError(err):
		storageFailure(c, err)
	default:
		report, ok := billing.ReportFromError(err)
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Failed to create checkout session",
			"request_id": res.RequestID,
			"report":     report,
		})
	}
}
