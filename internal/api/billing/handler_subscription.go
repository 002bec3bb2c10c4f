package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /billing/entitlement
func (h *Handler) GetEntitlement(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ent, err := h.access.Entitlement(c.Request.Context(), userID)
	if err != nil {
		storageFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"has_subscription": ent.HasSubscription,
		"credits":          ent.Credits,
		"can_generate":     ent.CanGenerate(),
		"subscription":     ent.Subscription,
	})
}
