package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /payments lists the caller's checkout attempts, newest first.
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	attempts, err := h.checkout.History(c.Request.Context(), userID)
	if err != nil {
		storageFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}
