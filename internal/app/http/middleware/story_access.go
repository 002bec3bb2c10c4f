package middleware

import (
	"context"
	"log"
	"net/http"

	"storyforge-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

type EntitlementChecker interface {
	Entitlement(ctx context.Context, userID uint) (billing.Entitlement, error)
}

// RequireStoryAccess lets a request through when the user has an entitling
// subscription or at least one credit.
func RequireStoryAccess(access EntitlementChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ent, err := access.Entitlement(c.Request.Context(), userID)
		if err != nil {
			log.Printf("❌ entitlement lookup failed for user %d: %v", userID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
			return
		}

		if !ent.CanGenerate() {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "An active subscription or credits are required",
				"credits": ent.Credits,
			})
			return
		}

		c.Set("entitlement", ent)
		c.Next()
	}
}
