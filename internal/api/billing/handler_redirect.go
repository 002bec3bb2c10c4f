package billing

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/creem"

	"github.com/gin-gonic/gin"
)

// GET /payment/success runs the one-shot automatic sync for a return redirect.
func (h *Handler) PaymentSuccess(c *gin.Context) {
	h.sync(c, creem.RedirectParamsFromQuery(c.Request.URL.Query()), true)
}

// POST /payment/sync is the explicit retry after a failed or skipped automatic sync.
func (h *Handler) SyncPayment(c *gin.Context) {
	var params creem.RedirectParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.sync(c, params, false)
}

func (h *Handler) sync(c *gin.Context, params creem.RedirectParams, auto bool) {
	sess := sessionFrom(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": billing.ErrNotAuthenticated.Error(), "state": billing.SyncUnknown})
		return
	}

	if h.redirects == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Redirect sync is not available for this payment provider"})
		return
	}

	ids, err := h.redirects.VerifyRedirect(c.Request.Context(), sess.UserID, params)
	if err != nil {
		if details, ok := billing.AsCheckoutError(err); ok {
			log.Printf("❌ could not verify return redirect for user %d: %v", sess.UserID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not verify return redirect", "report": billing.BuildReport(details)})
			return
		}
		log.Printf("⚠️ rejected return redirect for user %d: %v", sess.UserID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return redirect"})
		return
	}

	// Credit purchases carry no subscription; webhooks grant the credits.
	if strings.TrimSpace(ids.SubscriptionID) == "" {
		c.JSON(http.StatusOK, gin.H{
			"state":      billing.SyncChecked,
			"message":    "no subscription to sync",
			"request_id": params.RequestID,
		})
		return
	}

	var res billing.SyncResult
	if auto {
		res, err = h.reconciler.AutoReconcile(c.Request.Context(), sess, ids)
	} else {
		res, err = h.reconciler.Reconcile(c.Request.Context(), sess, ids)
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, billing.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "state": res.State})
	case errors.Is(err, billing.ErrMissingIdentifiers):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "state": res.State})
	default:
		log.Printf("❌ subscription sync failed for user %d: %v", sess.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Subscription sync failed", "state": res.State, "details": res.Message})
	}
}
