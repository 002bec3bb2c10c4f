package billing

import (
	"context"
	"errors"
	"log"
	"net/http"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/creem"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	checkout   *billing.CheckoutService
	reconciler *billing.Reconciler
	access     *billing.AccessService
	// redirects is nil when no provider can vouch for return redirects;
	// redirect sync is then refused.
	redirects RedirectVerifier
}

// RedirectVerifier checks a return redirect for the signed-in user and yields
// the identifiers that may be reconciled.
type RedirectVerifier interface {
	VerifyRedirect(ctx context.Context, userID uint, p creem.RedirectParams) (billing.RedirectIdentifiers, error)
}

func NewHandler(checkout *billing.CheckoutService, reconciler *billing.Reconciler, access *billing.AccessService, redirects RedirectVerifier) *Handler {
	return &Handler{
		checkout:   checkout,
		reconciler: reconciler,
		access:     access,
		redirects:  redirects,
	}
}

func sessionFrom(c *gin.Context) *billing.Session {
	userID := c.GetUint("user_id")
	if userID == 0 {
		return nil
	}
	return &billing.Session{UserID: userID, Email: c.GetString("email")}
}

func storageFailure(c *gin.Context, err error) {
	log.Printf("❌ billing storage error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error", "details": err.Error()})
}

func isStorageError(err error) bool {
	var serr *billing.StorageError
	return errors.As(err, &serr)
}
