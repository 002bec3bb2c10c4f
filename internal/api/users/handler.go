package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EntitlementSource interface {
	Entitlement(ctx context.Context, userID uint) (billing.Entitlement, error)
}

type Handler struct {
	db     *gorm.DB
	access EntitlementSource
	now    func() time.Time
}

func NewHandler(db *gorm.DB, access EntitlementSource) *Handler {
	return &Handler{db: db, access: access, now: time.Now}
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	ent, err := h.access.Entitlement(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load billing"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:    BuildUserDTO(user),
		Billing: BuildBillingDTO(h.now(), ent),
	})
}
