package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BillingStore interface {
	ListCustomers(ctx context.Context, limit int) ([]billing.Customer, error)
	ListRecentCheckoutAttempts(ctx context.Context, status string, limit int) ([]billing.CheckoutAttempt, error)
}

type Handler struct {
	db        *gorm.DB
	store     BillingStore
	health    billing.HealthChecker
	maskedKey string
	now       func() time.Time
}

// NewHandler takes the payment API key already masked for display.
func NewHandler(db *gorm.DB, store BillingStore, health billing.HealthChecker, maskedKey string) *Handler {
	return &Handler{db: db, store: store, health: health, maskedKey: maskedKey, now: time.Now}
}

type AdminUser struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}

type AdminStats struct {
	TotalUsers          int64 `json:"total_users"`
	TotalCustomers      int64 `json:"total_customers"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	PendingSyncs        int64 `json:"pending_syncs"`
	OutstandingCredits  int64 `json:"outstanding_credits"`
	FailedCheckouts30d  int64 `json:"failed_checkouts_30d"`
}

func limitParam(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats AdminStats

	err := db.Model(&users.User{}).Count(&stats.TotalUsers).Error
	if err == nil {
		err = db.Model(&billing.Customer{}).Count(&stats.TotalCustomers).Error
	}
	if err == nil {
		err = db.Model(&billing.Subscription{}).
			Where("status IN ?", []string{billing.StatusActive, billing.StatusTrialing, billing.StatusPastDue}).
			Count(&stats.ActiveSubscriptions).Error
	}
	if err == nil {
		err = db.Model(&billing.Subscription{}).Where("source = ?", billing.SourceRedirect).Count(&stats.PendingSyncs).Error
	}
	if err == nil {
		err = db.Model(&billing.Customer{}).Select("COALESCE(SUM(credits), 0)").Scan(&stats.OutstandingCredits).Error
	}
	if err == nil {
		err = db.Model(&billing.CheckoutAttempt{}).
			Where("status = ? AND created_at >= ?", billing.AttemptFailed, h.now().AddDate(0, 0, -30)).
			Count(&stats.FailedCheckouts30d).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListAllUsers(c *gin.Context) {
	var all []users.User
	if err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Limit(limitParam(c, 100, 500)).
		Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(all))
	for _, u := range all {
		out = append(out, AdminUser{
			ID:           u.ID,
			Email:        u.Email,
			DisplayName:  u.DisplayName,
			Role:         u.Role,
			AuthProvider: u.AuthProvider,
			CreatedAt:    u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GET /admin/customers
func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context(), limitParam(c, 100, 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load customers"})
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GET /admin/checkouts?status=failed
func (h *Handler) ListCheckouts(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", billing.AttemptPending, billing.AttemptCreated, billing.AttemptFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	attempts, err := h.store.ListRecentCheckoutAttempts(c.Request.Context(), status, limitParam(c, 50, 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checkout attempts"})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// GET /admin/payment-provider/health
func (h *Handler) ProviderHealth(c *gin.Context) {
	res := h.health.Ping(c.Request.Context())
	status := http.StatusOK
	if !res.Reachable {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"provider":  res.Provider,
		"url":       res.URL,
		"status":    res.Status,
		"reachable": res.Reachable,
		"detail":    res.Detail,
		"api_key":   h.maskedKey,
	})
}
