package routes

import (
	"net/http"

	adminapi "storyforge-app/internal/api/admin"
	authapi "storyforge-app/internal/api/auth"
	"storyforge-app/internal/api/billing"
	"storyforge-app/internal/api/creemwebhook"
	storiesapi "storyforge-app/internal/api/stories"
	stripewebhooks "storyforge-app/internal/api/stripewebhook"
	"storyforge-app/internal/api/users"
	"storyforge-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers is everything RegisterRoutes mounts. Webhook handlers are
// optional; a nil one leaves its route unregistered.
type Handlers struct {
	JWTSecret string
	Access    middleware.EntitlementChecker

	Auth          *authapi.Handler
	Billing       *billing.Handler
	Users         *users.Handler
	Stories       *storiesapi.Handler
	Admin         *adminapi.Handler
	CreemWebhook  *creemwebhook.Handler
	StripeWebhook *stripewebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Webhooks read the raw body for signature checks; no sanitizing here.
	if h.CreemWebhook != nil {
		r.POST("/webhook/creem", h.CreemWebhook.Receive)
	}
	if h.StripeWebhook != nil {
		r.POST("/webhook/stripe", h.StripeWebhook.StripeWebhook)
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/scenarios", h.Stories.ListScenarios)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.POST("/request-password-reset", h.Auth.RequestPasswordReset)
	public.POST("/reset-password", h.Auth.ResetPassword)

	public.GET("/auth/google", h.Auth.GoogleStart)
	public.GET("/auth/google/callback", h.Auth.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.GET("/billing/entitlement", h.Billing.GetEntitlement)
	auth.POST("/create-checkout-session", middleware.SanitizeAndCleanInputMiddleware(), h.Billing.CreateCheckoutSession)
	auth.GET("/payment/success", h.Billing.PaymentSuccess)
	auth.POST("/payment/sync", h.Billing.SyncPayment)
	auth.POST("/change-password", h.Auth.ChangePassword)

	// Users with a subscription or credits
	storytellers := auth.Group("/")
	storytellers.Use(middleware.RequireStoryAccess(h.Access), middleware.SanitizeAndCleanInputMiddleware())
	storytellers.POST("/generate-story", h.Stories.GenerateStory)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/dashboard", h.Admin.AdminDashboard)
	admin.GET("/users", h.Admin.ListAllUsers)
	admin.GET("/customers", h.Admin.ListCustomers)
	admin.GET("/checkouts", h.Admin.ListCheckouts)
	admin.GET("/payment-provider/health", h.Admin.ProviderHealth)
}
