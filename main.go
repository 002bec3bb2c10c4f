package main

import (
	"context"
	"log"
	"time"

	"storyforge-app/config"
	"storyforge-app/database"
	adminapi "storyforge-app/internal/api/admin"
	authapi "storyforge-app/internal/api/auth"
	billingapi "storyforge-app/internal/api/billing"
	"storyforge-app/internal/api/creemwebhook"
	storiesapi "storyforge-app/internal/api/stories"
	stripewebhooks "storyforge-app/internal/api/stripewebhook"
	usersapi "storyforge-app/internal/api/users"
	routes "storyforge-app/internal/app/http"
	"storyforge-app/internal/app/payments"
	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/stories"
	"storyforge-app/internal/infra/deepseek"
	"storyforge-app/internal/infra/rabbitmq"
	"storyforge-app/internal/infra/redisflags"
	"storyforge-app/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadDotEnv()
	cfg, err := config.Resolve()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	db, err := database.Init(cfg.DBURL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	st := store.New(db)

	var flags billing.AttemptFlags = st
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := redisflags.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Printf("⚠️ Redis unavailable, keeping sync flags in the database: %v", err)
		} else {
			defer client.Close()
			flags = redisflags.New(client, "")
		}
	}

	var events billing.EventPublisher = rabbitmq.NoopProducer{}
	if cfg.AMQPURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("⚠️ RabbitMQ unavailable, billing events disabled: %v", err)
		} else {
			defer producer.Close()
			events = producer
		}
	}

	provider := payments.FromConfig(cfg)
	log.Printf("💳 Payment provider %s (key %s)", provider.Name, provider.MaskedKey)

	checkout := billing.NewCheckoutService(provider.Gateway, st, events, payments.CheckoutSettings(cfg), provider.Name)
	reconciler := billing.NewReconciler(st, flags, events)
	access := billing.NewAccessService(st, st)
	webhooks := billing.NewWebhookService(st, events)

	var completer stories.Completer
	if cfg.DeepSeekAPIKey != "" {
		completer = deepseek.NewClient(cfg.DeepSeekAPIURL, cfg.DeepSeekAPIKey)
	} else {
		log.Println("⚠️ DEEPSEEK_API_KEY not set, story generation disabled")
	}

	var mailer authapi.Mailer = authapi.LogMailer{}
	if cfg.SMTPEnabled() {
		mailer = authapi.SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom, Password: cfg.SMTPPassword}
	}
	authOpts := authapi.Options{JWTSecret: cfg.JWTSecret, SiteURL: cfg.SiteURL, Mailer: mailer}
	if cfg.GoogleEnabled() {
		authOpts.Google = authapi.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		authOpts.GoogleRedirect = cfg.GoogleFrontendRedirect
	}

	handlers := routes.Handlers{
		JWTSecret: cfg.JWTSecret,
		Access:    access,
		Auth:      authapi.NewHandler(db, authOpts),
		Billing:   billingapi.NewHandler(checkout, reconciler, access, provider.Redirects),
		Users:     usersapi.NewHandler(db, access),
		Stories:   storiesapi.NewHandler(stories.NewGenerator(completer, access)),
		Admin:     adminapi.NewHandler(db, st, provider.Health, provider.MaskedKey),
	}
	if cfg.CreemWebhookSecret != "" {
		handlers.CreemWebhook = creemwebhook.NewHandler(webhooks, cfg.CreemWebhookSecret)
	}
	if translator := provider.StripeWebhooks(); translator != nil {
		handlers.StripeWebhook = stripewebhooks.NewHandler(translator, webhooks)
	}

	r := gin.Default()

	origin := cfg.CORSOrigin
	if origin == "" {
		origin = cfg.SiteURL
	}
	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, handlers)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("❌ server stopped: %v", err)
	}
}
