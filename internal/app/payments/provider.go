// Package payments picks the checkout gateway named by PAYMENT_PROVIDER.
package payments

import (
	"context"

	"storyforge-app/config"
	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/creem"
	"storyforge-app/internal/infra/stripe"
)

type Provider struct {
	Name    string
	Gateway billing.CheckoutGateway
	Health  billing.HealthChecker
	// Stripe is set only for the Stripe provider; it also translates webhooks.
	Stripe *stripe.Gateway
	// Redirects turns return-redirect parameters into trusted identifiers.
	Redirects RedirectVerifier
	MaskedKey string
}

type RedirectVerifier interface {
	VerifyRedirect(ctx context.Context, userID uint, p creem.RedirectParams) (billing.RedirectIdentifiers, error)
}

// stripeRedirects looks the session up instead of trusting query ids.
type stripeRedirects struct {
	gw *stripe.Gateway
}

func (s stripeRedirects) VerifyRedirect(ctx context.Context, userID uint, p creem.RedirectParams) (billing.RedirectIdentifiers, error) {
	return s.gw.SessionRedirect(ctx, p.SessionID, userID)
}

func FromConfig(cfg *config.Config) Provider {
	if cfg.PaymentProvider == config.ProviderStripe {
		gw := stripe.NewGateway(stripe.Options{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookKey,
			CancelURL:     cfg.SiteURL + "/pricing",
		})
		return Provider{
			Name:      config.ProviderStripe,
			Gateway:   gw,
			Health:    gw,
			Stripe:    gw,
			Redirects: stripeRedirects{gw: gw},
			MaskedKey: config.MaskSecret(cfg.StripeSecretKey),
		}
	}

	client := creem.NewClient(cfg.CreemAPIURL, cfg.CreemAPIKey)
	return Provider{
		Name:      config.ProviderCreem,
		Gateway:   client,
		Health:    client,
		Redirects: creem.RedirectVerifier{APIKey: cfg.CreemAPIKey},
		MaskedKey: config.MaskSecret(cfg.CreemAPIKey),
	}
}

// StripeWebhooks returns the translator for /webhook/stripe, or nil when the
// provider is not Stripe or no signing secret is set.
func (p Provider) StripeWebhooks() *stripe.Gateway {
	if p.Stripe == nil || !p.Stripe.WebhookConfigured() {
		return nil
	}
	return p.Stripe
}

// CheckoutSettings is the builder configuration shared by both providers.
func CheckoutSettings(cfg *config.Config) billing.CheckoutSettings {
	return billing.CheckoutSettings{SuccessURL: cfg.CreemSuccessURL, SiteURL: cfg.SiteURL}
}
