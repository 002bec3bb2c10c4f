package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"storyforge-app/internal/domain/billing"
)

const Provider = "stripe"

// WebhookConfigured reports whether a signing secret was supplied.
func (g *Gateway) WebhookConfigured() bool {
	return g.webhookSecret != ""
}

// TranslateEvent verifies a webhook delivery and maps it to local terms.
// checkout.session.completed fetches the subscription for its period bounds.
func (g *Gateway) TranslateEvent(ctx context.Context, payload []byte, signature string) (billing.InboundEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return billing.InboundEvent{}, fmt.Errorf("stripe: signature verification failed: %w", err)
	}

	in := billing.InboundEvent{
		Provider:  Provider,
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   payload,
	}

	switch in.EventType {
	case "checkout.session.completed":
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return in, fmt.Errorf("stripe: parse session: %w", err)
		}
		return g.fromCheckoutSession(ctx, in, &session)

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeapi.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return in, fmt.Errorf("stripe: parse subscription: %w", err)
		}
		in.Subscription = subscriptionUpdate(&sub, userIDFromMetadata(sub.Metadata))
		return in, nil
	}

	return in, nil
}

func (g *Gateway) fromCheckoutSession(ctx context.Context, in billing.InboundEvent, s *stripeapi.CheckoutSession) (billing.InboundEvent, error) {
	userID := userIDFromMetadata(s.Metadata)
	if userID == 0 {
		userID = parseUserID(s.ClientReferenceID)
	}

	customerID := ""
	if s.Customer != nil {
		customerID = s.Customer.ID
	}
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}

	if s.Metadata["product_type"] == string(billing.ProductCredits) {
		credits, _ := strconv.Atoi(s.Metadata["credits"])
		in.Credits = &billing.CreditGrant{
			UserID:             userID,
			Email:              email,
			ProviderCustomerID: customerID,
			Credits:            credits,
		}
		return in, nil
	}

	if s.Subscription == nil || s.Subscription.ID == "" {
		return in, nil
	}
	sub, err := g.fetchSubscription(ctx, s.Subscription.ID)
	if err != nil {
		return in, fmt.Errorf("stripe: fetch subscription %s: %w", s.Subscription.ID, err)
	}
	up := subscriptionUpdate(sub, userID)
	up.Email = email
	if up.ProviderCustomerID == "" {
		up.ProviderCustomerID = customerID
	}
	in.Subscription = up
	return in, nil
}

func subscriptionUpdate(sub *stripeapi.Subscription, userID uint) *billing.SubscriptionUpdate {
	up := &billing.SubscriptionUpdate{
		UserID:                 userID,
		ProviderSubscriptionID: sub.ID,
		Status:                 string(sub.Status),
		CurrentPeriodStart:     unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:       unixTime(sub.CurrentPeriodEnd),
		CanceledAt:             unixTime(sub.CanceledAt),
	}
	if sub.Customer != nil {
		up.ProviderCustomerID = sub.Customer.ID
		up.Email = sub.Customer.Email
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		up.ProductID = sub.Items.Data[0].Price.ID
	}
	return up
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	return parseUserID(md["user_id"])
}

func parseUserID(s string) uint {
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
