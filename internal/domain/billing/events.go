package billing

import (
	"context"
	"log"
	"time"
)

const (
	EventCheckoutCreated    = "billing.checkout.created"
	EventSubscriptionSynced = "billing.subscription.synced"
	EventCreditsGranted     = "billing.credits.granted"
)

// EventPublisher delivers domain events. A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

type CheckoutCreatedEvent struct {
	RequestID   string      `json:"request_id"`
	UserID      uint        `json:"user_id"`
	ProductID   string      `json:"product_id"`
	ProductType ProductType `json:"product_type"`
	Provider    string      `json:"provider"`
	CreatedAt   time.Time   `json:"created_at"`
}

type SubscriptionSyncedEvent struct {
	UserID                 uint      `json:"user_id"`
	ProviderSubscriptionID string    `json:"provider_subscription_id"`
	ProductID              string    `json:"product_id"`
	Status                 string    `json:"status"`
	Source                 string    `json:"source"`
	SyncedAt               time.Time `json:"synced_at"`
}

type CreditsGrantedEvent struct {
	UserID    uint      `json:"user_id"`
	Credits   int       `json:"credits"`
	Balance   int       `json:"balance"`
	GrantedAt time.Time `json:"granted_at"`
}

func publish(ctx context.Context, p EventPublisher, routingKey string, body any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, body); err != nil {
		log.Printf("⚠️ failed to publish %s: %v", routingKey, err)
	}
}
