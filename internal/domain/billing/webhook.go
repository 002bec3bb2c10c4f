package billing

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// WebhookClaim is the result of trying to take an event for processing.
type WebhookClaim string

const (
	WebhookClaimed WebhookClaim = "claimed"
	WebhookDone    WebhookClaim = "done"
	WebhookBusy    WebhookClaim = "busy"
)

// webhookClaimTTL bounds how long a crashed worker can hold an event.
const webhookClaimTTL = 5 * time.Minute

// ErrWebhookInProgress is returned while another delivery of the same event
// is being applied; the provider's redelivery finds it done.
var ErrWebhookInProgress = errors.New("billing: webhook event is being processed")

// SubscriptionUpdate is authoritative subscription state from a provider event.
type SubscriptionUpdate struct {
	UserID                 uint
	Email                  string
	Name                   string
	Country                string
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProductID              string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CanceledAt             *time.Time
}

// CreditGrant adds purchased credits to a user's balance.
type CreditGrant struct {
	UserID             uint
	Email              string
	ProviderCustomerID string
	Credits            int
}

// InboundEvent is a verified provider event translated into local terms.
// Subscription and Credits are both nil for events that change nothing.
type InboundEvent struct {
	Provider     string
	EventID      string
	EventType    string
	Payload      []byte
	Subscription *SubscriptionUpdate
	Credits      *CreditGrant
}

type WebhookStore interface {
	// ClaimWebhookEvent stores the event once and atomically takes it for
	// processing. At most one caller gets WebhookClaimed until the event is
	// released or its claim is older than staleAfter.
	ClaimWebhookEvent(ctx context.Context, ev *WebhookEvent, staleAfter time.Duration) (WebhookClaim, error)
	ReleaseWebhookEvent(ctx context.Context, provider, eventID string) error
	MarkWebhookProcessed(ctx context.Context, provider, eventID, processingError string) error
	FindCustomerByProviderID(ctx context.Context, providerCustomerID string) (*Customer, error)
	UpsertCustomer(ctx context.Context, c *Customer) (uint, error)
	ApplyProviderSubscription(ctx context.Context, s *Subscription, customerKey uint) (uint, error)
	GrantCredits(ctx context.Context, customerKey uint, credits int) (int, error)
}

var errUnknownCustomer = errors.New("billing: event does not identify a local user")

type WebhookService struct {
	store  WebhookStore
	events EventPublisher
	now    func() time.Time
}

func NewWebhookService(store WebhookStore, events EventPublisher) *WebhookService {
	return &WebhookService{store: store, events: events, now: time.Now}
}

// Process applies one provider event exactly once. Events that reference an
// unknown user are recorded and acknowledged so the provider stops retrying.
func (w *WebhookService) Process(ctx context.Context, ev InboundEvent) (string, error) {
	claim, err := w.store.ClaimWebhookEvent(ctx, &WebhookEvent{
		Provider:        ev.Provider,
		ProviderEventID: ev.EventID,
		EventType:       ev.EventType,
		PayloadJSON:     string(ev.Payload),
	}, webhookClaimTTL)
	if err != nil {
		return "", &StorageError{Op: "claim_webhook_event", Err: err}
	}
	switch claim {
	case WebhookDone:
		log.Printf("🔁 webhook %s/%s already processed", ev.Provider, ev.EventID)
		return WebhookDuplicate, nil
	case WebhookBusy:
		log.Printf("⏳ webhook %s/%s is being processed by another delivery", ev.Provider, ev.EventID)
		return "", ErrWebhookInProgress
	}

	outcome, procErr := w.apply(ctx, ev)
	if errors.Is(procErr, errUnknownCustomer) {
		log.Printf("⚠️ webhook %s/%s (%s): %v", ev.Provider, ev.EventID, ev.EventType, procErr)
		if err := w.store.MarkWebhookProcessed(ctx, ev.Provider, ev.EventID, procErr.Error()); err != nil {
			return "", &StorageError{Op: "mark_webhook_processed", Err: err}
		}
		return WebhookIgnored, nil
	}
	if procErr != nil {
		// Left unprocessed so the provider's redelivery runs it again.
		if err := w.store.ReleaseWebhookEvent(ctx, ev.Provider, ev.EventID); err != nil {
			log.Printf("⚠️ failed to release webhook %s/%s: %v", ev.Provider, ev.EventID, err)
		}
		return "", procErr
	}

	if err := w.store.MarkWebhookProcessed(ctx, ev.Provider, ev.EventID, ""); err != nil {
		return "", &StorageError{Op: "mark_webhook_processed", Err: err}
	}
	log.Printf("✅ webhook %s/%s (%s) %s", ev.Provider, ev.EventID, ev.EventType, outcome)
	return outcome, nil
}

func (w *WebhookService) apply(ctx context.Context, ev InboundEvent) (string, error) {
	if ev.Subscription == nil && ev.Credits == nil {
		return WebhookIgnored, nil
	}

	if su := ev.Subscription; su != nil {
		customerKey, userID, err := w.resolveCustomer(ctx, su.UserID, su.ProviderCustomerID, su.Email, su.Name, su.Country)
		if err != nil {
			return "", err
		}
		status := NormalizeStatus(su.Status)
		sub := &Subscription{
			ProviderSubscriptionID: strings.TrimSpace(su.ProviderSubscriptionID),
			ProductID:              su.ProductID,
			Status:                 status,
			CurrentPeriodStart:     su.CurrentPeriodStart,
			CurrentPeriodEnd:       su.CurrentPeriodEnd,
			CanceledAt:             su.CanceledAt,
			Source:                 SourceWebhook,
		}
		if _, err := w.store.ApplyProviderSubscription(ctx, sub, customerKey); err != nil {
			return "", &StorageError{Op: "apply_subscription", Err: err}
		}
		publish(ctx, w.events, EventSubscriptionSynced, SubscriptionSyncedEvent{
			UserID:                 userID,
			ProviderSubscriptionID: sub.ProviderSubscriptionID,
			ProductID:              sub.ProductID,
			Status:                 status,
			Source:                 SourceWebhook,
			SyncedAt:               w.now(),
		})
	}

	if cg := ev.Credits; cg != nil && cg.Credits > 0 {
		customerKey, userID, err := w.resolveCustomer(ctx, cg.UserID, cg.ProviderCustomerID, cg.Email, "", "")
		if err != nil {
			return "", err
		}
		balance, err := w.store.GrantCredits(ctx, customerKey, cg.Credits)
		if err != nil {
			return "", &StorageError{Op: "grant_credits", Err: err}
		}
		log.Printf("💰 granted %d credits to user %d (balance %d)", cg.Credits, userID, balance)
		publish(ctx, w.events, EventCreditsGranted, CreditsGrantedEvent{
			UserID:    userID,
			Credits:   cg.Credits,
			Balance:   balance,
			GrantedAt: w.now(),
		})
	}

	return WebhookProcessed, nil
}

// resolveCustomer finds the local customer row for an event, creating it when
// the event carries a user id.
func (w *WebhookService) resolveCustomer(ctx context.Context, userID uint, providerCustomerID, email, name, country string) (uint, uint, error) {
	if userID == 0 && providerCustomerID != "" {
		cus, err := w.store.FindCustomerByProviderID(ctx, providerCustomerID)
		if err != nil {
			return 0, 0, &StorageError{Op: "find_customer", Err: err}
		}
		if cus != nil {
			userID = cus.UserID
			if email == "" {
				email = cus.Email
			}
		}
	}
	if userID == 0 {
		return 0, 0, errUnknownCustomer
	}
	if name == "" {
		name = emailLocalPart(email)
	}

	key, err := w.store.UpsertCustomer(ctx, &Customer{
		UserID:             userID,
		ProviderCustomerID: providerCustomerID,
		Email:              email,
		Name:               name,
		Country:            country,
	})
	if err != nil {
		return 0, 0, &StorageError{Op: "upsert_customer", Err: err}
	}
	return key, userID, nil
}
