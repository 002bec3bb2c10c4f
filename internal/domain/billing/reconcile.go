package billing

import (
	"context"
	"log"
	"strings"
	"time"
)

type SyncState string

const (
	SyncUnknown       SyncState = "unknown"
	SyncChecked       SyncState = "checked"
	SyncAlreadySynced SyncState = "already_synced"
	SyncSynced        SyncState = "synced"
	SyncFailed        SyncState = "sync_failed"
	// SyncSkipped: the automatic attempt for this subscription id already ran.
	SyncSkipped SyncState = "skipped"
)

// SynthesizedPeriod is the placeholder billing period written before the
// provider's webhook delivers the real one.
const SynthesizedPeriod = 30 * 24 * time.Hour

// Session is the authenticated caller.
type Session struct {
	UserID uint
	Email  string
}

// RedirectIdentifiers are the ids the provider appends to the return redirect.
type RedirectIdentifiers struct {
	SubscriptionID string
	CustomerID     string
	ProductID      string
}

func (ids RedirectIdentifiers) Complete() bool {
	return strings.TrimSpace(ids.SubscriptionID) != "" &&
		strings.TrimSpace(ids.CustomerID) != "" &&
		strings.TrimSpace(ids.ProductID) != ""
}

// SubscriptionStore is the local persistence contract the reconciler needs.
// Both upserts must converge to one row when called concurrently.
type SubscriptionStore interface {
	FindSubscriptionForUser(ctx context.Context, userID uint) (*Subscription, error)
	UpsertCustomer(ctx context.Context, c *Customer) (uint, error)
	UpsertSubscription(ctx context.Context, s *Subscription, customerKey uint) (uint, error)
}

// AttemptFlags persists the one-shot automatic reconciliation flag.
// MarkAttempted reports true only for the first caller per subscription id.
type AttemptFlags interface {
	MarkAttempted(ctx context.Context, subscriptionID string, userID uint) (bool, error)
}

type SyncResult struct {
	State           SyncState     `json:"state"`
	Message         string        `json:"message"`
	CustomerKey     uint          `json:"customer_key,omitempty"`
	SubscriptionKey uint          `json:"subscription_key,omitempty"`
	Subscription    *Subscription `json:"subscription,omitempty"`
}

type Reconciler struct {
	store  SubscriptionStore
	flags  AttemptFlags
	events EventPublisher
	now    func() time.Time
}

func NewReconciler(store SubscriptionStore, flags AttemptFlags, events EventPublisher) *Reconciler {
	return &Reconciler{store: store, flags: flags, events: events, now: time.Now}
}

// AutoReconcile is the page-load path. It sets the persisted flag before
// reconciling so reloads never trigger a second automatic write; a second
// call only reads.
func (r *Reconciler) AutoReconcile(ctx context.Context, sess *Session, ids RedirectIdentifiers) (SyncResult, error) {
	if err := precheck(sess, ids); err != nil {
		return SyncResult{State: SyncUnknown, Message: err.Error()}, err
	}

	first, err := r.flags.MarkAttempted(ctx, strings.TrimSpace(ids.SubscriptionID), sess.UserID)
	if err != nil {
		serr := &StorageError{Op: "mark_sync_attempted", Err: err}
		return SyncResult{State: SyncFailed, Message: serr.Error()}, serr
	}
	if first {
		return r.Reconcile(ctx, sess, ids)
	}

	existing, err := r.store.FindSubscriptionForUser(ctx, sess.UserID)
	if err != nil {
		serr := &StorageError{Op: "find_subscription", Err: err}
		return SyncResult{State: SyncFailed, Message: serr.Error()}, serr
	}
	if existing != nil {
		return SyncResult{State: SyncAlreadySynced, Message: "subscription already exists", Subscription: existing}, nil
	}
	return SyncResult{State: SyncSkipped, Message: "automatic sync already attempted, retry manually"}, nil
}

// Reconcile materializes a subscription from redirect identifiers when no
// subscription exists for the user yet. It never retries.
func (r *Reconciler) Reconcile(ctx context.Context, sess *Session, ids RedirectIdentifiers) (SyncResult, error) {
	if err := precheck(sess, ids); err != nil {
		return SyncResult{State: SyncUnknown, Message: err.Error()}, err
	}

	existing, err := r.store.FindSubscriptionForUser(ctx, sess.UserID)
	if err != nil {
		serr := &StorageError{Op: "find_subscription", Err: err}
		return SyncResult{State: SyncFailed, Message: serr.Error()}, serr
	}
	if existing != nil {
		return SyncResult{State: SyncAlreadySynced, Message: "subscription already exists", Subscription: existing}, nil
	}

	log.Printf("🔄 Syncing subscription from redirect: user=%d subscription=%s customer=%s product=%s",
		sess.UserID, ids.SubscriptionID, ids.CustomerID, ids.ProductID)

	now := r.now()
	customerKey, err := r.store.UpsertCustomer(ctx, &Customer{
		UserID:             sess.UserID,
		ProviderCustomerID: strings.TrimSpace(ids.CustomerID),
		Email:              sess.Email,
		Name:               emailLocalPart(sess.Email),
	})
	if err != nil {
		serr := &StorageError{Op: "upsert_customer", Err: err}
		log.Printf("❌ sync failed: %v", serr)
		return SyncResult{State: SyncFailed, Message: serr.Error()}, serr
	}

	start := now
	end := now.Add(SynthesizedPeriod)
	sub := &Subscription{
		ProviderSubscriptionID: strings.TrimSpace(ids.SubscriptionID),
		ProductID:              strings.TrimSpace(ids.ProductID),
		Status:                 StatusActive,
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
		Source:                 SourceRedirect,
	}
	subKey, err := r.store.UpsertSubscription(ctx, sub, customerKey)
	if err != nil {
		serr := &StorageError{Op: "upsert_subscription", Err: err}
		log.Printf("❌ sync failed: %v", serr)
		return SyncResult{State: SyncFailed, Message: serr.Error(), CustomerKey: customerKey}, serr
	}

	log.Printf("✅ Subscription synced: customer=%d subscription=%d", customerKey, subKey)
	publish(ctx, r.events, EventSubscriptionSynced, SubscriptionSyncedEvent{
		UserID:                 sess.UserID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		ProductID:              sub.ProductID,
		Status:                 sub.Status,
		Source:                 SourceRedirect,
		SyncedAt:               now,
	})

	return SyncResult{
		State:           SyncSynced,
		Message:         "subscription synced",
		CustomerKey:     customerKey,
		SubscriptionKey: subKey,
		Subscription:    sub,
	}, nil
}

func precheck(sess *Session, ids RedirectIdentifiers) error {
	if sess == nil || sess.UserID == 0 {
		return ErrNotAuthenticated
	}
	if !ids.Complete() {
		return ErrMissingIdentifiers
	}
	return nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
