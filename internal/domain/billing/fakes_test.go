package billing

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memStore struct {
	mu            sync.Mutex
	customers     map[uint]*Customer // by user id
	subscriptions map[string]*Subscription
	nextID        uint

	webhooks map[string]*WebhookEvent

	findErr   error
	upsertErr error
	applyErr  error
	writes    int
}

func newMemStore() *memStore {
	return &memStore{
		customers:     map[uint]*Customer{},
		subscriptions: map[string]*Subscription{},
		webhooks:      map[string]*WebhookEvent{},
	}
}

func (m *memStore) FindSubscriptionForUser(ctx context.Context, userID uint) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	cus, ok := m.customers[userID]
	if !ok {
		return nil, nil
	}
	for _, s := range m.subscriptions {
		if s.CustomerID == cus.ID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertCustomer(ctx context.Context, c *Customer) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	if existing, ok := m.customers[c.UserID]; ok {
		if c.ProviderCustomerID != "" {
			existing.ProviderCustomerID = c.ProviderCustomerID
		}
		if c.Email != "" {
			existing.Email = c.Email
		}
		return existing.ID, nil
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.customers[c.UserID] = &cp
	return c.ID, nil
}

func (m *memStore) UpsertSubscription(ctx context.Context, s *Subscription, customerKey uint) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	s.CustomerID = customerKey
	if existing, ok := m.subscriptions[s.ProviderSubscriptionID]; ok {
		s.ID = existing.ID
		cp := *s
		m.subscriptions[s.ProviderSubscriptionID] = &cp
		return s.ID, nil
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.subscriptions[s.ProviderSubscriptionID] = &cp
	return s.ID, nil
}

func (m *memStore) FindCustomerByUser(ctx context.Context, userID uint) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.customers[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ConsumeCredit(ctx context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[userID]
	if !ok || c.Credits <= 0 {
		return false, nil
	}
	c.Credits--
	return true, nil
}

type memFlags struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (f *memFlags) MarkAttempted(ctx context.Context, subscriptionID string, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[subscriptionID] {
		return false, nil
	}
	f.seen[subscriptionID] = true
	return true, nil
}

type memLedger struct {
	attempts map[string]CheckoutAttempt
	saveErr  error
	saves    int
}

func (l *memLedger) FindCheckoutAttempt(ctx context.Context, requestID string) (*CheckoutAttempt, error) {
	a, ok := l.attempts[requestID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (l *memLedger) SaveCheckoutAttempt(ctx context.Context, attempt *CheckoutAttempt) error {
	l.saves++
	if l.saveErr != nil {
		return l.saveErr
	}
	if l.attempts == nil {
		l.attempts = map[string]CheckoutAttempt{}
	}
	l.attempts[attempt.RequestID] = *attempt
	return nil
}

func (l *memLedger) ListCheckoutAttempts(ctx context.Context, userID uint) ([]CheckoutAttempt, error) {
	var out []CheckoutAttempt
	for _, a := range l.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type gatewayFunc func(ctx context.Context, req CheckoutRequest) (string, error)

func (f gatewayFunc) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	return f(ctx, req)
}

type recordedEvent struct {
	key  string
	body any
}

type memPublisher struct {
	events []recordedEvent
}

func (p *memPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	p.events = append(p.events, recordedEvent{key: routingKey, body: body})
	return nil
}

func (m *memStore) ClaimWebhookEvent(ctx context.Context, ev *WebhookEvent, staleAfter time.Duration) (WebhookClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ev.Provider + "/" + ev.ProviderEventID
	existing, ok := m.webhooks[key]
	if !ok {
		cp := *ev
		existing = &cp
		m.webhooks[key] = existing
	}
	if existing.ProcessedAt != nil {
		return WebhookDone, nil
	}
	now := time.Now()
	if existing.ProcessingStartedAt != nil && existing.ProcessingStartedAt.After(now.Add(-staleAfter)) {
		return WebhookBusy, nil
	}
	existing.ProcessingStartedAt = &now
	return WebhookClaimed, nil
}

func (m *memStore) ReleaseWebhookEvent(ctx context.Context, provider, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.webhooks[provider+"/"+eventID]; ok {
		ev.ProcessingStartedAt = nil
	}
	return nil
}

func (m *memStore) MarkWebhookProcessed(ctx context.Context, provider, eventID, processingError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.webhooks[provider+"/"+eventID]
	if !ok {
		return errors.New("unknown event")
	}
	now := time.Now()
	ev.ProcessedAt = &now
	ev.ProcessingError = processingError
	return nil
}

func (m *memStore) FindCustomerByProviderID(ctx context.Context, providerCustomerID string) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.ProviderCustomerID == providerCustomerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ApplyProviderSubscription(ctx context.Context, s *Subscription, customerKey uint) (uint, error) {
	if m.applyErr != nil {
		return 0, m.applyErr
	}
	return m.UpsertSubscription(ctx, s, customerKey)
}

func (m *memStore) GrantCredits(ctx context.Context, customerKey uint, credits int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, c := range m.customers {
		if c.ID == customerKey {
			c.Credits += credits
			return c.Credits, nil
		}
	}
	return 0, errors.New("customer not found")
}
