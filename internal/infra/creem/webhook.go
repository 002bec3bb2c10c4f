package creem

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const SignatureHeader = "creem-signature"

const (
	EventCheckoutCompleted    = "checkout.completed"
	EventSubscriptionActive   = "subscription.active"
	EventSubscriptionPaid     = "subscription.paid"
	EventSubscriptionCanceled = "subscription.canceled"
	EventSubscriptionExpired  = "subscription.expired"
	EventSubscriptionUpdate   = "subscription.update"
	EventSubscriptionTrialing = "subscription.trialing"
	EventSubscriptionPaused   = "subscription.paused"
	EventRefundCreated        = "refund.created"
)

const subscriptionEventTypePrefix = "subscription."

var (
	ErrMissingSignature = errors.New("creem: missing signature")
	ErrInvalidSignature = errors.New("creem: invalid signature")
)

// VerifyWebhookSignature checks the hex HMAC-SHA256 of payload under secret.
func VerifyWebhookSignature(payload []byte, signature, secret string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// SignWebhook returns the signature Creem would send for payload.
func SignWebhook(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	CreatedAt int64           `json:"created_at"`
	Object    json.RawMessage `json:"object"`
}

func (e Event) IsSubscriptionEvent() bool {
	return strings.HasPrefix(e.EventType, subscriptionEventTypePrefix)
}

// ParseEvent decodes a webhook body after its signature has been verified.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("creem: decode event: %w", err)
	}
	if ev.ID == "" || ev.EventType == "" {
		return ev, errors.New("creem: event without id or eventType")
	}
	return ev, nil
}

// Ref is an object reference that the API sends either expanded or as a bare id.
type Ref struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

type Metadata struct {
	UserID      string `json:"user_id"`
	ProductType string `json:"product_type"`
	Credits     int    `json:"credits"`
}

// UnmarshalJSON accepts credits and user_id as either numbers or strings.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Metadata{
		UserID:      scalarString(raw["user_id"]),
		ProductType: scalarString(raw["product_type"]),
	}
	switch v := raw["credits"].(type) {
	case float64:
		m.Credits = int(v)
	case string:
		_, _ = fmt.Sscanf(v, "%d", &m.Credits)
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}

type SubscriptionObject struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	Product            Ref        `json:"product"`
	Customer           Ref        `json:"customer"`
	CurrentPeriodStart time.Time  `json:"current_period_start_date"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end_date"`
	CanceledAt         *time.Time `json:"canceled_at"`
	Metadata           Metadata   `json:"metadata"`
}

type CheckoutObject struct {
	ID           string              `json:"id"`
	RequestID    string              `json:"request_id"`
	Status       string              `json:"status"`
	Order        Ref                 `json:"order"`
	Product      Ref                 `json:"product"`
	Customer     Ref                 `json:"customer"`
	Subscription *SubscriptionObject `json:"-"`
	Metadata     Metadata            `json:"metadata"`
}

// UnmarshalJSON handles "subscription" being an expanded object or an id.
func (c *CheckoutObject) UnmarshalJSON(b []byte) error {
	type plain CheckoutObject
	var aux struct {
		plain
		Subscription json.RawMessage `json:"subscription"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = CheckoutObject(aux.plain)

	sub := strings.TrimSpace(string(aux.Subscription))
	switch {
	case sub == "" || sub == "null":
	case strings.HasPrefix(sub, `"`):
		var id string
		if err := json.Unmarshal(aux.Subscription, &id); err != nil {
			return err
		}
		c.Subscription = &SubscriptionObject{ID: id}
	default:
		var so SubscriptionObject
		if err := json.Unmarshal(aux.Subscription, &so); err != nil {
			return err
		}
		c.Subscription = &so
	}
	return nil
}

func (e Event) Checkout() (*CheckoutObject, error) {
	var c CheckoutObject
	if err := json.Unmarshal(e.Object, &c); err != nil {
		return nil, fmt.Errorf("creem: decode checkout: %w", err)
	}
	return &c, nil
}

func (e Event) Subscription() (*SubscriptionObject, error) {
	var s SubscriptionObject
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return nil, fmt.Errorf("creem: decode subscription: %w", err)
	}
	if s.ID == "" {
		return nil, errors.New("creem: subscription without id")
	}
	return &s, nil
}
