package creem

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"

	"storyforge-app/internal/domain/billing"
)

// RedirectParams are the query parameters appended to the success URL.
// Creem signs its ids; Stripe sends only SessionID.
type RedirectParams struct {
	SessionID      string `form:"session_id" json:"session_id"`
	RequestID      string `form:"request_id" json:"request_id"`
	CheckoutID     string `form:"checkout_id" json:"checkout_id"`
	OrderID        string `form:"order_id" json:"order_id"`
	CustomerID     string `form:"customer_id" json:"customer_id"`
	SubscriptionID string `form:"subscription_id" json:"subscription_id"`
	ProductID      string `form:"product_id" json:"product_id"`
	Signature      string `form:"signature" json:"signature"`
}

func RedirectParamsFromQuery(q url.Values) RedirectParams {
	return RedirectParams{
		SessionID:      q.Get("session_id"),
		RequestID:      q.Get("request_id"),
		CheckoutID:     q.Get("checkout_id"),
		OrderID:        q.Get("order_id"),
		CustomerID:     q.Get("customer_id"),
		SubscriptionID: q.Get("subscription_id"),
		ProductID:      q.Get("product_id"),
		Signature:      q.Get("signature"),
	}
}

// SignRedirect computes the redirect signature: sha256 of the present
// parameters joined as k=v with "|", salted with the API key.
func SignRedirect(p RedirectParams, apiKey string) string {
	fields := []struct{ k, v string }{
		{"request_id", p.RequestID},
		{"checkout_id", p.CheckoutID},
		{"order_id", p.OrderID},
		{"customer_id", p.CustomerID},
		{"subscription_id", p.SubscriptionID},
		{"product_id", p.ProductID},
	}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if f.v != "" {
			parts = append(parts, f.k+"="+f.v)
		}
	}
	parts = append(parts, "salt="+apiKey)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func VerifyRedirect(p RedirectParams, apiKey string) error {
	if strings.TrimSpace(p.Signature) == "" {
		return ErrMissingSignature
	}
	expected := SignRedirect(p, apiKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(p.Signature))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// RedirectVerifier trusts only the ids covered by a valid signature.
type RedirectVerifier struct {
	APIKey string
}

func (v RedirectVerifier) VerifyRedirect(ctx context.Context, userID uint, p RedirectParams) (billing.RedirectIdentifiers, error) {
	if err := VerifyRedirect(p, v.APIKey); err != nil {
		return billing.RedirectIdentifiers{}, err
	}
	return billing.RedirectIdentifiers{
		SubscriptionID: p.SubscriptionID,
		CustomerID:     p.CustomerID,
		ProductID:      p.ProductID,
	}, nil
}
