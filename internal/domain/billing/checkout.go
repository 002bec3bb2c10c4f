package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ProductType string

const (
	ProductSubscription ProductType = "subscription"
	ProductCredits      ProductType = "credits"
)

func ParseProductType(s string) (ProductType, error) {
	switch pt := ProductType(strings.ToLower(strings.TrimSpace(s))); pt {
	case ProductSubscription, ProductCredits:
		return pt, nil
	default:
		return "", fmt.Errorf("billing: unknown product type %q", s)
	}
}

// CheckoutSettings carries the deployment settings the builder needs.
type CheckoutSettings struct {
	SuccessURL string
	SiteURL    string
}

// ResolveSuccessURL prefers the configured success URL and falls back to the
// site's own success page, so the field is never empty.
func (s CheckoutSettings) ResolveSuccessURL() string {
	if u := strings.TrimSpace(s.SuccessURL); u != "" {
		return u
	}
	return strings.TrimRight(strings.TrimSpace(s.SiteURL), "/") + "/payment/success"
}

type CheckoutInput struct {
	ProductID     string
	Email         string
	UserID        uint
	ProductType   ProductType
	CreditsAmount int
	DiscountCode  string

	// RequestID, when set, replaces the generated id. Only the checkout
	// service sets it, for a sanctioned retry of an earlier attempt.
	RequestID string
}

type CheckoutMetadata struct {
	UserID      string
	ProductType ProductType
	Credits     int
}

type CheckoutRequest struct {
	ProductID     string
	RequestID     string
	CustomerEmail string
	SuccessURL    string
	Metadata      CheckoutMetadata
	DiscountCode  string
}

// CheckoutGateway creates a provider-hosted checkout session and returns its URL.
// Implementations never retry internally and return DetailedError values.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

func NewRequestID(userID uint, now time.Time) string {
	return strconv.FormatUint(uint64(userID), 10) + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// BuildCheckoutRequest assembles the provider payload for one attempt.
func BuildCheckoutRequest(settings CheckoutSettings, in CheckoutInput, now time.Time) CheckoutRequest {
	requestID := strings.TrimSpace(in.RequestID)
	if requestID == "" {
		requestID = NewRequestID(in.UserID, now)
	}

	credits := in.CreditsAmount
	if credits < 0 {
		credits = 0
	}

	return CheckoutRequest{
		ProductID:     strings.TrimSpace(in.ProductID),
		RequestID:     requestID,
		CustomerEmail: strings.TrimSpace(in.Email),
		SuccessURL:    settings.ResolveSuccessURL(),
		Metadata: CheckoutMetadata{
			UserID:      strconv.FormatUint(uint64(in.UserID), 10),
			ProductType: in.ProductType,
			Credits:     credits,
		},
		DiscountCode: strings.TrimSpace(in.DiscountCode),
	}
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp renders t the way CheckoutError records carry it (ISO 8601, UTC, ms).
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ProviderHealth is the result of a reachability probe against the payment API.
type ProviderHealth struct {
	Provider  string `json:"provider"`
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Reachable bool   `json:"reachable"`
	Detail    string `json:"detail,omitempty"`
}

type HealthChecker interface {
	Ping(ctx context.Context) ProviderHealth
}
