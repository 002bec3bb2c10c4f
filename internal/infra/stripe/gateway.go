// Package stripe adapts Stripe Checkout to the billing gateway contracts.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/balance"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/subscription"

	"storyforge-app/internal/domain/billing"
)

const checkoutSessionsPath = "/v1/checkout/sessions"

// Gateway creates Stripe Checkout sessions. Product ids are Stripe price ids.
type Gateway struct {
	backend stripeapi.Backend
	key     string
	baseURL string

	cancelURL     string
	webhookSecret string

	now func() time.Time
}

type Options struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL overrides the Stripe API host; empty means api.stripe.com.
	BaseURL   string
	CancelURL string
}

func NewGateway(opts Options) *Gateway {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = stripeapi.APIURL
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		URL:               stripeapi.String(baseURL),
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	})
	return &Gateway{
		backend:       backend,
		key:           opts.SecretKey,
		baseURL:       baseURL,
		cancelURL:     opts.CancelURL,
		webhookSecret: opts.WebhookSecret,
		now:           time.Now,
	}
}

// CreateCheckoutSession opens a hosted session for req. The request id is
// sent as the idempotency key, so a sanctioned retry reuses the session.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	mode := stripeapi.CheckoutSessionModeSubscription
	if req.Metadata.ProductType == billing.ProductCredits {
		mode = stripeapi.CheckoutSessionModePayment
	}

	metadata := map[string]string{
		"user_id":      req.Metadata.UserID,
		"product_type": string(req.Metadata.ProductType),
		"credits":      strconv.Itoa(req.Metadata.Credits),
		"request_id":   req.RequestID,
	}

	params := &stripeapi.CheckoutSessionParams{
		SuccessURL: stripeapi.String(withSessionID(req.SuccessURL)),
		Mode:       stripeapi.String(string(mode)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{Price: stripeapi.String(req.ProductID), Quantity: stripeapi.Int64(1)},
		},
		ClientReferenceID: stripeapi.String(req.Metadata.UserID),
	}
	params.Context = ctx
	if g.cancelURL != "" {
		params.CancelURL = stripeapi.String(g.cancelURL)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripeapi.String(req.CustomerEmail)
	}
	if req.DiscountCode != "" {
		params.Discounts = []*stripeapi.CheckoutSessionDiscountParams{
			{Coupon: stripeapi.String(req.DiscountCode)},
		}
	}
	if mode == stripeapi.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripeapi.CheckoutSessionSubscriptionDataParams{Metadata: metadata}
	} else {
		params.PaymentIntentData = &stripeapi.CheckoutSessionPaymentIntentDataParams{Metadata: metadata}
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(req.RequestID)

	client := checkoutsession.Client{B: g.backend, Key: g.key}
	s, err := client.New(params)
	if err != nil {
		return "", g.toCheckoutError(err, req.RequestID)
	}
	if s == nil || strings.TrimSpace(s.URL) == "" {
		var id any
		if s != nil {
			id = map[string]any{"id": s.ID}
		}
		return "", &billing.MalformedResponseError{Details: billing.CheckoutError{
			Status:     http.StatusOK,
			StatusText: http.StatusText(http.StatusOK),
			URL:        g.baseURL + checkoutSessionsPath,
			Timestamp:  billing.Timestamp(g.now()),
			RequestID:  req.RequestID,
			Response:   id,
			Message:    "response did not contain url",
			ErrorCode:  billing.CodeMalformedResponse,
		}}
	}
	return s.URL, nil
}

func (g *Gateway) toCheckoutError(err error, requestID string) error {
	details := billing.CheckoutError{
		URL:       g.baseURL + checkoutSessionsPath,
		Timestamp: billing.Timestamp(g.now()),
		RequestID: requestID,
		Message:   err.Error(),
	}

	var se *stripeapi.Error
	if errors.As(err, &se) && se.HTTPStatusCode > 0 {
		details.Status = se.HTTPStatusCode
		details.StatusText = http.StatusText(se.HTTPStatusCode)
		details.ErrorCode = string(se.Code)
		if details.ErrorCode == "" {
			details.ErrorCode = "HTTP_" + strconv.Itoa(se.HTTPStatusCode)
		}
		if se.Msg != "" {
			details.Message = se.Msg
		}
		details.Response = map[string]any{
			"type":    string(se.Type),
			"code":    string(se.Code),
			"message": se.Msg,
		}
		return &billing.GatewayError{Details: details}
	}

	details.StatusText = "Network Error"
	details.ErrorCode = billing.CodeNetworkError
	return &billing.NetworkError{Details: details, Err: err}
}

// Ping reads the account balance, which needs nothing but a valid key.
func (g *Gateway) Ping(ctx context.Context) billing.ProviderHealth {
	res := billing.ProviderHealth{Provider: "stripe", URL: g.baseURL + "/v1/balance"}

	params := &stripeapi.BalanceParams{}
	params.Context = ctx
	client := balance.Client{B: g.backend, Key: g.key}
	if _, err := client.Get(params); err != nil {
		res.Detail = err.Error()
		var se *stripeapi.Error
		if errors.As(err, &se) {
			res.Status = se.HTTPStatusCode
			res.Reachable = se.HTTPStatusCode > 0 && se.HTTPStatusCode < 500
		}
		return res
	}
	res.Status = http.StatusOK
	res.Reachable = true
	return res
}

func (g *Gateway) fetchSubscription(ctx context.Context, id string) (*stripeapi.Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx
	client := subscription.Client{B: g.backend, Key: g.key}
	return client.Get(id, params)
}

func withSessionID(successURL string) string {
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id={CHECKOUT_SESSION_ID}"
}
