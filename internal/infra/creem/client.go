// Package creem talks to the Creem payments API: hosted checkout sessions,
// webhook verification and return-redirect signatures.
package creem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storyforge-app/internal/domain/billing"
)

// Client is a Creem API client. It implements billing.CheckoutGateway.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	now func() time.Time
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type checkoutCustomer struct {
	Email string `json:"email"`
}

type checkoutMetadata struct {
	UserID      string `json:"user_id"`
	ProductType string `json:"product_type"`
	Credits     int    `json:"credits"`
}

type checkoutPayload struct {
	ProductID    string           `json:"product_id"`
	RequestID    string           `json:"request_id"`
	Customer     checkoutCustomer `json:"customer"`
	SuccessURL   string           `json:"success_url"`
	Metadata     checkoutMetadata `json:"metadata"`
	DiscountCode string           `json:"discount_code,omitempty"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

func (c *Client) checkoutsURL() string {
	return c.BaseURL + "/v1/checkouts"
}

// CreateCheckoutSession sends exactly one request for req and returns the
// hosted checkout URL. Every failure is a billing.DetailedError.
func (c *Client) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	endpoint := c.checkoutsURL()

	body, err := json.Marshal(checkoutPayload{
		ProductID:  req.ProductID,
		RequestID:  req.RequestID,
		Customer:   checkoutCustomer{Email: req.CustomerEmail},
		SuccessURL: req.SuccessURL,
		Metadata: checkoutMetadata{
			UserID:      req.Metadata.UserID,
			ProductType: string(req.Metadata.ProductType),
			Credits:     req.Metadata.Credits,
		},
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		return "", c.networkError(endpoint, req.RequestID, billing.CodeRequestBuild, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", c.networkError(endpoint, req.RequestID, billing.CodeRequestBuild, err)
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", c.networkError(endpoint, req.RequestID, billing.CodeNetworkError, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.networkError(endpoint, req.RequestID, billing.CodeNetworkError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &billing.GatewayError{Details: c.gatewayDetails(resp, endpoint, req.RequestID, raw)}
	}

	var out checkoutResponse
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.CheckoutURL) == "" {
		msg := "response did not contain checkout_url"
		if err != nil {
			msg = "response is not valid JSON: " + err.Error()
		}
		return "", &billing.MalformedResponseError{Details: billing.CheckoutError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			URL:        endpoint,
			Timestamp:  billing.Timestamp(c.now()),
			RequestID:  req.RequestID,
			Response:   decodeBody(raw),
			Message:    msg,
			ErrorCode:  billing.CodeMalformedResponse,
		}}
	}

	return out.CheckoutURL, nil
}

func (c *Client) networkError(endpoint, requestID, code string, err error) error {
	return &billing.NetworkError{
		Details: billing.CheckoutError{
			Status:     0,
			StatusText: "Network Error",
			URL:        endpoint,
			Timestamp:  billing.Timestamp(c.now()),
			RequestID:  requestID,
			Message:    err.Error(),
			ErrorCode:  code,
		},
		Err: err,
	}
}

func (c *Client) gatewayDetails(resp *http.Response, endpoint, requestID string, raw []byte) billing.CheckoutError {
	text := strings.TrimSpace(string(raw))
	parsed := decodeBody(raw)

	message := ""
	code := ""
	if m, ok := parsed.(map[string]any); ok {
		message = stringField(m, "message")
		code = stringField(m, "code")
		if code == "" {
			code = stringField(m, "error_code")
		}
	}
	if message == "" {
		if _, isJSON := parsed.(map[string]any); !isJSON && text != "" {
			message = text
		}
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d - %s", resp.StatusCode, statusText(resp))
	}
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
	}

	return billing.CheckoutError{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		URL:        endpoint,
		Timestamp:  billing.Timestamp(c.now()),
		RequestID:  requestID,
		Response:   parsed,
		Message:    message,
		ErrorCode:  code,
	}
}

// decodeBody returns the parsed JSON body, the raw text when it is not JSON,
// or nil for an empty body.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// statusText prefers the server's reason phrase over Go's canonical one.
func statusText(resp *http.Response) string {
	if t := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); t != "" {
		return t
	}
	return http.StatusText(resp.StatusCode)
}

// Ping checks that the API answers and that the key is accepted.
func (c *Client) Ping(ctx context.Context) billing.ProviderHealth {
	endpoint := c.BaseURL + "/health"
	res := billing.ProviderHealth{Provider: "creem", URL: endpoint}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	res.Reachable = resp.StatusCode < 500
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		res.Detail = strings.TrimSpace(string(b))
	}
	return res
}
