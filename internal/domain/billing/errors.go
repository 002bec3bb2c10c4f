package billing

import (
	"errors"
	"fmt"
)

const (
	CodeNetworkError      = "NETWORK_ERROR"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeRequestBuild      = "REQUEST_BUILD_ERROR"
)

var (
	// ErrNotAuthenticated is returned when reconciliation runs without a session.
	ErrNotAuthenticated = errors.New("billing: not authenticated")

	// ErrMissingIdentifiers is returned when the return redirect lacks the
	// subscription, customer or product id.
	ErrMissingIdentifiers = errors.New("billing: missing redirect identifiers")

	// ErrRetryNotAllowed is returned when a caller asks to reuse a request id
	// that is not a failed, outcome-unknown attempt of the same intent.
	ErrRetryNotAllowed = errors.New("billing: retry of this request id is not allowed")

	ErrNoCredits = errors.New("billing: no credits left")
)

// CheckoutError is the normalized failure record attached to every error the
// payment gateway returns. Status 0 means no HTTP response was obtained.
type CheckoutError struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	URL        string `json:"url"`
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"requestId"`
	Response   any    `json:"response"`
	Message    string `json:"message"`
	ErrorCode  string `json:"errorCode"`
}

// DetailedError is implemented by every gateway failure variant.
type DetailedError interface {
	error
	CheckoutDetails() CheckoutError
}

// NetworkError: the transport failed before any response was obtained.
type NetworkError struct {
	Details CheckoutError
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("checkout: network error: %s", e.Details.Message)
}

func (e *NetworkError) Unwrap() error                  { return e.Err }
func (e *NetworkError) CheckoutDetails() CheckoutError { return e.Details }

// GatewayError: the provider answered with a non-2xx status.
type GatewayError struct {
	Details CheckoutError
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("checkout: payment error: %d - %s", e.Details.Status, e.Details.StatusText)
}

func (e *GatewayError) CheckoutDetails() CheckoutError { return e.Details }

// MalformedResponseError: a 2xx response without a usable checkout URL.
type MalformedResponseError struct {
	Details CheckoutError
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("checkout: malformed response: %s", e.Details.Message)
}

func (e *MalformedResponseError) CheckoutDetails() CheckoutError { return e.Details }

// StorageError wraps a persistence failure during checkout bookkeeping or
// reconciliation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("billing: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AsCheckoutError extracts the normalized record from any gateway failure.
func AsCheckoutError(err error) (CheckoutError, bool) {
	var de DetailedError
	if errors.As(err, &de) {
		return de.CheckoutDetails(), true
	}
	return CheckoutError{}, false
}
