package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckoutService(gw CheckoutGateway, ledger *memLedger, pub EventPublisher) *CheckoutService {
	s := NewCheckoutService(gw, ledger, pub, CheckoutSettings{SiteURL: "https://stories.example.com"}, "creem")
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestCheckoutService_Start_Success(t *testing.T) {
	ledger := &memLedger{}
	pub := &memPublisher{}
	var got CheckoutRequest
	gw := gatewayFunc(func(ctx context.Context, req CheckoutRequest) (string, error) {
		got = req
		return "https://checkout.creem.io/ch_1", nil
	})

	res, err := newTestCheckoutService(gw, ledger, pub).Start(context.Background(), CheckoutInput{
		ProductID: "prod_A", Email: "a@x.com", UserID: 1, ProductType: ProductSubscription,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.creem.io/ch_1", res.CheckoutURL)
	assert.Equal(t, "1-1700000000000", res.RequestID)
	assert.Equal(t, res.RequestID, got.RequestID)

	attempt := ledger.attempts[res.RequestID]
	assert.Equal(t, AttemptCreated, attempt.Status)
	assert.Equal(t, "https://checkout.creem.io/ch_1", attempt.CheckoutURL)
	assert.Equal(t, 1, attempt.Tries)

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventCheckoutCreated, pub.events[0].key)
}

func TestCheckoutService_Start_GatewayFailureRecorded(t *testing.T) {
	ledger := &memLedger{}
	gw := gatewayFunc(func(ctx context.Context, req CheckoutRequest) (string, error) {
		return "", &GatewayError{Details: CheckoutError{Status: 401, StatusText: "Unauthorized", ErrorCode: "AUTH_FAILED", Message: "bad key", RequestID: req.RequestID}}
	})

	res, err := newTestCheckoutService(gw, ledger, nil).Start(context.Background(), CheckoutInput{
		ProductID: "prod_A", Email: "a@x.com", UserID: 1, ProductType: ProductSubscription,
	}, "")

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "1-1700000000000", res.RequestID)
	assert.Empty(t, res.CheckoutURL)

	attempt := ledger.attempts[res.RequestID]
	assert.Equal(t, AttemptFailed, attempt.Status)
	assert.Equal(t, 401, attempt.HTTPStatus)
	assert.Equal(t, "AUTH_FAILED", attempt.ErrorCode)
	assert.Equal(t, "bad key", attempt.ErrorMessage)
}

func TestCheckoutService_Start_LedgerFailureStopsBeforeGateway(t *testing.T) {
	called := false
	gw := gatewayFunc(func(ctx context.Context, req CheckoutRequest) (string, error) {
		called = true
		return "https://x", nil
	})

	_, err := newTestCheckoutService(gw, &memLedger{saveErr: errors.New("db down")}, nil).Start(context.Background(), CheckoutInput{UserID: 1, ProductID: "p"}, "")

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.False(t, called)
}

func TestCheckoutService_Start_RetryOfNetworkFailureReusesID(t *testing.T) {
	ledger := &memLedger{attempts: map[string]CheckoutAttempt{
		"1-1600000000000": {RequestID: "1-1600000000000", UserID: 1, ProductID: "prod_A", Status: AttemptFailed, ErrorCode: CodeNetworkError, Tries: 1},
	}}
	var got CheckoutRequest
	gw := gatewayFunc(func(ctx context.Context, req CheckoutRequest) (string, error) {
		got = req
		return "https://checkout.creem.io/ch_2", nil
	})

	res, err := newTestCheckoutService(gw, ledger, nil).Start(context.Background(), CheckoutInput{
		ProductID: "prod_A", UserID: 1, ProductType: ProductSubscription,
	}, "1-1600000000000")
	require.NoError(t, err)

	assert.Equal(t, "1-1600000000000", got.RequestID)
	assert.Equal(t, "1-1600000000000", res.RequestID)
	assert.Equal(t, 2, ledger.attempts["1-1600000000000"].Tries)
}

func TestCheckoutService_Start_RetryOfRejected(t *testing.T) {
	ledger := &memLedger{attempts: map[string]CheckoutAttempt{
		"gateway-failed": {RequestID: "gateway-failed", UserID: 1, ProductID: "prod_A", Status: AttemptFailed, HTTPStatus: 500, ErrorCode: "HTTP_500"},
		"created":        {RequestID: "created", UserID: 1, ProductID: "prod_A", Status: AttemptCreated},
		"other-user":     {RequestID: "other-user", UserID: 2, ProductID: "prod_A", Status: AttemptFailed, ErrorCode: CodeNetworkError},
		"other-product":  {RequestID: "other-product", UserID: 1, ProductID: "prod_B", Status: AttemptFailed, ErrorCode: CodeNetworkError},
	}}
	gw := gatewayFunc(func(ctx context.Context, req CheckoutRequest) (string, error) {
		t.Fatal("gateway must not be called")
		return "", nil
	})
	svc := newTestCheckoutService(gw, ledger, nil)

	for _, id := range []string{"gateway-failed", "created", "other-user", "other-product", "unknown"} {
		_, err := svc.Start(context.Background(), CheckoutInput{ProductID: "prod_A", UserID: 1}, id)
		assert.ErrorIs(t, err, ErrRetryNotAllowed, id)
	}
	assert.Zero(t, ledger.saves)
}

func TestCheckoutService_History(t *testing.T) {
	ledger := &memLedger{attempts: map[string]CheckoutAttempt{
		"a": {RequestID: "a", UserID: 1},
		"b": {RequestID: "b", UserID: 2},
	}}
	got, err := newTestCheckoutService(nil, ledger, nil).History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].RequestID)
}
