package billing

import (
	"context"
	"log"
	"strings"
	"time"
)

// CheckoutLedger records every checkout attempt by request id.
type CheckoutLedger interface {
	FindCheckoutAttempt(ctx context.Context, requestID string) (*CheckoutAttempt, error)
	SaveCheckoutAttempt(ctx context.Context, attempt *CheckoutAttempt) error
	ListCheckoutAttempts(ctx context.Context, userID uint) ([]CheckoutAttempt, error)
}

type CheckoutResult struct {
	CheckoutURL string
	RequestID   string
}

// CheckoutService runs the checkout pipeline: build, record, call the gateway.
type CheckoutService struct {
	gateway  CheckoutGateway
	ledger   CheckoutLedger
	events   EventPublisher
	settings CheckoutSettings
	provider string
	now      func() time.Time
}

func NewCheckoutService(gateway CheckoutGateway, ledger CheckoutLedger, events EventPublisher, settings CheckoutSettings, provider string) *CheckoutService {
	return &CheckoutService{
		gateway:  gateway,
		ledger:   ledger,
		events:   events,
		settings: settings,
		provider: provider,
		now:      time.Now,
	}
}

// Start creates one checkout session. retryOf names an earlier request id the
// caller wants to reuse; it is honored only for a failed attempt of the same
// user and product whose outcome is unknown (status 0).
func (s *CheckoutService) Start(ctx context.Context, in CheckoutInput, retryOf string) (CheckoutResult, error) {
	tries := 1
	if retryOf = strings.TrimSpace(retryOf); retryOf != "" {
		prev, err := s.ledger.FindCheckoutAttempt(ctx, retryOf)
		if err != nil {
			return CheckoutResult{}, &StorageError{Op: "find_checkout_attempt", Err: err}
		}
		if !canReuse(prev, in) {
			return CheckoutResult{}, ErrRetryNotAllowed
		}
		in.RequestID = retryOf
		tries = prev.Tries + 1
	}

	req := BuildCheckoutRequest(s.settings, in, s.now())
	attempt := &CheckoutAttempt{
		RequestID:    req.RequestID,
		UserID:       in.UserID,
		Provider:     s.provider,
		ProductID:    req.ProductID,
		ProductType:  string(req.Metadata.ProductType),
		Credits:      req.Metadata.Credits,
		DiscountCode: req.DiscountCode,
		Status:       AttemptPending,
		Tries:        tries,
	}
	if err := s.ledger.SaveCheckoutAttempt(ctx, attempt); err != nil {
		return CheckoutResult{}, &StorageError{Op: "save_checkout_attempt", Err: err}
	}

	log.Printf("🚀 Creating checkout session: user=%d product=%s type=%s request=%s provider=%s",
		in.UserID, req.ProductID, req.Metadata.ProductType, req.RequestID, s.provider)

	checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		attempt.Status = AttemptFailed
		attempt.ErrorMessage = err.Error()
		if d, ok := AsCheckoutError(err); ok {
			attempt.HTTPStatus = d.Status
			attempt.ErrorCode = d.ErrorCode
			attempt.ErrorMessage = d.Message
		}
		s.saveQuietly(ctx, attempt)
		log.Printf("💥 Error creating checkout session: request=%s err=%v", req.RequestID, err)
		return CheckoutResult{RequestID: req.RequestID}, err
	}

	attempt.Status = AttemptCreated
	attempt.CheckoutURL = checkoutURL
	attempt.HTTPStatus = 0
	attempt.ErrorCode = ""
	attempt.ErrorMessage = ""
	s.saveQuietly(ctx, attempt)

	log.Printf("✅ Checkout session created: request=%s", req.RequestID)
	publish(ctx, s.events, EventCheckoutCreated, CheckoutCreatedEvent{
		RequestID:   req.RequestID,
		UserID:      in.UserID,
		ProductID:   req.ProductID,
		ProductType: req.Metadata.ProductType,
		Provider:    s.provider,
		CreatedAt:   s.now(),
	})

	return CheckoutResult{CheckoutURL: checkoutURL, RequestID: req.RequestID}, nil
}

func (s *CheckoutService) History(ctx context.Context, userID uint) ([]CheckoutAttempt, error) {
	attempts, err := s.ledger.ListCheckoutAttempts(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "list_checkout_attempts", Err: err}
	}
	return attempts, nil
}

// The session URL is already issued at this point; a ledger write failure
// must not hide it from the user.
func (s *CheckoutService) saveQuietly(ctx context.Context, attempt *CheckoutAttempt) {
	if err := s.ledger.SaveCheckoutAttempt(ctx, attempt); err != nil {
		log.Printf("⚠️ failed to update checkout attempt %s: %v", attempt.RequestID, err)
	}
}

func canReuse(prev *CheckoutAttempt, in CheckoutInput) bool {
	if prev == nil {
		return false
	}
	return prev.UserID == in.UserID &&
		prev.ProductID == strings.TrimSpace(in.ProductID) &&
		prev.Status == AttemptFailed &&
		prev.HTTPStatus == 0 &&
		prev.ErrorCode == CodeNetworkError
}
