package stripe

import (
	"context"
	"errors"
	"strconv"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"

	"storyforge-app/internal/domain/billing"
)

var (
	ErrMissingSession    = errors.New("stripe: return redirect has no session_id")
	ErrSessionIncomplete = errors.New("stripe: checkout session is not complete")
	ErrSessionNotOwnedBy = errors.New("stripe: checkout session belongs to another user")
)

// SessionRedirect reads the checkout session named by a return redirect and
// returns the ids to reconcile. Nothing the browser sends besides the
// session id is trusted.
func (g *Gateway) SessionRedirect(ctx context.Context, sessionID string, userID uint) (billing.RedirectIdentifiers, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return billing.RedirectIdentifiers{}, ErrMissingSession
	}

	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	client := checkoutsession.Client{B: g.backend, Key: g.key}
	s, err := client.Get(sessionID, params)
	if err != nil {
		return billing.RedirectIdentifiers{}, g.toCheckoutError(err, sessionID)
	}

	if s.Status != stripeapi.CheckoutSessionStatusComplete {
		return billing.RedirectIdentifiers{}, ErrSessionIncomplete
	}
	owner := s.ClientReferenceID
	if owner == "" {
		owner = s.Metadata["user_id"]
	}
	if owner != strconv.FormatUint(uint64(userID), 10) {
		return billing.RedirectIdentifiers{}, ErrSessionNotOwnedBy
	}

	var ids billing.RedirectIdentifiers
	if s.Subscription != nil {
		ids.SubscriptionID = s.Subscription.ID
	}
	if s.Customer != nil {
		ids.CustomerID = s.Customer.ID
	}
	if s.LineItems != nil && len(s.LineItems.Data) > 0 && s.LineItems.Data[0].Price != nil {
		ids.ProductID = s.LineItems.Data[0].Price.ID
	}
	return ids, nil
}
