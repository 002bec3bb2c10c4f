package creemwebhook

import (
	"strconv"
	"strings"
	"time"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/infra/creem"
)

const provider = "creem"

// Translate maps a verified Creem event onto local billing changes.
// Events this service does not act on translate to an InboundEvent with no
// changes, which the webhook service acknowledges and ignores.
func Translate(ev creem.Event, payload []byte) (billing.InboundEvent, error) {
	in := billing.InboundEvent{
		Provider:  provider,
		EventID:   ev.ID,
		EventType: ev.EventType,
		Payload:   payload,
	}

	switch {
	case ev.EventType == creem.EventCheckoutCompleted:
		co, err := ev.Checkout()
		if err != nil {
			return in, err
		}
		userID := parseUserID(co.Metadata.UserID)

		if co.Subscription != nil && co.Subscription.ID != "" {
			so := co.Subscription
			su := fromSubscription(so, userID)
			if su.ProviderCustomerID == "" {
				su.ProviderCustomerID = co.Customer.ID
				su.Email = co.Customer.Email
				su.Name = co.Customer.Name
				su.Country = co.Customer.Country
			}
			if su.ProductID == "" {
				su.ProductID = co.Product.ID
			}
			if so.Status == "" {
				su.Status = billing.StatusActive
			}
			in.Subscription = su
		}

		if billing.ProductType(strings.ToLower(co.Metadata.ProductType)) == billing.ProductCredits && co.Metadata.Credits > 0 {
			in.Credits = &billing.CreditGrant{
				UserID:             userID,
				Email:              co.Customer.Email,
				ProviderCustomerID: co.Customer.ID,
				Credits:            co.Metadata.Credits,
			}
		}

	case ev.IsSubscriptionEvent():
		so, err := ev.Subscription()
		if err != nil {
			return in, err
		}
		su := fromSubscription(so, parseUserID(so.Metadata.UserID))
		if status := statusForEvent(ev.EventType); status != "" {
			su.Status = status
		}
		in.Subscription = su
	}

	return in, nil
}

func fromSubscription(so *creem.SubscriptionObject, userID uint) *billing.SubscriptionUpdate {
	return &billing.SubscriptionUpdate{
		UserID:                 userID,
		Email:                  so.Customer.Email,
		Name:                   so.Customer.Name,
		Country:                so.Customer.Country,
		ProviderCustomerID:     so.Customer.ID,
		ProviderSubscriptionID: so.ID,
		ProductID:              so.Product.ID,
		Status:                 so.Status,
		CurrentPeriodStart:     timePtr(so.CurrentPeriodStart),
		CurrentPeriodEnd:       timePtr(so.CurrentPeriodEnd),
		CanceledAt:             so.CanceledAt,
	}
}

// statusForEvent is the status an event type implies; the object's own
// status wins for the generic update events.
func statusForEvent(eventType string) string {
	switch eventType {
	case creem.EventSubscriptionActive, creem.EventSubscriptionPaid:
		return billing.StatusActive
	case creem.EventSubscriptionCanceled, creem.EventSubscriptionExpired:
		return billing.StatusCanceled
	case creem.EventSubscriptionTrialing:
		return billing.StatusTrialing
	case creem.EventSubscriptionPaused:
		return billing.StatusPaused
	default:
		return ""
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseUserID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
