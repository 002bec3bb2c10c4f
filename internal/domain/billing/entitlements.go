package billing

import (
	"context"
	"time"
)

type CreditStore interface {
	FindCustomerByUser(ctx context.Context, userID uint) (*Customer, error)
	ConsumeCredit(ctx context.Context, userID uint) (bool, error)
}

type Entitlement struct {
	HasSubscription bool          `json:"has_subscription"`
	Credits         int           `json:"credits"`
	Subscription    *Subscription `json:"subscription,omitempty"`
}

func (e Entitlement) CanGenerate() bool {
	return e.HasSubscription || e.Credits > 0
}

// AccessService answers what a user may do with what they paid for.
type AccessService struct {
	subs    SubscriptionStore
	credits CreditStore
	now     func() time.Time
}

func NewAccessService(subs SubscriptionStore, credits CreditStore) *AccessService {
	return &AccessService{subs: subs, credits: credits, now: time.Now}
}

func (a *AccessService) Entitlement(ctx context.Context, userID uint) (Entitlement, error) {
	var out Entitlement

	sub, err := a.subs.FindSubscriptionForUser(ctx, userID)
	if err != nil {
		return out, &StorageError{Op: "find_subscription", Err: err}
	}
	out.Subscription = sub
	out.HasSubscription = sub.Entitles(a.now())

	cus, err := a.credits.FindCustomerByUser(ctx, userID)
	if err != nil {
		return out, &StorageError{Op: "find_customer", Err: err}
	}
	if cus != nil {
		out.Credits = cus.Credits
	}
	return out, nil
}

// ConsumeCredit takes one credit; ErrNoCredits when the balance is zero.
func (a *AccessService) ConsumeCredit(ctx context.Context, userID uint) error {
	ok, err := a.credits.ConsumeCredit(ctx, userID)
	if err != nil {
		return &StorageError{Op: "consume_credit", Err: err}
	}
	if !ok {
		return ErrNoCredits
	}
	return nil
}
