package billing

import "time"

const (
	AttemptPending = "pending"
	AttemptCreated = "created"
	AttemptFailed  = "failed"
)

// CheckoutAttempt is the ledger row for one checkout-session creation attempt,
// keyed by the request id sent to the provider.
type CheckoutAttempt struct {
	ID           uint   `gorm:"primaryKey"`
	RequestID    string `gorm:"not null;uniqueIndex:idx_checkout_attempts_request_id"`
	UserID       uint   `gorm:"not null;index"`
	Provider     string `gorm:"type:varchar(20)"`
	ProductID    string
	ProductType  string `gorm:"type:varchar(20)"`
	Credits      int
	DiscountCode string
	Status       string `gorm:"type:varchar(20);not null"`
	CheckoutURL  string
	HTTPStatus   int
	ErrorCode    string
	ErrorMessage string
	Tries        int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
