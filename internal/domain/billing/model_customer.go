package billing

import "time"

// Customer is the local mirror of a payment-provider customer, one per user.
type Customer struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             uint   `gorm:"not null;uniqueIndex:idx_customers_user_id"`
	ProviderCustomerID string `gorm:"index:idx_customers_provider_customer_id"`
	Email              string
	Name               string
	Country            string
	Credits            int `gorm:"not null;default:0"`

	Subscriptions []Subscription

	CreatedAt time.Time
	UpdatedAt time.Time
}
