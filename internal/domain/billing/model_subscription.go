package billing

import "time"

const (
	// SourceRedirect marks a placeholder synthesized from return-redirect identifiers.
	SourceRedirect = "redirect"
	// SourceWebhook marks a row written from an authoritative provider event.
	SourceWebhook = "webhook"
)

type Subscription struct {
	ID                     uint   `gorm:"primaryKey"`
	CustomerID             uint   `gorm:"not null;index"`
	ProviderSubscriptionID string `gorm:"not null;uniqueIndex:idx_subscriptions_provider_subscription_id"`
	ProductID              string
	Status                 string `gorm:"type:varchar(30);not null"`
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CanceledAt             *time.Time
	Source                 string `gorm:"type:varchar(20);not null;default:'redirect'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entitles reports whether the subscription currently grants paid access.
func (s *Subscription) Entitles(now time.Time) bool {
	if s == nil || !IsEntitlingStatus(s.Status) {
		return false
	}
	if s.CurrentPeriodEnd != nil && now.After(*s.CurrentPeriodEnd) {
		return false
	}
	return true
}
