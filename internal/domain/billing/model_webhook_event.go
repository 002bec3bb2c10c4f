package billing

import "time"

type WebhookEvent struct {
	ID              uint   `gorm:"primaryKey"`
	Provider        string `gorm:"type:varchar(20);not null;uniqueIndex:idx_webhook_events_provider_event"`
	ProviderEventID string `gorm:"not null;uniqueIndex:idx_webhook_events_provider_event"`
	EventType       string
	PayloadJSON     string `gorm:"type:text"`
	// ProcessingStartedAt is set by the delivery that claimed the event.
	ProcessingStartedAt *time.Time
	ProcessedAt         *time.Time
	ProcessingError     string
	CreatedAt           time.Time
}

// SyncAttempt persists the automatic-reconciliation flag for one subscription id.
type SyncAttempt struct {
	ID             uint   `gorm:"primaryKey"`
	SubscriptionID string `gorm:"not null;uniqueIndex:idx_sync_attempts_subscription_id"`
	UserID         uint
	CreatedAt      time.Time
}
