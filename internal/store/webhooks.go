package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"storyforge-app/internal/domain/billing"
)

// ClaimWebhookEvent inserts the event unless it exists, then takes it with a
// single conditional UPDATE so only one concurrent delivery wins.
func (s *Store) ClaimWebhookEvent(ctx context.Context, ev *billing.WebhookEvent, staleAfter time.Duration) (billing.WebhookClaim, error) {
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(ev).Error; err != nil {
		return "", err
	}

	now := time.Now()
	res := db.Model(&billing.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ? AND processed_at IS NULL", ev.Provider, ev.ProviderEventID).
		Where("(processing_started_at IS NULL OR processing_started_at < ?)", now.Add(-staleAfter)).
		Update("processing_started_at", now)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return billing.WebhookClaimed, nil
	}

	var stored billing.WebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", ev.Provider, ev.ProviderEventID).
		First(&stored).Error; err != nil {
		return "", err
	}
	if stored.ProcessedAt != nil {
		return billing.WebhookDone, nil
	}
	return billing.WebhookBusy, nil
}

// ReleaseWebhookEvent drops a claim so a redelivery can retry at once.
func (s *Store) ReleaseWebhookEvent(ctx context.Context, provider, eventID string) error {
	return s.db.WithContext(ctx).Model(&billing.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ? AND processed_at IS NULL", provider, eventID).
		Update("processing_started_at", nil).Error
}

func (s *Store) MarkWebhookProcessed(ctx context.Context, provider, eventID, processingError string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&billing.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}

// MarkAttempted is the database-backed billing.AttemptFlags, used when no
// Redis is configured.
func (s *Store) MarkAttempted(ctx context.Context, subscriptionID string, userID uint) (bool, error) {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoNothing: true,
	}).Create(&billing.SyncAttempt{SubscriptionID: subscriptionID, UserID: userID})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
