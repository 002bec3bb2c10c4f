package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storyforge-app/internal/domain/billing"
)

func (s *Store) FindCheckoutAttempt(ctx context.Context, requestID string) (*billing.CheckoutAttempt, error) {
	var a billing.CheckoutAttempt
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveCheckoutAttempt upserts by request id.
func (s *Store) SaveCheckoutAttempt(ctx context.Context, attempt *billing.CheckoutAttempt) error {
	row := *attempt
	row.ID = 0

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "request_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"checkout_url",
			"http_status",
			"error_code",
			"error_message",
			"discount_code",
			"credits",
			"tries",
			"updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return err
	}

	return db.Where("request_id = ?", attempt.RequestID).First(attempt).Error
}

func (s *Store) ListCheckoutAttempts(ctx context.Context, userID uint) ([]billing.CheckoutAttempt, error) {
	var out []billing.CheckoutAttempt
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListRecentCheckoutAttempts is the admin view across all users.
func (s *Store) ListRecentCheckoutAttempts(ctx context.Context, status string, limit int) ([]billing.CheckoutAttempt, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []billing.CheckoutAttempt
	err := q.Find(&out).Error
	return out, err
}
