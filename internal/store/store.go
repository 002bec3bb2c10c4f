// Package store is the gorm-backed persistence for billing.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storyforge-app/internal/domain/billing"
)

// Store implements the billing storage contracts on one *gorm.DB.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// keepOr builds "COALESCE(NULLIF(excluded.col, ''), table.col)" so an empty
// incoming value never clears a stored one.
func keepOr(table, col string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: col},
		Value:  gorm.Expr("COALESCE(NULLIF(excluded." + col + ", ''), " + table + "." + col + ")"),
	}
}

func keepIfNull(table, col string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: col},
		Value:  gorm.Expr("COALESCE(excluded." + col + ", " + table + "." + col + ")"),
	}
}

func fromExcluded(col string) clause.Assignment {
	return clause.Assignment{
		Column: clause.Column{Name: col},
		Value:  gorm.Expr("excluded." + col),
	}
}

func (s *Store) FindSubscriptionForUser(ctx context.Context, userID uint) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := s.db.WithContext(ctx).
		Joins("JOIN customers ON customers.id = subscriptions.customer_id").
		Where("customers.user_id = ?", userID).
		Order("subscriptions.updated_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertCustomer creates or updates the customer row of c.UserID and returns
// its key. Credits are never touched.
func (s *Store) UpsertCustomer(ctx context.Context, c *billing.Customer) (uint, error) {
	row := *c
	row.ID = 0
	row.Credits = 0
	row.Subscriptions = nil

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Set{
			keepOr("customers", "provider_customer_id"),
			keepOr("customers", "email"),
			keepOr("customers", "name"),
			keepOr("customers", "country"),
			fromExcluded("updated_at"),
		},
	}).Omit("Subscriptions").Create(&row).Error; err != nil {
		return 0, err
	}

	var stored billing.Customer
	if err := db.Where("user_id = ?", c.UserID).First(&stored).Error; err != nil {
		return 0, err
	}
	*c = stored
	return stored.ID, nil
}

// UpsertSubscription writes a redirect-synthesized subscription. An existing
// webhook-sourced row with the same provider id is left as it is.
func (s *Store) UpsertSubscription(ctx context.Context, sub *billing.Subscription, customerKey uint) (uint, error) {
	row := *sub
	row.ID = 0
	row.CustomerID = customerKey
	if row.Source == "" {
		row.Source = billing.SourceRedirect
	}

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: clause.Set{
			fromExcluded("customer_id"),
			fromExcluded("product_id"),
			fromExcluded("status"),
			fromExcluded("current_period_start"),
			fromExcluded("current_period_end"),
			fromExcluded("updated_at"),
		},
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "subscriptions.source <> ?", Vars: []any{billing.SourceWebhook}},
		}},
	}).Create(&row).Error; err != nil {
		return 0, err
	}

	return s.reloadSubscription(ctx, sub)
}

// ApplyProviderSubscription writes authoritative provider state, replacing
// whatever was synthesized before. Absent fields keep their stored values.
func (s *Store) ApplyProviderSubscription(ctx context.Context, sub *billing.Subscription, customerKey uint) (uint, error) {
	row := *sub
	row.ID = 0
	row.CustomerID = customerKey
	row.Source = billing.SourceWebhook

	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_subscription_id"}},
		DoUpdates: clause.Set{
			fromExcluded("customer_id"),
			keepOr("subscriptions", "product_id"),
			fromExcluded("status"),
			keepIfNull("subscriptions", "current_period_start"),
			keepIfNull("subscriptions", "current_period_end"),
			fromExcluded("canceled_at"),
			fromExcluded("source"),
			fromExcluded("updated_at"),
		},
	}).Create(&row).Error; err != nil {
		return 0, err
	}

	return s.reloadSubscription(ctx, sub)
}

func (s *Store) reloadSubscription(ctx context.Context, sub *billing.Subscription) (uint, error) {
	var stored billing.Subscription
	if err := s.db.WithContext(ctx).
		Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).
		First(&stored).Error; err != nil {
		return 0, err
	}
	*sub = stored
	return stored.ID, nil
}

func (s *Store) FindCustomerByUser(ctx context.Context, userID uint) (*billing.Customer, error) {
	var c billing.Customer
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindCustomerByProviderID(ctx context.Context, providerCustomerID string) (*billing.Customer, error) {
	var c billing.Customer
	err := s.db.WithContext(ctx).Where("provider_customer_id = ?", providerCustomerID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConsumeCredit decrements the balance only when it is positive.
func (s *Store) ConsumeCredit(ctx context.Context, userID uint) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&billing.Customer{}).
		Where("user_id = ? AND credits > 0", userID).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - 1"),
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

// GrantCredits adds credits to a customer and returns the new balance.
func (s *Store) GrantCredits(ctx context.Context, customerKey uint, credits int) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&billing.Customer{}).
			Where("id = ?", customerKey).
			Updates(map[string]interface{}{
				"credits":    gorm.Expr("credits + ?", credits),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&billing.Customer{}).Where("id = ?", customerKey).
			Select("credits").Scan(&balance).Error
	})
	return balance, err
}

// ListCustomers returns customers with their subscriptions, newest first.
func (s *Store) ListCustomers(ctx context.Context, limit int) ([]billing.Customer, error) {
	var out []billing.Customer
	err := s.db.WithContext(ctx).
		Preload("Subscriptions").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
