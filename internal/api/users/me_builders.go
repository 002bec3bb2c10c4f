package users

import (
	"math"
	"time"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/users"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  stringPtrIfNotEmpty(u.DisplayName),
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
	}
}

func BuildBillingDTO(now time.Time, ent billing.Entitlement) BillingDTO {
	return BillingDTO{
		Subscription: BuildSubscriptionDTO(now, ent.Subscription),
		Credits:      ent.Credits,
		CanGenerate:  ent.CanGenerate(),
	}
}

func BuildSubscriptionDTO(now time.Time, sub *billing.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}
	dto := &SubscriptionDTO{
		ID:                 sub.ProviderSubscriptionID,
		ProductID:          sub.ProductID,
		Status:             sub.Status,
		Active:             sub.Entitles(now),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CanceledAt:         sub.CanceledAt,
		Pending:            sub.Source == billing.SourceRedirect,
	}
	if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
		days := int(math.Ceil(sub.CurrentPeriodEnd.Sub(now).Hours() / 24))
		dto.DaysLeft = &days
	}
	return dto
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
