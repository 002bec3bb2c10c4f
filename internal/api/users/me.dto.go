package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	DisplayName  *string `json:"display_name"`
	Role         string  `json:"role"`
	AuthProvider string  `json:"auth_provider"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Subscription *SubscriptionDTO `json:"subscription"`
	Credits      int              `json:"credits"`
	CanGenerate  bool             `json:"can_generate"`
}

type SubscriptionDTO struct {
	ID                 string     `json:"id"`
	ProductID          string     `json:"product_id"`
	Status             string     `json:"status"`
	Active             bool       `json:"active"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	DaysLeft           *int       `json:"days_left,omitempty"`
	// Pending is true while only the redirect placeholder exists.
	Pending bool `json:"pending"`
}
