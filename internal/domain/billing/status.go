package billing

import "strings"

const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusPaused   = "paused"
	StatusNone     = "none"
)

// NormalizeStatus folds provider-specific subscription statuses into the local set.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return StatusNone
	case "active", "paid", "scheduled_cancel":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "unpaid":
		return StatusPastDue
	case "canceled", "cancelled", "expired", "incomplete_expired":
		return StatusCanceled
	case "paused":
		return StatusPaused
	default:
		return s
	}
}

func IsEntitlingStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	default:
		return false
	}
}
