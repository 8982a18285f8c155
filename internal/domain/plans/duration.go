package plans

import (
	"strings"
	"time"
)

// Duration classes (single source of truth)
const (
	DurationDaily   = "daily"
	DurationWeekly  = "weekly"
	DurationMonthly = "monthly"
)

// NormalizeDuration lower-cases and validates a duration class.
// Returns "" when the value is not a known class.
func NormalizeDuration(d string) string {
	switch v := strings.ToLower(strings.TrimSpace(d)); v {
	case DurationDaily, DurationWeekly, DurationMonthly:
		return v
	default:
		return ""
	}
}

// AccessPeriod is how long a voucher for this plan grants access.
func AccessPeriod(p *Plan) time.Duration {
	if p == nil {
		return 0
	}
	switch NormalizeDuration(p.Duration) {
	case DurationDaily:
		return 24 * time.Hour
	case DurationWeekly:
		return 7 * 24 * time.Hour
	case DurationMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}
