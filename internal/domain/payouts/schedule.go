package payouts

import (
	"time"

	"qtro-isp/internal/domain/tenants"
)

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PeriodStart picks where a new batch begins: the day after the last paid batch
// ended, or the day of the earliest unpaid sale when nothing has been paid yet.
func PeriodStart(lastPaidEnd *time.Time, earliestPending time.Time) time.Time {
	if lastPaidEnd != nil {
		return StartOfDay(lastPaidEnd.AddDate(0, 0, 1))
	}
	return StartOfDay(earliestPending)
}

// NextPayoutDate is the next scheduled settlement day for a frequency.
// Weekly payouts land on Saturdays, monthly payouts on the 1st.
func NextPayoutDate(now time.Time, frequency string) time.Time {
	today := StartOfDay(now)
	if frequency == tenants.PayoutWeekly {
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days)
	}
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
}
