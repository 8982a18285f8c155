package payouts

import (
	"testing"
	"time"

	"qtro-isp/internal/domain/tenants"
)

func TestPeriodStart(t *testing.T) {
	earliest := time.Date(2026, 2, 3, 17, 45, 0, 0, time.UTC)
	if got := PeriodStart(nil, earliest); !got.Equal(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("no previous payout: got %v", got)
	}

	lastEnd := time.Date(2026, 1, 31, 23, 10, 0, 0, time.UTC)
	if got := PeriodStart(&lastEnd, earliest); !got.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("after paid payout: got %v", got)
	}
}

func TestNextPayoutDate(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		frequency string
		expected  time.Time
	}{
		{
			name:      "weekly from wednesday",
			now:       time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
			frequency: tenants.PayoutWeekly,
			expected:  time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekly on saturday rolls a full week",
			now:       time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
			frequency: tenants.PayoutWeekly,
			expected:  time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly mid month",
			now:       time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
			frequency: tenants.PayoutMonthly,
			expected:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly in december wraps the year",
			now:       time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC),
			frequency: tenants.PayoutMonthly,
			expected:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextPayoutDate(tt.now, tt.frequency); !got.Equal(tt.expected) {
				t.Errorf("NextPayoutDate() = %v, want %v", got, tt.expected)
			}
		})
	}
}
