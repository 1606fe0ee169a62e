package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSolvedRecordValidFor(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	step := &AuthStep{SolvedID: "token-a"}

	record := &SolvedRecord{SolvedID: "token-a", SolvedAt: now.Add(-time.Hour)}
	assert.True(t, record.ValidFor(step, now))

	// A stale token never validates, regardless of timestamp.
	record.SolvedID = "token-old"
	assert.False(t, record.ValidFor(step, now))

	record.SolvedID = "token-a"
	ttl := 60
	step.SolveTTLSeconds = &ttl
	assert.False(t, record.ValidFor(step, now))

	record.SolvedAt = now.Add(-30 * time.Second)
	assert.True(t, record.ValidFor(step, now))
}

func TestAuthStepSolveTTL(t *testing.T) {
	step := &AuthStep{}
	_, ok := step.SolveTTL()
	assert.False(t, ok)

	zero := 0
	step.SolveTTLSeconds = &zero
	_, ok = step.SolveTTL()
	assert.False(t, ok)

	ttl := 90
	step.SolveTTLSeconds = &ttl
	d, ok := step.SolveTTL()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)
}

func TestProxyRouteMatchesPort(t *testing.T) {
	wildcard := &ProxyRoute{}
	assert.True(t, wildcard.MatchesPort(80))
	assert.True(t, wildcard.MatchesPort(8443))

	port := 8443
	pinned := &ProxyRoute{Port: &port}
	assert.True(t, pinned.MatchesPort(8443))
	assert.False(t, pinned.MatchesPort(80))
}

func TestConditionSummary(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		cond Condition
		want string
	}{
		{"date range", Condition{Type: ConditionDateRange, DateFrom: &from, DateTo: &to}, "date between 2024-01-01 and 2024-12-31"},
		{"open date range", Condition{Type: ConditionDateRange, DateFrom: &from}, "date between 2024-01-01 and ..."},
		{"time range", Condition{Type: ConditionTimeRange, TimeFrom: "18:00", TimeTo: "02:00"}, "time between 18:00 and 02:00"},
		{"weekdays", Condition{Type: ConditionWeekdays, WeekdayMask: 0b0000010}, "weekday in Mon"},
		{"weekdays any", Condition{Type: ConditionWeekdays}, "weekday in any"},
		{"ip equals", Condition{Type: ConditionIPEquals, Value: "10.0.0.1"}, "ip equals 10.0.0.1"},
		{"cidr", Condition{Type: ConditionIPCIDR, Value: "10.0.0.0/8"}, "ip in 10.0.0.0/8"},
		{"local", Condition{Type: ConditionIsLocal}, "local request"},
		{"inverted", Condition{Type: ConditionIsLocal, Inverted: true}, "not (local request)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cond.Summary())
		})
	}
}
