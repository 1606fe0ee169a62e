package models

import (
	"fmt"
	"strings"
	"time"
)

// ConditionType enumerates the supported activation predicates.
type ConditionType string

const (
	ConditionDateRange ConditionType = "date_range"
	ConditionTimeRange ConditionType = "time_range"
	ConditionWeekdays  ConditionType = "weekdays"
	ConditionIPEquals  ConditionType = "ip_equals"
	ConditionIPRegex   ConditionType = "ip_regex"
	ConditionIPCIDR    ConditionType = "ip_cidr"
	ConditionIsLocal   ConditionType = "is_local"
)

// Condition is one boolean rule gating whether an AuthStep currently
// applies. Conditions sharing a Group are AND'ed; groups are OR'ed.
type Condition struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuthStepID uint          `json:"auth_step_id" gorm:"index"`
	Type       ConditionType `json:"type"`
	Group      int           `json:"group" gorm:"column:rule_group"`
	Inverted   bool          `json:"inverted"`

	// Date range bounds (UTC). A nil bound is unbounded on that side.
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Time-of-day bounds as "HH:MM". A TimeTo before TimeFrom wraps
	// past midnight.
	TimeFrom string `json:"time_from,omitempty"`
	TimeTo   string `json:"time_to,omitempty"`

	// WeekdayMask is a bitmask with bit 0 = Sunday .. bit 6 = Saturday.
	// Zero passes unconditionally.
	WeekdayMask int `json:"weekday_mask,omitempty"`

	// Value holds the IP / regex / CIDR operand for the IP predicates.
	Value string `json:"value,omitempty"`
}

// Summary renders a short human-readable description used on the
// challenge page.
func (c *Condition) Summary() string {
	var s string
	switch c.Type {
	case ConditionDateRange:
		from, to := "...", "..."
		if c.DateFrom != nil {
			from = c.DateFrom.UTC().Format("2006-01-02")
		}
		if c.DateTo != nil {
			to = c.DateTo.UTC().Format("2006-01-02")
		}
		s = fmt.Sprintf("date between %s and %s", from, to)
	case ConditionTimeRange:
		s = fmt.Sprintf("time between %s and %s", c.TimeFrom, c.TimeTo)
	case ConditionWeekdays:
		s = "weekday in " + weekdayMaskString(c.WeekdayMask)
	case ConditionIPEquals:
		s = "ip equals " + c.Value
	case ConditionIPRegex:
		s = "ip matches " + c.Value
	case ConditionIPCIDR:
		s = "ip in " + c.Value
	case ConditionIsLocal:
		s = "local request"
	default:
		s = string(c.Type)
	}
	if c.Inverted {
		return "not (" + s + ")"
	}
	return s
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayMaskString(mask int) string {
	if mask == 0 {
		return "any"
	}
	var days []string
	for i, name := range weekdayNames {
		if mask&(1<<i) != 0 {
			days = append(days, name)
		}
	}
	return strings.Join(days, ",")
}
