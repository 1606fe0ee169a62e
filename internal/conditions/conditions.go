package conditions

import (
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gatewarden/gatewarden/internal/models"
)

// RequestFacts are the facts a condition can be evaluated against.
type RequestFacts struct {
	Now     time.Time // UTC
	IP      string
	IsLocal bool
}

// Evaluate partitions conditions by group and returns true iff at least
// one group holds, where a group holds iff every condition in it passes.
// An empty condition set passes. Each predicate result is XOR'ed with
// the condition's inverted flag; any malformed operand counts as a
// failed predicate, never an error.
func Evaluate(conds []models.Condition, facts RequestFacts) bool {
	if len(conds) == 0 {
		return true
	}

	groups := make(map[int][]models.Condition)
	for _, c := range conds {
		groups[c.Group] = append(groups[c.Group], c)
	}

	for _, group := range groups {
		pass := true
		for i := range group {
			if evalOne(&group[i], facts) == group[i].Inverted {
				pass = false
				break
			}
		}
		if pass {
			return true
		}
	}
	return false
}

func evalOne(c *models.Condition, facts RequestFacts) bool {
	switch c.Type {
	case models.ConditionDateRange:
		return dateInRange(facts.Now, c.DateFrom, c.DateTo)
	case models.ConditionTimeRange:
		return timeInRange(facts.Now, c.TimeFrom, c.TimeTo)
	case models.ConditionWeekdays:
		return weekdayInMask(facts.Now, c.WeekdayMask)
	case models.ConditionIPEquals:
		return facts.IP == c.Value
	case models.ConditionIPRegex:
		return ipMatchesRegex(facts.IP, c.Value)
	case models.ConditionIPCIDR:
		return ipInCIDR(facts.IP, c.Value)
	case models.ConditionIsLocal:
		return facts.IsLocal
	default:
		return false
	}
}

func dateInRange(now time.Time, from, to *time.Time) bool {
	now = now.UTC()
	if from != nil && now.Before(from.UTC()) {
		return false
	}
	if to != nil && now.After(to.UTC()) {
		return false
	}
	return true
}

// timeInRange checks a time-of-day window. A "to" before "from" wraps
// past midnight, so 18:00-02:00 passes at 23:00 and at 01:00.
func timeInRange(now time.Time, fromStr, toStr string) bool {
	from, okFrom := parseMinutes(fromStr)
	to, okTo := parseMinutes(toStr)
	if !okFrom && !okTo {
		return true
	}
	minute := now.UTC().Hour()*60 + now.UTC().Minute()
	switch {
	case !okFrom:
		return minute <= to
	case !okTo:
		return minute >= from
	case to < from:
		return minute >= from || minute <= to
	default:
		return minute >= from && minute <= to
	}
}

func parseMinutes(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// weekdayInMask checks bit 0 = Sunday .. bit 6 = Saturday. An empty
// mask passes unconditionally.
func weekdayInMask(now time.Time, mask int) bool {
	if mask == 0 {
		return true
	}
	return mask&(1<<int(now.UTC().Weekday())) != 0
}

func ipMatchesRegex(ip, pattern string) bool {
	if pattern == "" {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(ip)
}

// ipInCIDR also accepts a bare IP operand as a /32-style match. The
// literal "localhost" never parses and therefore never matches.
func ipInCIDR(ipStr, cidr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if singleIP := net.ParseIP(cidr); singleIP != nil {
		return ip.Equal(singleIP)
	}
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return ipNet.Contains(ip)
}
