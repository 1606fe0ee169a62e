package placeholder

import (
	"strings"
	"time"
)

// maxIterations bounds recursive resolution so a placeholder whose value
// contains another placeholder cannot loop forever.
const maxIterations = 10

// Values is a set of named substitutions. Keys appear in templates as
// "{key}".
type Values map[string]string

// Resolve substitutes "{key}" tokens in the template. Substitution
// repeats until a pass makes no replacement or the iteration bound is
// hit, so values may themselves contain placeholders.
func Resolve(template string, providers ...Values) string {
	merged := make(Values)
	for _, p := range providers {
		for k, v := range p {
			merged[k] = v
		}
	}

	out := template
	for i := 0; i < maxIterations; i++ {
		next := out
		for k, v := range merged {
			next = strings.ReplaceAll(next, "{"+k+"}", v)
		}
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Request returns the standard placeholder set available to webhook URLs
// and block messages.
func Request(ip string, now time.Time) Values {
	now = now.UTC()
	return Values{
		"ip":   ip,
		"date": now.Format("2006-01-02"),
		"time": now.Format("15:04:05"),
	}
}
