package placeholder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Simple(t *testing.T) {
	out := Resolve("blocked: {ip} at {time}", Values{"ip": "1.2.3.4", "time": "10:00"})
	assert.Equal(t, "blocked: 1.2.3.4 at 10:00", out)
}

func TestResolve_NestedValues(t *testing.T) {
	out := Resolve("{outer}", Values{"outer": "a-{inner}", "inner": "b"})
	assert.Equal(t, "a-b", out)
}

func TestResolve_SelfReferenceTerminates(t *testing.T) {
	// A pathological value referencing itself must still terminate.
	out := Resolve("{loop}", Values{"loop": "x{loop}"})
	assert.Contains(t, out, "x")
	assert.LessOrEqual(t, len(out), maxIterations+len("{loop}")+1)
}

func TestResolve_UnknownTokenLeftIntact(t *testing.T) {
	out := Resolve("hello {nobody}", Values{"ip": "1.2.3.4"})
	assert.Equal(t, "hello {nobody}", out)
}

func TestRequest_ProvidesStandardSet(t *testing.T) {
	now := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	vals := Request("9.9.9.9", now)

	assert.Equal(t, "9.9.9.9", vals["ip"])
	assert.Equal(t, "2024-06-01", vals["date"])
	assert.Equal(t, "14:30:00", vals["time"])
}
