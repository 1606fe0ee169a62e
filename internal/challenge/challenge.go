package challenge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/conditions"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/notify"
	"github.com/gatewarden/gatewarden/internal/placeholder"
	"github.com/gatewarden/gatewarden/internal/store"
)

// Deps bundles the collaborators challenge implementations share.
type Deps struct {
	State     *store.StateStore
	Solved    *store.SolvedStore
	Operators *store.OperatorStore
	Verifier  auth.Verifier
	Notifier  *notify.Dispatcher
	Audit     *audit.Logger
	HTTP      *http.Client
	Now       func() time.Time
}

// Context carries everything one challenge evaluation or action needs:
// the resolved route/step/identity plus request facts.
type Context struct {
	Deps     *Deps
	Route    *models.ProxyRoute
	Step     *models.AuthStep
	Identity *models.ClientIdentity
	Facts    conditions.RequestFacts
	Request  *http.Request

	// ApprovalBaseURL is the externally reachable origin approval links
	// are built on, e.g. "https://app.example.com".
	ApprovalBaseURL string
}

// GetState reads a protocol state value scoped to (client, step).
func (c *Context) GetState(key string) (string, bool, error) {
	return c.Deps.State.Get(c.Identity.ID, c.Step.ID, key)
}

// SetState writes a protocol state value scoped to (client, step).
func (c *Context) SetState(key, value string) error {
	return c.Deps.State.Set(c.Identity.ID, c.Step.ID, key, value)
}

// Placeholders returns the substitution set for webhook URLs and
// messages, optionally merged with challenge-specific extras.
func (c *Context) Placeholders(extra placeholder.Values) placeholder.Values {
	vals := placeholder.Request(c.Identity.IP, c.Deps.Now())
	for k, v := range extra {
		vals[k] = v
	}
	return vals
}

// Result is the JSON result of a client-invoked action. Errors are
// protocol-level: transport stays HTTP 200.
type Result struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func ok() Result             { return Result{Success: true} }
func fail(msg string) Result { return Result{Success: false, Error: msg} }

func okData(d map[string]interface{}) Result {
	return Result{Success: true, Data: d}
}

// ActionHandler executes one named client-invokable action against a
// raw JSON payload.
type ActionHandler func(ctx *Context, payload json.RawMessage) Result

// action adapts a typed two-argument handler (context + payload struct)
// into an ActionHandler. The payload shape is fixed at compile time; a
// body that does not unmarshal is a protocol error, not a panic.
func action[T any](fn func(ctx *Context, req T) Result) ActionHandler {
	return func(ctx *Context, payload json.RawMessage) Result {
		var req T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return fail("malformed payload")
			}
		}
		return fn(ctx, req)
	}
}

// Challenge is one pluggable authentication strategy.
type Challenge interface {
	// CreateDisplayModel produces the JSON payload the interactive
	// challenge page renders for this step. Read-only.
	CreateDisplayModel(ctx *Context) map[string]interface{}

	// AutoCheckSolved is an idempotent pre-render check; a true result
	// records a solve without any client action.
	AutoCheckSolved(ctx *Context) bool

	// Actions lists the client-invokable RPC actions by name.
	Actions() map[string]ActionHandler
}
