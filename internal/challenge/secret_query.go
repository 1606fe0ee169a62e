package challenge

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/gatewarden/gatewarden/internal/placeholder"
)

type secretQueryConfig struct {
	Secret string `json:"secret"`
}

// secretQueryChallenge solves silently when the request carries a
// matching ?secret= query parameter. It renders no UI and exposes no
// actions.
type secretQueryChallenge struct {
	cfg secretQueryConfig
}

func newSecretQueryString(config json.RawMessage) (Challenge, error) {
	var cfg secretQueryConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, err
	}
	return &secretQueryChallenge{cfg: cfg}, nil
}

func (s *secretQueryChallenge) CreateDisplayModel(ctx *Context) map[string]interface{} {
	return map[string]interface{}{"kind": "secretQueryString"}
}

func (s *secretQueryChallenge) AutoCheckSolved(ctx *Context) bool {
	if ctx.Request == nil {
		return false
	}
	got := ctx.Request.URL.Query().Get("secret")
	if got == "" {
		return false
	}
	want := placeholder.Resolve(s.cfg.Secret, ctx.Placeholders(nil))
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *secretQueryChallenge) Actions() map[string]ActionHandler {
	return map[string]ActionHandler{}
}
