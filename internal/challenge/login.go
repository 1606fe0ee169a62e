package challenge

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/gatewarden/gatewarden/internal/placeholder"
)

type loginConfig struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTPSecret string `json:"totp_secret,omitempty"`
}

// loginChallenge checks a statically configured username/password pair,
// optionally with a TOTP second factor.
type loginChallenge struct {
	cfg loginConfig
}

func newLogin(config json.RawMessage) (Challenge, error) {
	var cfg loginConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, err
	}
	return &loginChallenge{cfg: cfg}, nil
}

func (l *loginChallenge) CreateDisplayModel(ctx *Context) map[string]interface{} {
	return map[string]interface{}{
		"kind":         "login",
		"requiresTotp": l.cfg.TOTPSecret != "",
	}
}

func (l *loginChallenge) AutoCheckSolved(ctx *Context) bool { return false }

func (l *loginChallenge) Actions() map[string]ActionHandler {
	return map[string]ActionHandler{
		"verifyLogin": action(l.verifyLogin),
	}
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTP     string `json:"totp,omitempty"`
}

func (l *loginChallenge) verifyLogin(ctx *Context, req loginPayload) Result {
	// The configured password may carry placeholders (e.g. rotate by
	// date); resolve before comparison.
	wantPassword := placeholder.Resolve(l.cfg.Password, ctx.Placeholders(nil))

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(l.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(wantPassword)) == 1
	if !userOK || !passOK {
		return fail("invalid credentials")
	}

	if l.cfg.TOTPSecret != "" && !ctx.Deps.Verifier.VerifyTOTP(l.cfg.TOTPSecret, req.TOTP) {
		return fail("invalid one-time code")
	}

	if err := markSolved(ctx); err != nil {
		return fail("failed to record solve")
	}
	return ok()
}
