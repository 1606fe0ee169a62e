package challenge

import (
	"encoding/json"
)

// adminLoginChallenge delegates credential checks to the operator
// account store; it carries no configuration of its own.
type adminLoginChallenge struct{}

func newAdminLogin(json.RawMessage) (Challenge, error) {
	return &adminLoginChallenge{}, nil
}

func (a *adminLoginChallenge) CreateDisplayModel(ctx *Context) map[string]interface{} {
	return map[string]interface{}{"kind": "adminLogin"}
}

func (a *adminLoginChallenge) AutoCheckSolved(ctx *Context) bool { return false }

func (a *adminLoginChallenge) Actions() map[string]ActionHandler {
	return map[string]ActionHandler{
		"verifyLogin": action(a.verifyLogin),
	}
}

func (a *adminLoginChallenge) verifyLogin(ctx *Context, req loginPayload) Result {
	op, err := ctx.Deps.Operators.FindByUsername(req.Username)
	if err != nil {
		return fail("invalid credentials")
	}
	if !ctx.Deps.Verifier.VerifyPassword(op.PasswordHash, req.Password) {
		return fail("invalid credentials")
	}
	if op.TOTPEnabled && !ctx.Deps.Verifier.VerifyTOTP(op.TOTPSecret, req.TOTP) {
		return fail("invalid one-time code")
	}

	if err := markSolved(ctx); err != nil {
		return fail("failed to record solve")
	}
	return ok()
}
