package challenge

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/placeholder"
)

type otpConfig struct {
	WebhookURL string `json:"webhook_url"`
	Method     string `json:"method,omitempty"`
}

// State keys used by the OTP protocol.
const (
	otpStateCode   = "otp-code"
	otpStateSentAt = "otp-sent-at"
)

// otpCooldown gates resends; otpValidity bounds how long a delivered
// code stays solvable.
const (
	otpCooldown = 5 * time.Minute
	otpValidity = 5 * time.Minute
)

// otpChallenge delivers a short code through an operator-configured
// webhook and solves on a matching entry within the validity window.
type otpChallenge struct {
	cfg otpConfig
}

func newOTP(config json.RawMessage) (Challenge, error) {
	var cfg otpConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, err
	}
	return &otpChallenge{cfg: cfg}, nil
}

func (o *otpChallenge) CreateDisplayModel(ctx *Context) map[string]interface{} {
	_, sent, _ := ctx.GetState(otpStateSentAt)
	return map[string]interface{}{
		"kind":     "otp",
		"codeSent": sent,
	}
}

func (o *otpChallenge) AutoCheckSolved(ctx *Context) bool { return false }

func (o *otpChallenge) Actions() map[string]ActionHandler {
	return map[string]ActionHandler{
		"trySendOTP":  action(o.trySendOTP),
		"trySolveOTP": action(o.trySolveOTP),
	}
}

type emptyPayload struct{}

// trySendOTP generates, stores, and delivers a fresh code. The cooldown
// check-then-act is a conditional timestamp write, so two concurrent
// sends cannot both pass, and a send inside the cooldown never rotates
// the stored code.
func (o *otpChallenge) trySendOTP(ctx *Context, _ emptyPayload) Result {
	now := ctx.Deps.Now()
	touched, err := ctx.Deps.State.TouchIfOlder(ctx.Identity.ID, ctx.Step.ID, otpStateSentAt, now, otpCooldown)
	if err != nil {
		return fail("failed to check send cooldown")
	}
	if !touched {
		return fail("a code was sent recently; wait a few minutes before requesting another")
	}

	code, err := randomCode()
	if err != nil {
		return fail("failed to generate code")
	}
	if err := ctx.SetState(otpStateCode, code); err != nil {
		return fail("failed to store code")
	}

	if err := callWebhook(ctx, o.cfg.WebhookURL, o.cfg.Method, placeholder.Values{"code": code}); err != nil {
		return fail("failed to deliver code: " + err.Error())
	}

	ctx.Deps.Notifier.TryNotify(models.TriggerOTPSend, ctx.Placeholders(placeholder.Values{
		"route": ctx.Route.Subdomain,
	}))
	return ok()
}

type otpSolvePayload struct {
	Code string `json:"code"`
}

// trySolveOTP accepts the code case-insensitively, but only within the
// validity window of the send that produced it.
func (o *otpChallenge) trySolveOTP(ctx *Context, req otpSolvePayload) Result {
	code, found, err := ctx.GetState(otpStateCode)
	if err != nil || !found {
		return fail("no code was requested")
	}
	sentAtRaw, found, err := ctx.GetState(otpStateSentAt)
	if err != nil || !found {
		return fail("no code was requested")
	}
	sentAt, err := time.Parse(time.RFC3339, sentAtRaw)
	if err != nil {
		return fail("no code was requested")
	}
	if ctx.Deps.Now().Sub(sentAt) >= otpValidity {
		return fail("the code has expired; request a new one")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Code), code) {
		return fail("incorrect code")
	}

	if err := markSolved(ctx); err != nil {
		return fail("failed to record solve")
	}
	return ok()
}
