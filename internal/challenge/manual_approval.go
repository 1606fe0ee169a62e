package challenge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/placeholder"
)

type manualApprovalConfig struct {
	WebhookURL string `json:"webhook_url"`
	Method     string `json:"method,omitempty"`
}

// State keys used by the manual approval protocol.
const (
	approvalStateRequestedAt = "approval-requested-at"
	approvalStateToken       = "approval-token"
	approvalStateEasyCode    = "approval-easy-code"
)

const approvalCooldown = 5 * time.Minute

// manualApprovalChallenge notifies an out-of-band approver with a link;
// visiting the link solves the step for the requesting client. The easy
// code lets the client and approver correlate the request verbally.
type manualApprovalChallenge struct {
	cfg manualApprovalConfig
}

func newManualApproval(config json.RawMessage) (Challenge, error) {
	var cfg manualApprovalConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, err
	}
	return &manualApprovalChallenge{cfg: cfg}, nil
}

func (m *manualApprovalChallenge) CreateDisplayModel(ctx *Context) map[string]interface{} {
	easyCode, _, _ := ctx.GetState(approvalStateEasyCode)
	_, requested, _ := ctx.GetState(approvalStateRequestedAt)
	return map[string]interface{}{
		"kind":      "manualApproval",
		"requested": requested,
		"easyCode":  easyCode,
	}
}

func (m *manualApprovalChallenge) AutoCheckSolved(ctx *Context) bool { return false }

func (m *manualApprovalChallenge) Actions() map[string]ActionHandler {
	return map[string]ActionHandler{
		"requestApproval": action(m.requestApproval),
	}
}

func (m *manualApprovalChallenge) requestApproval(ctx *Context, _ emptyPayload) Result {
	now := ctx.Deps.Now()
	touched, err := ctx.Deps.State.TouchIfOlder(ctx.Identity.ID, ctx.Step.ID, approvalStateRequestedAt, now, approvalCooldown)
	if err != nil {
		return fail("failed to check request cooldown")
	}
	if !touched {
		return fail("approval was requested recently; wait a few minutes before asking again")
	}

	// Token and easy code are generated once per (client, step) and
	// reused across repeat requests.
	token, found, err := ctx.GetState(approvalStateToken)
	if err != nil {
		return fail("failed to read approval state")
	}
	if !found {
		token = uuid.New().String()
		if err := ctx.SetState(approvalStateToken, token); err != nil {
			return fail("failed to store approval token")
		}
	}

	easyCode, found, err := ctx.GetState(approvalStateEasyCode)
	if err != nil {
		return fail("failed to read approval state")
	}
	if !found {
		easyCode, err = randomCode()
		if err != nil {
			return fail("failed to generate code")
		}
		if err := ctx.SetState(approvalStateEasyCode, easyCode); err != nil {
			return fail("failed to store code")
		}
	}

	approvalURL := ctx.ApprovalBaseURL + "/proxyAuth/approve/" + token
	values := placeholder.Values{
		"approvalUrl": approvalURL,
		"easyCode":    easyCode,
	}
	if err := callWebhook(ctx, m.cfg.WebhookURL, m.cfg.Method, values); err != nil {
		return fail("failed to notify approver: " + err.Error())
	}

	ctx.Deps.Notifier.TryNotify(models.TriggerApprovalRequest, ctx.Placeholders(values))
	return okData(map[string]interface{}{"easyCode": easyCode})
}
