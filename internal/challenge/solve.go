package challenge

import (
	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/placeholder"
)

// markSolved records a solve for the context's (client, step).
// Idempotent; the audit entry and completion notification fire only
// when the record is first created, not on refresh.
func markSolved(ctx *Context) error {
	created, err := ctx.Deps.Solved.SetSolved(ctx.Identity.ID, ctx.Step, ctx.Deps.Now())
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	ctx.Deps.Audit.Record(models.ActorClient, "challenge.solved", audit.Entry{
		ClientIdentityID: ctx.Identity.ID,
		ProxyRouteID:     &ctx.Route.ID,
		AuthStepID:       &ctx.Step.ID,
		Detail:           ctx.Step.ChallengeTypeID,
	})
	ctx.Deps.Notifier.TryNotify(models.TriggerClientCompletedChallenge, ctx.Placeholders(placeholder.Values{
		"route":     ctx.Route.Subdomain,
		"challenge": ctx.Step.ChallengeTypeID,
	}))
	return nil
}

// markUnsolved deletes the solve record if present. Audited, never
// notified.
func markUnsolved(ctx *Context) error {
	removed, err := ctx.Deps.Solved.SetUnsolved(ctx.Identity.ID, ctx.Step.ID)
	if err != nil {
		return err
	}
	if removed {
		ctx.Deps.Audit.Record(models.ActorClient, "challenge.unsolved", audit.Entry{
			ClientIdentityID: ctx.Identity.ID,
			ProxyRouteID:     &ctx.Route.ID,
			AuthStepID:       &ctx.Step.ID,
			Detail:           ctx.Step.ChallengeTypeID,
		})
	}
	return nil
}
