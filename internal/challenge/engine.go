package challenge

import (
	"errors"
	"strconv"
	"sync"

	"github.com/gatewarden/gatewarden/internal/conditions"
	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
)

// StepState is the per-request evaluation state of one auth step.
type StepState string

const (
	// StateConditionsInactive marks a surfaced step whose conditions do
	// not currently hold; it is excluded from the aggregate.
	StateConditionsInactive StepState = "conditions_inactive"
	StatePending            StepState = "pending"
	StateSolved             StepState = "solved"
)

// StepResult is the outcome of evaluating one auth step.
type StepResult struct {
	Step               *models.AuthStep
	State              StepState
	Included           bool // counts toward the authorization aggregate
	Visible            bool // rendered on the challenge page
	DisplayModel       map[string]interface{}
	ConditionSummaries []string
}

// Outcome aggregates all step results for a request.
type Outcome struct {
	Authorized bool
	Steps      []StepResult
}

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrNoMatchingStep = errors.New("no step of that challenge type on this route")
	ErrTokenNotFound  = errors.New("approval token not found")
)

// Engine orchestrates condition checks, challenge instantiation, solve
// bookkeeping, and action dispatch per configured auth step.
type Engine struct {
	deps *Deps

	mu      sync.Mutex
	actionM map[string]*sync.Mutex
}

func NewEngine(deps *Deps) *Engine {
	return &Engine{deps: deps, actionM: make(map[string]*sync.Mutex)}
}

// Deps exposes the engine's collaborator bundle for context building.
func (e *Engine) Deps() *Deps { return e.deps }

// Evaluate runs every auth step of the route in ascending order and
// aggregates into an allow/deny outcome. The request is authorized iff
// every included step is solved.
func (e *Engine) Evaluate(ctx *Context) Outcome {
	outcome := Outcome{Authorized: true}

	for i := range ctx.Route.AuthSteps {
		step := &ctx.Route.AuthSteps[i]
		stepCtx := *ctx
		stepCtx.Step = step

		result := e.evaluateStep(&stepCtx)
		if result.Included && result.State != StateSolved {
			outcome.Authorized = false
		}
		outcome.Steps = append(outcome.Steps, result)
	}
	return outcome
}

func (e *Engine) evaluateStep(ctx *Context) StepResult {
	step := ctx.Step
	summaries := conditionSummaries(step.Conditions)

	conditionsMet := conditions.Evaluate(step.Conditions, ctx.Facts)
	if !conditionsMet && ctx.Route.ShowChallengesWithUnmetConditions {
		// Surfaced but inactive: shown, never enforced, never counted.
		return StepResult{
			Step:               step,
			State:              StateConditionsInactive,
			Included:           false,
			Visible:            true,
			ConditionSummaries: summaries,
		}
	}
	// When unmet conditions are not surfaced the step deliberately falls
	// through and is enforced as if always active.

	ch, err := New(step.ChallengeTypeID, step.Config)
	if err != nil {
		// A broken type/config must fail closed: the step stays pending
		// and blocks authorization.
		logger.WithFields(map[string]interface{}{
			"step": step.ID,
			"type": step.ChallengeTypeID,
		}).WithError(err).Error("failed to instantiate challenge")
		return StepResult{Step: step, State: StatePending, Included: true, Visible: true, ConditionSummaries: summaries}
	}

	if ch.AutoCheckSolved(ctx) {
		if err := markSolved(ctx); err != nil {
			logger.Log().WithError(err).Error("failed to record auto-solve")
		}
	}

	solved, err := e.deps.Solved.IsSolved(ctx.Identity.ID, step, e.deps.Now())
	if err != nil {
		logger.Log().WithError(err).Error("failed to read solve state")
		solved = false
	}

	result := StepResult{
		Step:               step,
		Included:           true,
		ConditionSummaries: summaries,
	}
	if solved {
		result.State = StateSolved
		// Hidden completed steps still count as passed.
		result.Visible = ctx.Route.ShowCompletedChallenges
	} else {
		result.State = StatePending
		result.Visible = true
	}
	if result.Visible {
		result.DisplayModel = ch.CreateDisplayModel(ctx)
	}
	return result
}

// DispatchAction routes a client-invoked action to the first matching
// unsolved step of the given challenge type. Execution is serialized
// per (client, step) so cooldown-gated actions cannot race.
func (e *Engine) DispatchAction(ctx *Context, typeID, actionName string, payload []byte) (Result, error) {
	step, err := e.findActionStep(ctx, typeID)
	if err != nil {
		return Result{}, err
	}
	stepCtx := *ctx
	stepCtx.Step = step

	ch, err := New(step.ChallengeTypeID, step.Config)
	if err != nil {
		return Result{}, err
	}
	handler, okAction := ch.Actions()[actionName]
	if !okAction {
		return Result{}, ErrUnknownAction
	}

	unlock := e.lockStep(ctx.Identity.ID, step.ID)
	defer unlock()

	return handler(&stepCtx, payload), nil
}

// findActionStep picks the step an action applies to: the first step of
// the requested type that is not yet solved, falling back to the first
// of that type.
func (e *Engine) findActionStep(ctx *Context, typeID string) (*models.AuthStep, error) {
	var fallback *models.AuthStep
	now := e.deps.Now()
	for i := range ctx.Route.AuthSteps {
		step := &ctx.Route.AuthSteps[i]
		if step.ChallengeTypeID != typeID {
			continue
		}
		if fallback == nil {
			fallback = step
		}
		solved, err := e.deps.Solved.IsSolved(ctx.Identity.ID, step, now)
		if err == nil && !solved {
			return step, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoMatchingStep
}

// Approve resolves an approval token back to the (client, step) that
// requested it and records the solve on the requester's behalf.
func (e *Engine) Approve(ctx *Context, token string) error {
	clientID, stepID, found, err := e.deps.State.FindByValue(approvalStateToken, token)
	if err != nil {
		return err
	}
	if !found {
		return ErrTokenNotFound
	}

	identity := &models.ClientIdentity{ID: clientID}
	var step *models.AuthStep
	for i := range ctx.Route.AuthSteps {
		if ctx.Route.AuthSteps[i].ID == stepID {
			step = &ctx.Route.AuthSteps[i]
			break
		}
	}
	if step == nil {
		return ErrTokenNotFound
	}

	solveCtx := *ctx
	solveCtx.Identity = identity
	solveCtx.Step = step
	return markSolved(&solveCtx)
}

// SetUnsolved revokes the solve for the context's (client, step).
func (e *Engine) SetUnsolved(ctx *Context) error {
	return markUnsolved(ctx)
}

func (e *Engine) lockStep(clientID string, stepID uint) func() {
	key := clientID + "|" + strconv.FormatUint(uint64(stepID), 10)

	e.mu.Lock()
	m, okLock := e.actionM[key]
	if !okLock {
		m = &sync.Mutex{}
		e.actionM[key] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func conditionSummaries(conds []models.Condition) []string {
	if len(conds) == 0 {
		return nil
	}
	out := make([]string, 0, len(conds))
	for i := range conds {
		out = append(out, conds[i].Summary())
	}
	return out
}
