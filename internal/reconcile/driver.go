package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/governance-reconciler/internal/controlplane"
	"github.com/t77yq/governance-reconciler/internal/grant"
	"github.com/t77yq/governance-reconciler/internal/model"
)

// Input is the validated configuration one reconciliation pass runs against.
// It is loaded once per pass and passed explicitly; nothing in the driver
// reads ambient state.
type Input struct {
	// PrincipalID is the fixed system principal schedules run as.
	PrincipalID string

	// GrantScope is the bounded capability granted to the principal.
	GrantScope string

	// Desired is the ordered list of declared schedules.
	Desired []model.DesiredSchedule
}

// Driver runs one reconciliation pass: ensure the execution grant, fetch the
// observed schedule set, diff it against the desired set, and apply each
// action through the control-plane port. The pass is idempotent: a second
// run with unchanged configuration yields all-skip outcomes and a no-op
// grant upsert.
type Driver struct {
	logger      *zap.Logger
	engine      controlplane.Port
	grants      *grant.Provisioner
	callTimeout time.Duration
}

// NewDriver creates a reconciliation driver. callTimeout bounds every
// individual control-plane call.
func NewDriver(engine controlplane.Port, grants *grant.Provisioner, callTimeout time.Duration, logger *zap.Logger) *Driver {
	return &Driver{
		logger:      logger.Named("reconcile"),
		engine:      engine,
		grants:      grants,
		callTimeout: callTimeout,
	}
}

// Reconcile executes one pass. Fatal errors (grant provisioning, listing
// observed schedules, configuration defects surfaced by the diff) abort the
// pass before any schedule mutation and are returned as errors. A failure
// applying one action is recorded in that identity's outcome and does not
// block the remaining actions.
func (d *Driver) Reconcile(ctx context.Context, input Input) (*model.PassResult, error) {
	result := &model.PassResult{
		PassID:    uuid.New().String(),
		StartedAt: time.Now(),
	}

	d.logger.Info("Starting reconciliation pass",
		zap.String("pass_id", result.PassID),
		zap.Int("desired", len(input.Desired)))

	if err := d.ensureGrant(ctx, input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrantProvision, err)
	}

	observed, err := d.listObserved(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListSchedules, err)
	}

	actions, err := Diff(input.Desired, observed)
	if err != nil {
		return nil, err
	}

	for _, action := range actions {
		result.Outcomes = append(result.Outcomes, d.apply(ctx, action))
	}

	result.FinishedAt = time.Now()

	failures := result.Failures()
	d.logger.Info("Reconciliation pass finished",
		zap.String("pass_id", result.PassID),
		zap.Int("actions", len(result.Outcomes)),
		zap.Int("failures", len(failures)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))

	return result, nil
}

func (d *Driver) ensureGrant(ctx context.Context, input Input) error {
	grantCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	return d.grants.Ensure(grantCtx, input.PrincipalID, input.GrantScope)
}

func (d *Driver) listObserved(ctx context.Context) ([]model.ObservedSchedule, error) {
	listCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	return d.engine.ListSchedules(listCtx, Namespace)
}

// apply issues the control-plane call for one action and records the
// outcome. A timeout is treated like any other apply failure.
func (d *Driver) apply(ctx context.Context, action Action) model.Outcome {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	var (
		kind model.OutcomeKind
		err  error
	)

	switch action.Kind {
	case ActionCreate:
		kind = model.OutcomeCreated
		err = d.engine.CreateSchedule(callCtx, controlplane.CreateRequest{
			Identity:   action.Identity,
			Expression: action.Schedule.Expression,
			Timezone:   action.Schedule.Timezone,
			Token:      action.Schedule.Token,
			Policy:     model.DefaultPolicy(),
		})
	case ActionResume:
		kind = model.OutcomeResumed
		err = d.engine.ResumeSchedule(callCtx, action.Identity)
	case ActionPrune:
		// Prune pauses, never deletes.
		kind = model.OutcomePruned
		err = d.engine.PauseSchedule(callCtx, action.Identity)
	default:
		kind = model.OutcomeSkipped
	}

	outcome := model.Outcome{Identity: action.Identity, Kind: kind}
	if err != nil {
		outcome.Error = err.Error()
		d.logger.Warn("Failed to apply schedule action",
			zap.String("identity", action.Identity),
			zap.String("action", string(action.Kind)),
			zap.Error(err))
		return outcome
	}

	d.logger.Info("Applied schedule action",
		zap.String("identity", action.Identity),
		zap.String("action", string(action.Kind)))
	return outcome
}
