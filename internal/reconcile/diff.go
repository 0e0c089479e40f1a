package reconcile

import (
	"fmt"

	"github.com/t77yq/governance-reconciler/internal/model"
)

// ActionKind classifies what the driver must do for one schedule identity.
type ActionKind string

const (
	// ActionCreate registers a new schedule with the engine.
	ActionCreate ActionKind = "create"

	// ActionResume unpauses an existing schedule.
	ActionResume ActionKind = "resume"

	// ActionSkip leaves an existing active schedule untouched. An active
	// schedule is never updated even if its expression or timezone changed
	// in configuration: the control-plane port has no update primitive.
	ActionSkip ActionKind = "skip"

	// ActionPrune pauses a schedule that is no longer declared. Pruning
	// never deletes: a future configuration revision may reintroduce the
	// same key.
	ActionPrune ActionKind = "prune"
)

// Action is one decided mutation (or deliberate non-mutation) for a schedule
// identity. Schedule is set only for ActionCreate.
type Action struct {
	Kind     ActionKind
	Identity string
	Schedule *model.DesiredSchedule
}

// Diff compares the desired schedule set against the observed one and
// classifies every identity into create, resume, skip, or prune.
//
// Actions are emitted in a stable order: create/resume/skip in desired-list
// order, then prunes in observed-list order, so identical inputs always
// yield an identical action sequence. Observed schedules outside the
// reconciler's namespace are never classified.
func Diff(desired []model.DesiredSchedule, observed []model.ObservedSchedule) ([]Action, error) {
	identities := make(map[string]string, len(desired)) // identity -> source key

	observedByIdentity := make(map[string]model.ObservedSchedule, len(observed))
	for _, obs := range observed {
		observedByIdentity[obs.Identity] = obs
	}

	actions := make([]Action, 0, len(desired)+len(observed))

	for i := range desired {
		schedule := desired[i]
		id := Identity(schedule.Key)
		if prior, ok := identities[id]; ok {
			return nil, fmt.Errorf("%w: keys %q and %q both derive %q",
				ErrDuplicateIdentity, prior, schedule.Key, id)
		}
		identities[id] = schedule.Key

		obs, exists := observedByIdentity[id]
		switch {
		case !exists:
			actions = append(actions, Action{Kind: ActionCreate, Identity: id, Schedule: &schedule})
		case obs.Paused:
			actions = append(actions, Action{Kind: ActionResume, Identity: id})
		default:
			actions = append(actions, Action{Kind: ActionSkip, Identity: id})
		}
	}

	for _, obs := range observed {
		if !InNamespace(obs.Identity) {
			continue
		}
		if _, wanted := identities[obs.Identity]; wanted {
			continue
		}
		actions = append(actions, Action{Kind: ActionPrune, Identity: obs.Identity})
	}

	return actions, nil
}
