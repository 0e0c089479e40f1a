package controlplane

import (
	"context"
	"errors"

	"github.com/t77yq/governance-reconciler/internal/model"
)

// ErrScheduleNotFound is returned when pausing or resuming a schedule the
// engine doesn't know.
var ErrScheduleNotFound = errors.New("schedule not found")

// CreateRequest carries everything the engine needs to register a schedule.
// Policy is always the fixed safety policy; callers don't get to vary it.
type CreateRequest struct {
	Identity   string
	Expression string
	Timezone   string
	Token      string
	Policy     model.SchedulePolicy
}

// Port is the narrow control-plane API this subsystem consumes from the
// workflow engine. There is deliberately no update and no delete primitive:
// an existing active schedule is never modified, and pruning pauses.
type Port interface {
	// ListSchedules returns the observed schedules whose identity carries
	// the given namespace prefix.
	ListSchedules(ctx context.Context, namespacePrefix string) ([]model.ObservedSchedule, error)

	// CreateSchedule registers a new schedule. Creating an identity that
	// already exists is a no-op success, so concurrent passes converge.
	CreateSchedule(ctx context.Context, req CreateRequest) error

	// PauseSchedule suspends future firings. Reversible.
	PauseSchedule(ctx context.Context, identity string) error

	// ResumeSchedule re-enables future firings.
	ResumeSchedule(ctx context.Context, identity string) error
}
