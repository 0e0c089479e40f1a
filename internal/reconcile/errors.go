package reconcile

import "errors"

var (
	// ErrDuplicateIdentity is returned when two desired schedules derive
	// the same identity after normalization. This is a configuration
	// error, not a retry condition.
	ErrDuplicateIdentity = errors.New("duplicate schedule identity")

	// ErrGrantProvision is returned when the execution grant could not be
	// provisioned. The pass aborts before any schedule mutation.
	ErrGrantProvision = errors.New("grant provisioning failed")

	// ErrListSchedules is returned when the observed schedule set could
	// not be fetched from the engine.
	ErrListSchedules = errors.New("failed to list observed schedules")
)
