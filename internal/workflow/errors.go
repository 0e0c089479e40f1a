package workflow

import "errors"

var (
	// ErrNondeterministic is returned when replaying orchestration code
	// requests a different step than the recorded history contains. The
	// orchestration has observed something outside its recorded inputs.
	ErrNondeterministic = errors.New("orchestration diverged from recorded history")

	// ErrUnknownEntrypoint is returned when no orchestration is registered
	// for a trigger token.
	ErrUnknownEntrypoint = errors.New("unknown orchestration entrypoint")

	// ErrDuplicateEntrypoint is returned when two orchestrations register
	// under the same token.
	ErrDuplicateEntrypoint = errors.New("duplicate orchestration entrypoint")
)
