package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunState is what survives one execution attempt: the command sequence the
// orchestration emitted and the history that makes the next attempt a
// replay.
type RunState struct {
	RunID    string
	Commands []Command
	History  []Event
	Err      error
	Elapsed  time.Duration
}

// Executor resolves trigger tokens against the registry and runs
// orchestrations under the determinism boundary.
type Executor struct {
	logger   *zap.Logger
	registry *Registry
	invoker  Invoker
}

// NewExecutor creates an executor.
func NewExecutor(registry *Registry, invoker Invoker, logger *zap.Logger) *Executor {
	return &Executor{
		logger:   logger.Named("executor"),
		registry: registry,
		invoker:  invoker,
	}
}

// Run executes (or replays, when history is non-nil) one triggered run.
// The orchestration's own error is carried in the returned state, not the
// error return: only lookup failures prevent a run state from existing.
func (e *Executor) Run(ctx context.Context, input TriggerInput, history []Event) (*RunState, error) {
	orchestration, err := e.registry.Lookup(input.Token)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	wctx := NewContext(ctx, input, e.invoker, history)
	runErr := orchestration.Execute(wctx, input)

	state := &RunState{
		RunID:    input.RunID,
		Commands: wctx.Commands(),
		History:  wctx.History(),
		Err:      runErr,
		Elapsed:  time.Since(started),
	}

	if runErr != nil {
		e.logger.Warn("Orchestration failed",
			zap.String("run_id", input.RunID),
			zap.String("token", input.Token),
			zap.Error(runErr))
		return state, nil
	}

	e.logger.Info("Orchestration completed",
		zap.String("run_id", input.RunID),
		zap.String("token", input.Token),
		zap.Int("steps", len(state.Commands)),
		zap.Duration("elapsed", state.Elapsed))
	return state, nil
}
