package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeInvoker returns canned results per activity and records every request.
type fakeInvoker struct {
	results  map[string][]byte
	failures map[string]error
	requests []ActivityRequest
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		results:  make(map[string][]byte),
		failures: make(map[string]error),
	}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req ActivityRequest) ([]byte, error) {
	f.requests = append(f.requests, req)
	if err := f.failures[req.Activity]; err != nil {
		return nil, err
	}
	return f.results[req.Activity], nil
}

// deadInvoker fails the test if any activity actually executes. Used to
// prove that replay serves every step from history.
type deadInvoker struct {
	t *testing.T
}

func (d *deadInvoker) Invoke(ctx context.Context, req ActivityRequest) ([]byte, error) {
	d.t.Fatalf("replay invoked activity %q at step %d", req.Activity, req.Step)
	return nil, nil
}

// charterRun is a small governance orchestration: load the charter, branch
// on its health, publish findings stamped with the scheduled firing time.
type charterRun struct{}

func (charterRun) Execute(ctx *Context, input TriggerInput) error {
	charter, err := ctx.ExecuteActivity("load-charter", []byte(input.Token))
	if err != nil {
		return err
	}

	// Branching on a previously observed result is replay-safe.
	if string(charter) == "degraded" {
		if _, err := ctx.ExecuteActivity("escalate", charter); err != nil {
			return err
		}
	} else {
		if _, err := ctx.ExecuteActivity("evaluate-policies", charter); err != nil {
			return err
		}
	}

	stamp := ctx.ScheduledTime().UTC().Format(time.RFC3339)
	_, err = ctx.ExecuteActivity("publish-findings", []byte(stamp))
	return err
}

// driftingRun requests a different activity than charterRun recorded,
// standing in for orchestration code that changed between attempts.
type driftingRun struct{}

func (driftingRun) Execute(ctx *Context, input TriggerInput) error {
	_, err := ctx.ExecuteActivity("load-manifest", nil)
	return err
}

func triggerInput() TriggerInput {
	scheduled := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	return TriggerInput{
		RunID:         RunIDFor("governance.weekly-audit", scheduled),
		ScheduledTime: scheduled,
		Token:         "policy-audit",
	}
}

func newTestExecutor(t *testing.T, invoker Invoker) *Executor {
	t.Helper()

	registry := NewRegistry(zap.NewNop())
	require.NoError(t, registry.Register("policy-audit", charterRun{}))
	require.NoError(t, registry.Register("drifted-audit", driftingRun{}))
	return NewExecutor(registry, invoker, zap.NewNop())
}

func TestExecutorRun(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.results["load-charter"] = []byte("healthy")
	executor := newTestExecutor(t, invoker)

	state, err := executor.Run(context.Background(), triggerInput(), nil)
	require.NoError(t, err)
	require.NoError(t, state.Err)

	require.Len(t, state.Commands, 3)
	assert.Equal(t, "load-charter", state.Commands[0].Activity)
	assert.Equal(t, "evaluate-policies", state.Commands[1].Activity)
	assert.Equal(t, "publish-findings", state.Commands[2].Activity)

	// The published stamp is the engine-provided scheduled time, not a
	// wall-clock read.
	require.Len(t, invoker.requests, 3)
	assert.Equal(t, []byte("2026-03-02T07:00:00Z"), invoker.requests[2].Input)
}

func TestExecutorBranchesOnRecordedResult(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.results["load-charter"] = []byte("degraded")
	executor := newTestExecutor(t, invoker)

	state, err := executor.Run(context.Background(), triggerInput(), nil)
	require.NoError(t, err)
	require.NoError(t, state.Err)

	require.Len(t, state.Commands, 3)
	assert.Equal(t, "escalate", state.Commands[1].Activity)
}

func TestReplayServesHistoryWithoutIO(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.results["load-charter"] = []byte("healthy")
	executor := newTestExecutor(t, invoker)

	live, err := executor.Run(context.Background(), triggerInput(), nil)
	require.NoError(t, err)
	require.NoError(t, live.Err)

	// Replay over the recorded history: no activity may execute, and the
	// command sequence must be identical.
	replayExecutor := newTestExecutor(t, &deadInvoker{t: t})
	replayed, err := replayExecutor.Run(context.Background(), triggerInput(), live.History)
	require.NoError(t, err)
	require.NoError(t, replayed.Err)

	assert.Equal(t, live.Commands, replayed.Commands)
	assert.Equal(t, live.History, replayed.History)
}

func TestReplayDetectsNondeterminism(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.results["load-charter"] = []byte("healthy")
	executor := newTestExecutor(t, invoker)

	live, err := executor.Run(context.Background(), triggerInput(), nil)
	require.NoError(t, err)

	// Replay the recorded history through code that requests a different
	// first step.
	drifted := triggerInput()
	drifted.Token = "drifted-audit"
	state, err := executor.Run(context.Background(), drifted, live.History)
	require.NoError(t, err)
	require.Error(t, state.Err)
	assert.ErrorIs(t, state.Err, ErrNondeterministic)
}

func TestReplayReproducesActivityFailure(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.results["load-charter"] = []byte("healthy")
	invoker.failures["evaluate-policies"] = errors.New("policy engine down")
	executor := newTestExecutor(t, invoker)

	live, err := executor.Run(context.Background(), triggerInput(), nil)
	require.NoError(t, err)
	require.Error(t, live.Err)

	replayExecutor := newTestExecutor(t, &deadInvoker{t: t})
	replayed, err := replayExecutor.Run(context.Background(), triggerInput(), live.History)
	require.NoError(t, err)
	require.Error(t, replayed.Err)
	assert.Contains(t, replayed.Err.Error(), "policy engine down")
}

func TestExecutorUnknownEntrypoint(t *testing.T) {
	executor := newTestExecutor(t, newFakeInvoker())

	input := triggerInput()
	input.Token = "never-registered"
	_, err := executor.Run(context.Background(), input, nil)
	assert.ErrorIs(t, err, ErrUnknownEntrypoint)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	t.Run("Duplicate registration is rejected", func(t *testing.T) {
		require.NoError(t, registry.Register("policy-audit", charterRun{}))
		err := registry.Register("policy-audit", charterRun{})
		assert.ErrorIs(t, err, ErrDuplicateEntrypoint)
	})

	t.Run("Empty token is rejected", func(t *testing.T) {
		err := registry.Register("", charterRun{})
		require.Error(t, err)
	})

	t.Run("Lookup resolves registered token", func(t *testing.T) {
		o, err := registry.Lookup("policy-audit")
		require.NoError(t, err)
		assert.NotNil(t, o)
	})
}

func TestIdempotencyKey(t *testing.T) {
	runID := RunIDFor("governance.weekly-audit", time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))

	t.Run("Stable across calls", func(t *testing.T) {
		assert.Equal(t,
			IdempotencyKey(runID, "publish-findings", 2),
			IdempotencyKey(runID, "publish-findings", 2))
	})

	t.Run("Distinct across steps and activities", func(t *testing.T) {
		keys := map[string]bool{}
		for step := 0; step < 3; step++ {
			for _, activity := range []string{"load-charter", "publish-findings"} {
				keys[IdempotencyKey(runID, activity, step)] = true
			}
		}
		assert.Len(t, keys, 6)
	})
}

func TestRunIDFor(t *testing.T) {
	scheduled := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

	t.Run("Re-delivery of the same firing maps to one run", func(t *testing.T) {
		assert.Equal(t,
			RunIDFor("governance.weekly-audit", scheduled),
			RunIDFor("governance.weekly-audit", scheduled))
	})

	t.Run("Distinct firings map to distinct runs", func(t *testing.T) {
		assert.NotEqual(t,
			RunIDFor("governance.weekly-audit", scheduled),
			RunIDFor("governance.weekly-audit", scheduled.Add(7*24*time.Hour)))
	})

	t.Run("Normalizes to UTC", func(t *testing.T) {
		eastern, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		assert.Equal(t,
			RunIDFor("governance.weekly-audit", scheduled),
			RunIDFor("governance.weekly-audit", scheduled.In(eastern)))
	})
}
