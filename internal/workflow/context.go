package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TriggerInput is the deterministic input a triggered run starts from. Every
// field comes from the engine's trigger event; in particular ScheduledTime
// is the authoritative scheduled firing time, never a wall-clock read.
type TriggerInput struct {
	RunID         string    `json:"run_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Token         string    `json:"token"`
}

// Event is one recorded activity result. The sequence of events is the only
// history an orchestration may branch on during replay.
type Event struct {
	Step     int    `json:"step"`
	Activity string `json:"activity"`
	Result   []byte `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Command is one activity invocation an orchestration asked for, in order.
// Replays of the same orchestration over the same history must emit an
// identical command sequence.
type Command struct {
	Step     int    `json:"step"`
	Activity string `json:"activity"`
	Key      string `json:"key"`
}

// ActivityRequest is handed to the Invoker for live execution. Activities
// are the only code permitted to perform I/O, and every activity must be
// safe to execute more than once for the same logical step; Key is the
// idempotency key it uses to de-duplicate its side effect.
type ActivityRequest struct {
	RunID    string
	Activity string
	Step     int
	Key      string
	Input    []byte
}

// Invoker performs the actual activity I/O on behalf of an orchestration.
type Invoker interface {
	Invoke(ctx context.Context, req ActivityRequest) ([]byte, error)
}

// Context mediates everything an orchestration may observe: its run ID, the
// engine-provided scheduled time, and recorded activity results. During
// replay, ExecuteActivity serves results from history without touching the
// invoker; a mismatch between history and the code's requested step is a
// nondeterminism error.
type Context struct {
	base          context.Context
	runID         string
	scheduledTime time.Time
	invoker       Invoker
	history       []Event
	commands      []Command
}

// NewContext builds an orchestration context. history carries the recorded
// events from a prior attempt, or nil for a first execution.
func NewContext(ctx context.Context, input TriggerInput, invoker Invoker, history []Event) *Context {
	return &Context{
		base:          ctx,
		runID:         input.RunID,
		scheduledTime: input.ScheduledTime,
		invoker:       invoker,
		history:       history,
	}
}

// RunID returns the triggered run's stable identity.
func (c *Context) RunID() string {
	return c.runID
}

// ScheduledTime returns the authoritative scheduled firing time from the
// trigger event. Orchestration code must use this instead of the wall clock
// so replay reproduces the exact same decision from the same inputs.
func (c *Context) ScheduledTime() time.Time {
	return c.scheduledTime
}

// ExecuteActivity runs (or replays) one activity step. Steps are numbered by
// call order; the idempotency key for each step is derived from
// (runID, activity, step) so re-execution of the same logical step
// de-duplicates at the point of write.
func (c *Context) ExecuteActivity(activity string, input []byte) ([]byte, error) {
	step := len(c.commands)
	key := IdempotencyKey(c.runID, activity, step)
	c.commands = append(c.commands, Command{Step: step, Activity: activity, Key: key})

	if step < len(c.history) {
		recorded := c.history[step]
		if recorded.Activity != activity {
			return nil, fmt.Errorf("%w: step %d recorded %q, code requested %q",
				ErrNondeterministic, step, recorded.Activity, activity)
		}
		if recorded.Error != "" {
			return nil, errors.New(recorded.Error)
		}
		return recorded.Result, nil
	}

	result, err := c.invoker.Invoke(c.base, ActivityRequest{
		RunID:    c.runID,
		Activity: activity,
		Step:     step,
		Key:      key,
		Input:    input,
	})

	event := Event{Step: step, Activity: activity, Result: result}
	if err != nil {
		event.Error = err.Error()
	}
	c.history = append(c.history, event)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Commands returns the activity invocations requested so far, in order.
func (c *Context) Commands() []Command {
	return c.commands
}

// History returns the recorded events, including any appended by live
// execution. Persisting this is what makes the next attempt a replay.
func (c *Context) History() []Event {
	return c.history
}
