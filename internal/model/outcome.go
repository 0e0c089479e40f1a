package model

import (
	"time"
)

// OutcomeKind classifies what the reconciler did for one schedule identity.
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeResumed OutcomeKind = "resumed"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomePruned  OutcomeKind = "pruned"
)

// Outcome is the result of applying one reconciliation action. Error is set
// when the control-plane call for this identity failed; the failure never
// blocks the remaining actions of the pass.
type Outcome struct {
	Identity string      `json:"identity"`
	Kind     OutcomeKind `json:"kind"`
	Error    string      `json:"error,omitempty"`
}

// Failed reports whether applying this identity's action failed.
func (o Outcome) Failed() bool {
	return o.Error != ""
}

// PassResult is the machine-readable summary of one reconciliation pass.
// Outcomes preserve the stable apply order of the pass.
type PassResult struct {
	PassID     string    `json:"pass_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Counts returns the number of outcomes per kind.
func (r *PassResult) Counts() map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int, 4)
	for _, o := range r.Outcomes {
		counts[o.Kind]++
	}
	return counts
}

// Failures returns the outcomes whose action failed to apply. The invoking
// deploy tooling decides whether any failure should fail the deployment.
func (r *PassResult) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}
