package model

import (
	"time"
)

// DesiredSchedule is one configuration-declared recurring trigger. Instances
// are immutable once loaded for a reconciliation pass.
type DesiredSchedule struct {
	// Key uniquely names the schedule within the configuration, e.g. a
	// charter name. Uniqueness after identity normalization is asserted
	// before any engine call.
	Key string `json:"key" mapstructure:"key"`

	// Expression is a 5-field cron recurrence expression.
	Expression string `json:"expression" mapstructure:"expression"`

	// Timezone is an IANA zone name. Defaults to UTC when empty.
	Timezone string `json:"timezone" mapstructure:"timezone"`

	// Token is the opaque entrypoint token passed as the triggered
	// workflow's argument.
	Token string `json:"token" mapstructure:"token"`
}

// ObservedSchedule is a schedule as currently known to the workflow engine.
// Fetched fresh at the start of every reconciliation pass.
type ObservedSchedule struct {
	Identity string `json:"identity"`
	Paused   bool   `json:"paused"`
}

// ScheduleRecord is the engine-side representation of a schedule, stored in
// the engine's schedule registry and carried on lifecycle events.
type ScheduleRecord struct {
	Identity   string         `json:"identity"`
	Expression string         `json:"expression"`
	Timezone   string         `json:"timezone"`
	Token      string         `json:"token"`
	Paused     bool           `json:"paused"`
	Policy     SchedulePolicy `json:"policy"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// OverlapPolicy controls what happens when a firing occurs while a previous
// triggered run for the same identity has not finished.
type OverlapPolicy string

const (
	// OverlapSkip drops the new firing rather than queueing it or running
	// it concurrently.
	OverlapSkip OverlapPolicy = "skip"
)

// SchedulePolicy is the safety policy attached to every schedule this
// subsystem creates. It is fixed and non-configurable.
type SchedulePolicy struct {
	Overlap        OverlapPolicy `json:"overlap"`
	CatchupWindow  time.Duration `json:"catchup_window"`
	PauseOnFailure bool          `json:"pause_on_failure"`
}

// DefaultPolicy returns the policy applied to every created schedule:
// overlapping firings are skipped, missed firings are never backfilled, and
// repeated run failures pause the schedule until a human re-activates it.
func DefaultPolicy() SchedulePolicy {
	return SchedulePolicy{
		Overlap:        OverlapSkip,
		CatchupWindow:  0,
		PauseOnFailure: true,
	}
}
