package workflow

import (
	"fmt"
	"strings"
	"time"
)

// RunIDFor derives the stable identity of a triggered run from its schedule
// identity and the engine-provided scheduled firing time. Re-delivery of the
// same firing event maps to the same run ID, so at most one logical run
// starts per firing.
func RunIDFor(scheduleIdentity string, scheduledTime time.Time) string {
	return scheduleIdentity + "@" + scheduledTime.UTC().Format(time.RFC3339)
}

// IdempotencyKey derives the key an activity uses to de-duplicate its side
// effect at the point of write. Pure: the same (run, activity, step) triple
// always yields the same key, so an at-least-once retry of the same logical
// step collapses onto one write.
func IdempotencyKey(runID, activity string, step int) string {
	return strings.Join([]string{runID, activity, fmt.Sprintf("%d", step)}, "/")
}
