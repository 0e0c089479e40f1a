package reconcile

import (
	"strings"
)

// Namespace is the identity prefix owned by this subsystem. Observed
// schedules outside the prefix belong to other subsystems sharing the same
// engine and are never touched. The separator is a dot because the engine's
// schedule-registry keys do not admit colons.
const Namespace = "governance."

// Identity derives the stable schedule identity for a desired schedule key.
// Derivation is pure: the same key always yields the same identity, and
// distinct keys must yield distinct identities (checked by Diff).
func Identity(key string) string {
	return Namespace + strings.ToLower(key)
}

// InNamespace reports whether an observed schedule identity is owned by this
// subsystem.
func InNamespace(identity string) bool {
	return strings.HasPrefix(identity, Namespace)
}
