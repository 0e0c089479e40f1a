package model

import (
	"time"
)

// ExecutionGrant is a persisted capability record authorizing a fixed system
// principal to execute a bounded scope (e.g. "execute:governance-graph").
// At most one grant exists per (principal, scope) pair; the provisioner's
// upsert is a no-op when the record is already present. Grants are never
// revoked by this subsystem.
type ExecutionGrant struct {
	PrincipalID string    `json:"principal_id"`
	Scope       string    `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
}
