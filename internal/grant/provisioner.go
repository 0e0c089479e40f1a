package grant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrMissingPrincipal is returned when the principal or scope is empty.
var ErrMissingPrincipal = errors.New("grant requires a principal and a scope")

// Provisioner ensures an execution grant exists before any scheduled
// workflow may run. Safe to call concurrently and repeatedly; overlapping
// reconciliation passes each no-op against an already-present grant.
type Provisioner struct {
	logger *zap.Logger
	store  Store
}

// NewProvisioner creates a provisioner backed by the given store.
func NewProvisioner(store Store, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		logger: logger.Named("grants"),
		store:  store,
	}
}

// Ensure upserts the grant for the fixed system principal. Any storage
// failure is fatal to the caller's pass: schedules must never be created
// against an ungranted principal.
func (p *Provisioner) Ensure(ctx context.Context, principalID, scope string) error {
	if principalID == "" || scope == "" {
		return ErrMissingPrincipal
	}

	if err := p.store.Upsert(ctx, principalID, scope); err != nil {
		return fmt.Errorf("failed to ensure grant for %s: %w", principalID, err)
	}

	p.logger.Debug("Execution grant ensured",
		zap.String("principal_id", principalID),
		zap.String("scope", scope))
	return nil
}
