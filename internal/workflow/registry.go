package workflow

import (
	"fmt"

	"go.uber.org/zap"
)

// Orchestration is one replay-safe entry point. Implementations must obey
// the determinism boundary: no network calls, no random numbers or UUIDs,
// no wall-clock reads. Every side effect goes through ctx.ExecuteActivity
// and its result is treated as an opaque recorded input.
type Orchestration interface {
	Execute(ctx *Context, input TriggerInput) error
}

// Registry is the closed set of orchestration entry points, looked up by the
// stable entrypoint token carried on each schedule. Registration happens
// once at startup; there is no dynamic dispatch.
type Registry struct {
	logger  *zap.Logger
	entries map[string]Orchestration
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:  logger.Named("workflow"),
		entries: make(map[string]Orchestration),
	}
}

// Register adds an orchestration under its entrypoint token.
func (r *Registry) Register(token string, o Orchestration) error {
	if token == "" {
		return fmt.Errorf("orchestration entrypoint token cannot be empty")
	}
	if _, exists := r.entries[token]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntrypoint, token)
	}

	r.entries[token] = o
	r.logger.Info("Registered orchestration", zap.String("token", token))
	return nil
}

// Lookup resolves an entrypoint token.
func (r *Registry) Lookup(token string) (Orchestration, error) {
	o, ok := r.entries[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntrypoint, token)
	}
	return o, nil
}

// Tokens returns the registered entrypoint tokens.
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.entries))
	for token := range r.entries {
		tokens = append(tokens, token)
	}
	return tokens
}
