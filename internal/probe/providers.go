package probe

import (
	"context"
	"sync"

	"github.com/whitebite/isolate-core/internal/domain"
)

// Provider runs one probe kind. Registering new Providers lets a caller
// (notably the plugin manager) add probe kinds beyond the five built-in
// TestDefinition variants without touching the dispatch switch in run —
// supplements the dispatch the way `core/providers.rs` does.
type Provider interface {
	Kind() domain.TestKind
	Run(ctx context.Context, c *Client, test domain.TestDefinition, critical bool) domain.ProbeResult
}

// Registry holds additional providers keyed by kind, consulted by
// runWithRegistry before it falls back to Client.run's built-in kinds.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.TestKind]Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.TestKind]Provider)}
}

// Register adds or replaces the provider for its Kind().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
}

// Lookup returns the provider registered for kind, if any.
func (r *Registry) Lookup(kind domain.TestKind) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	return p, ok
}

// runWithRegistry dispatches through reg before falling back to the five
// built-in kinds, letting plugin-contributed probe kinds participate in
// RunService/RunServices without a built-in case.
func (c *Client) runWithRegistry(ctx context.Context, reg *Registry, test domain.TestDefinition, critical bool) domain.ProbeResult {
	if reg != nil {
		if p, ok := reg.Lookup(test.Kind); ok {
			result := p.Run(ctx, c, test, critical)
			result.Critical = critical
			return result
		}
	}
	return c.run(ctx, test, critical)
}
