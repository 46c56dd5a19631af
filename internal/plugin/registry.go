package plugin

import (
	"sync"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/hostlist"
)

// Registry is the unified facade over a plugin's three contribution kinds —
// service, strategy, hostlist — so Manager has one call-site per kind
// instead of juggling three ad-hoc maps itself (supplemented from
// services/registry.rs: "manager owns registries"). Services and strategies
// are keyed by their own id (`service.id`/`strategy.id`, as
// `registry.rs`'s `services.insert(service.id.clone(), service)` does),
// not by the contributing plugin's id — a plugin's top-level id and the id
// of the entity it contributes are distinct fields and need not match.
// pluginID is kept as a separate owner back-reference purely so
// UnregisterByPlugin can find everything one plugin contributed.
type Registry struct {
	mu            sync.Mutex
	services      map[string]domain.Service
	serviceOwner  map[string]string // service id -> owning plugin id
	strategies    map[string]domain.Strategy
	strategyOwner map[string]string // strategy id -> owning plugin id
	hostlists     *hostlist.Registry
}

// NewRegistry creates a Registry backed by the given hostlist registry.
func NewRegistry(hostlists *hostlist.Registry) *Registry {
	return &Registry{
		services:      make(map[string]domain.Service),
		serviceOwner:  make(map[string]string),
		strategies:    make(map[string]domain.Strategy),
		strategyOwner: make(map[string]string),
		hostlists:     hostlists,
	}
}

// RegisterService records svc, contributed by pluginID, keyed by svc.ID.
func (r *Registry) RegisterService(pluginID string, svc domain.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
	r.serviceOwner[svc.ID] = pluginID
}

// RegisterStrategy records strategy, contributed by pluginID, keyed by
// strategy.ID.
func (r *Registry) RegisterStrategy(pluginID string, strategy domain.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[strategy.ID] = strategy
	r.strategyOwner[strategy.ID] = pluginID
}

// RegisterHostlistInline records pluginID's inline-domains hostlist
// contribution directly into the hostlist registry.
func (r *Registry) RegisterHostlistInline(h domain.Hostlist) {
	r.hostlists.Register(h)
}

// RegisterHostlistFile loads pluginID's file-backed hostlist contribution.
func (r *Registry) RegisterHostlistFile(id, name string, format domain.HostlistFormat, category, pluginID, path string) error {
	return r.hostlists.RegisterFromFile(id, name, format, category, pluginID, path, true)
}

// UnregisterByPlugin removes every contribution pluginID made across all
// three sub-registries. A no-op for a plugin id with no contributions.
func (r *Registry) UnregisterByPlugin(pluginID string) {
	r.mu.Lock()
	for id, owner := range r.serviceOwner {
		if owner == pluginID {
			delete(r.services, id)
			delete(r.serviceOwner, id)
		}
	}
	for id, owner := range r.strategyOwner {
		if owner == pluginID {
			delete(r.strategies, id)
			delete(r.strategyOwner, id)
		}
	}
	r.mu.Unlock()
	r.hostlists.UnregisterByPlugin(pluginID)
}

// Services returns every registered plugin-contributed service.
func (r *Registry) Services() []domain.Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s)
	}
	return out
}

// GetStrategy implements engine.StrategyProvider for plugin-contributed
// strategies.
func (r *Registry) GetStrategy(id string) (domain.Strategy, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.strategies[id]
	return s, ok
}
