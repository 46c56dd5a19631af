// Package hostlist implements the hostlist registry. A hostlist is a
// named set of domains, plain (exact match of the whole domain) or wildcard (`*.x`
// matches x and every subdomain), registered inline or loaded from a file
// and optionally owned by a plugin.
package hostlist

import (
	"bufio"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
)

// Registry is the process-wide hostlist set, guarded by a single RWMutex —
// registrations are rare compared to the match queries a probe loop runs
// continuously.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]domain.Hostlist
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]domain.Hostlist)}
}

// Register adds or replaces h by id.
func (r *Registry) Register(h domain.Hostlist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[h.ID] = h
}

// RegisterFromFile loads domains from path (one per line, "#" comments
// stripped, blank lines ignored) and registers a hostlist built from them
//.
func (r *Registry) RegisterFromFile(id, name string, format domain.HostlistFormat, category, pluginID, path string, enabled bool) error {
	domains, err := loadDomainsFile(path)
	if err != nil {
		return errkit.ConfigError(path, err.Error())
	}
	r.Register(domain.Hostlist{
		ID: id, Name: name, Format: format, Domains: domains,
		Category: category, Enabled: enabled, PluginID: pluginID,
	})
	return nil
}

func loadDomainsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var domains []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		domains = append(domains, line)
	}
	return domains, scanner.Err()
}

// Unregister removes the hostlist with the given id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// UnregisterByPlugin removes every hostlist owned by pluginID, used when a
// plugin is unloaded.
func (r *Registry) UnregisterByPlugin(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.byID {
		if h.PluginID == pluginID {
			delete(r.byID, id)
		}
	}
}

// Get returns the hostlist with the given id.
func (r *Registry) Get(id string) (domain.Hostlist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	return h, ok
}

// SetEnabled toggles id's enabled flag, returning false if id is unknown.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	if !ok {
		return false
	}
	h.Enabled = enabled
	r.byID[id] = h
	return true
}

// GetDomains returns id's domain list, or nil if id is unknown.
func (r *Registry) GetDomains(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.byID[id].Domains...)
}

// MergeHostlists returns the deduplicated, sorted union of domains across
// the named hostlists, regardless of their enabled state.
func (r *Registry) MergeHostlists(ids []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, id := range ids {
		for _, d := range r.byID[id].Domains {
			seen[strings.ToLower(d)] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// MergeAllEnabled returns the deduplicated, sorted union of domains across
// every enabled hostlist.
func (r *Registry) MergeAllEnabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, h := range r.byID {
		if !h.Enabled {
			continue
		}
		for _, d := range h.Domains {
			seen[strings.ToLower(d)] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DomainMatchesAny reports whether domain matches any entry of h, honoring
// h's format: plain is a case-insensitive exact match of the whole domain
// (no eTLD+1 reduction), wildcard also matches subdomains.
func DomainMatchesAny(h domain.Hostlist, target string) bool {
	target = strings.ToLower(target)
	for _, d := range h.Domains {
		d = strings.ToLower(d)
		if h.Format == domain.HostlistWildcard {
			if target == d || strings.HasSuffix(target, "."+d) {
				return true
			}
			continue
		}
		if target == d {
			return true
		}
	}
	return false
}

// FindMatchingHostlists returns every registered hostlist (enabled or not)
// whose domain set matches target.
func (r *Registry) FindMatchingHostlists(target string) []domain.Hostlist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []domain.Hostlist
	for _, h := range r.byID {
		if DomainMatchesAny(h, target) {
			matches = append(matches, h)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

// ListByPlugin returns every hostlist owned by pluginID.
func (r *Registry) ListByPlugin(pluginID string) []domain.Hostlist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Hostlist
	for _, h := range r.byID {
		if h.PluginID == pluginID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListByCategory returns every hostlist tagged with category.
func (r *Registry) ListByCategory(category string) []domain.Hostlist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Hostlist
	for _, h := range r.byID {
		if h.Category == category {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats summarises the registry contents.
func (r *Registry) Stats() domain.HostlistStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := domain.HostlistStats{Total: len(r.byID)}
	unique := make(map[string]struct{})
	for _, h := range r.byID {
		if h.Enabled {
			stats.Enabled++
		}
		stats.TotalDomains += len(h.Domains)
		for _, d := range h.Domains {
			unique[strings.ToLower(d)] = struct{}{}
		}
	}
	stats.UniqueDomains = len(unique)
	return stats
}
