// Package plugin implements the plugin manager. It discovers plugins
// by enumerating subdirectories of a plugins directory — any directory
// containing a plugin.json is a plugin — and wires each manifest's
// contributions into the service set, strategy pool, and hostlist registry
// it owns.
package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/hostlist"
	"github.com/whitebite/isolate-core/internal/logging"
	"github.com/whitebite/isolate-core/internal/plugin/runtime"
)

// sourceTagPrefix annotates a plugin-contributed strategy's provenance
//.
const sourceTagPrefix = "Plugin"

// Manager owns every plugin's contribution to the service set, strategy
// pool, and hostlist registry. Load and Unload each run under the manager's
// mutex and are idempotent; a Load that fails part-way removes whatever it
// had registered for that plugin id. ReloadAll stops at the first plugin
// that fails to load and leaves the plugins loaded before it in place.
type Manager struct {
	pluginsDir string
	registry   *Registry
	storage    *runtime.Store
	log        *logging.Logger

	mu        sync.Mutex
	manifests map[string]domain.Manifest
	runtimes  map[string]*runtime.Runtime
	scripts   map[string]string // plugin id -> absolute path to its check.js, if present
}

// New creates a Manager rooted at pluginsDir, registering hostlist
// contributions into hostlists.
func New(pluginsDir string, hostlists *hostlist.Registry, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewDefault("plugin-manager")
	}
	return &Manager{
		pluginsDir: pluginsDir,
		registry:   NewRegistry(hostlists),
		storage:    runtime.NewStore(),
		log:        log,
		manifests:  make(map[string]domain.Manifest),
		runtimes:   make(map[string]*runtime.Runtime),
		scripts:    make(map[string]string),
	}
}

// DiscoverDirs lists every subdirectory of pluginsDir that contains a
// plugin.json.
func (m *Manager) DiscoverDirs() ([]string, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errkit.ConfigError(m.pluginsDir, err.Error())
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginsDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

// Load parses dir's plugin.json and registers its contributions. Loading an
// already-loaded plugin id first unloads the prior registration, so Load is
// idempotent.
func (m *Manager) Load(dir string) (domain.Manifest, error) {
	manifest, err := loadManifest(filepath.Join(dir, "plugin.json"))
	if err != nil {
		return domain.Manifest{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.unloadLocked(manifest.ID)

	if manifest.Service != nil {
		m.registry.RegisterService(manifest.ID, serviceFromManifest(*manifest.Service))
	}
	if manifest.Strategy != nil {
		strategy := *manifest.Strategy
		strategy.Engine = sourceTagPrefix + "{" + manifest.ID + "}"
		m.registry.RegisterStrategy(manifest.ID, strategy)
	}
	if manifest.Hostlist != nil {
		if err := m.registerHostlist(dir, manifest.ID, *manifest.Hostlist); err != nil {
			m.unloadLocked(manifest.ID)
			return domain.Manifest{}, err
		}
	}

	m.manifests[manifest.ID] = manifest
	if checkPath := filepath.Join(dir, "check.js"); fileExists(checkPath) {
		m.scripts[manifest.ID] = checkPath
	} else {
		delete(m.scripts, manifest.ID)
	}
	return manifest, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (m *Manager) registerHostlist(dir, pluginID string, def domain.PluginHostlistDef) error {
	if def.File != "" {
		return m.registry.RegisterHostlistFile(def.ID, def.Name, def.Format, def.Category, pluginID, filepath.Join(dir, def.File))
	}
	m.registry.RegisterHostlistInline(domain.Hostlist{
		ID: def.ID, Name: def.Name, Format: def.Format,
		Category: def.Category, PluginID: pluginID, Enabled: true,
		Domains: def.Domains,
	})
	return nil
}

func serviceFromManifest(def domain.PluginServiceDef) domain.Service {
	tests := make([]domain.TestDefinition, 0, len(def.Endpoints))
	for _, ep := range def.Endpoints {
		kind := domain.TestHTTPSGet
		if ep.Method == "HEAD" {
			kind = domain.TestHTTPSHead
		}
		tests = append(tests, domain.TestDefinition{Kind: kind, URL: ep.URL})
	}
	return domain.Service{ID: def.ID, Name: def.Name, DefaultEnabled: true, Tests: tests}
}

// Unload removes pluginID's contributions from every registry. Unloading an
// unknown id is a no-op.
func (m *Manager) Unload(pluginID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadLocked(pluginID)
}

func (m *Manager) unloadLocked(pluginID string) {
	delete(m.manifests, pluginID)
	delete(m.runtimes, pluginID)
	delete(m.scripts, pluginID)
	m.registry.UnregisterByPlugin(pluginID)
}

// ReloadAll re-enumerates the plugins directory, loading every discovered
// plugin and unloading any previously-loaded plugin no longer present.
func (m *Manager) ReloadAll() error {
	dirs, err := m.DiscoverDirs()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		manifest, err := m.Load(dir)
		if err != nil {
			return err
		}
		seen[manifest.ID] = struct{}{}
	}

	m.mu.Lock()
	var stale []string
	for id := range m.manifests {
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.Unload(id)
	}
	return nil
}

// Services returns every plugin-contributed service.
func (m *Manager) Services() []domain.Service {
	return m.registry.Services()
}

// GetStrategy implements engine.StrategyProvider for plugin-contributed
// strategies (to be composed with the config loader's own provider).
func (m *Manager) GetStrategy(id string) (domain.Strategy, bool) {
	return m.registry.GetStrategy(id)
}

// Manifests returns every currently loaded manifest, keyed by plugin id.
func (m *Manager) Manifests() map[string]domain.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Manifest, len(m.manifests))
	for k, v := range m.manifests {
		out[k] = v
	}
	return out
}

// runtimeFor returns pluginID's script runtime, creating it on first use
//.
func (m *Manager) runtimeFor(pluginID string) *runtime.Runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.runtimes[pluginID]; ok {
		return rt
	}
	allowlist := m.manifests[pluginID].Permissions.HTTPAllowlist
	rt := runtime.New(pluginID, allowlist, m.storage, m.log)
	m.runtimes[pluginID] = rt
	return rt
}

// RunCheck executes pluginID's check.js as a probe. Returns a not-found error
// if the plugin has no check.js.
func (m *Manager) RunCheck(ctx context.Context, pluginID string) (domain.ProbeResult, error) {
	m.mu.Lock()
	path, ok := m.scripts[pluginID]
	m.mu.Unlock()
	if !ok {
		return domain.ProbeResult{}, errkit.NotFound("plugin script", pluginID)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return domain.ProbeResult{}, errkit.ConfigError(path, err.Error())
	}

	rt := m.runtimeFor(pluginID)
	return rt.RunCheck(ctx, string(source))
}
