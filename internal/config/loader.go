// Package config implements the strategy/service definition loader.
// It reads every *.yaml/*.yml file from a strategies directory and a
// services directory, validates each definition into the domain model, and
// caches the parsed result for 60s so a hot path (e.g. a status endpoint
// polled every few seconds) doesn't re-read and re-parse the filesystem on
// every call.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
)

const cacheTTL = 60 * time.Second

// Loader reads strategy and service definitions from two directories,
// caching the parsed maps for cacheTTL. A nonexistent directory yields an
// empty map, not an error.
type Loader struct {
	strategiesDir string
	servicesDir   string

	mu          sync.Mutex
	strategies  map[string]domain.Strategy
	services    map[string]domain.Service
	lastLoaded  time.Time
}

// New creates a Loader reading from strategiesDir and servicesDir.
func New(strategiesDir, servicesDir string) *Loader {
	return &Loader{strategiesDir: strategiesDir, servicesDir: servicesDir}
}

// GetStrategy implements engine.StrategyProvider, resolving id against the
// cached (or freshly loaded) strategy map.
func (l *Loader) GetStrategy(id string) (domain.Strategy, bool) {
	strategies, _, err := l.load()
	if err != nil {
		return domain.Strategy{}, false
	}
	s, ok := strategies[id]
	return s, ok
}

// Strategies returns every loaded strategy, refreshing the cache if stale.
func (l *Loader) Strategies() (map[string]domain.Strategy, error) {
	strategies, _, err := l.load()
	return strategies, err
}

// Services returns every loaded service, refreshing the cache if stale.
func (l *Loader) Services() (map[string]domain.Service, error) {
	_, services, err := l.load()
	return services, err
}

// Reload invalidates the cache and re-reads both directories immediately,
// returning any validation error encountered.
func (l *Loader) Reload() error {
	l.mu.Lock()
	l.lastLoaded = time.Time{}
	l.mu.Unlock()
	_, _, err := l.load()
	return err
}

func (l *Loader) load() (map[string]domain.Strategy, map[string]domain.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastLoaded.IsZero() && time.Since(l.lastLoaded) < cacheTTL {
		return l.strategies, l.services, nil
	}

	strategies, err := loadStrategies(l.strategiesDir)
	if err != nil {
		return nil, nil, err
	}
	services, err := loadServices(l.servicesDir)
	if err != nil {
		return nil, nil, err
	}

	l.strategies = strategies
	l.services = services
	l.lastLoaded = time.Now()
	return l.strategies, l.services, nil
}

func loadStrategies(dir string) (map[string]domain.Strategy, error) {
	out := make(map[string]domain.Strategy)
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, errkit.ConfigError(dir, err.Error())
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errkit.ConfigError(path, err.Error())
		}
		var raw strategyFile
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errkit.ConfigError(path, "invalid yaml: "+err.Error())
		}
		strategy, err := raw.toDomain()
		if err != nil {
			return nil, errkit.ConfigError(path, err.Error())
		}
		out[strategy.ID] = strategy
	}
	return out, nil
}

func loadServices(dir string) (map[string]domain.Service, error) {
	out := make(map[string]domain.Service)
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, errkit.ConfigError(dir, err.Error())
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errkit.ConfigError(path, err.Error())
		}
		var raw serviceFile
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errkit.ConfigError(path, "invalid yaml: "+err.Error())
		}
		svc, err := raw.toDomain()
		if err != nil {
			return nil, errkit.ConfigError(path, err.Error())
		}
		out[svc.ID] = svc
	}
	return out, nil
}

// yamlFiles lists every *.yaml/*.yml file directly under dir in lexical
// order. A missing directory yields an empty slice rather than an error, so
// a deployment with no custom strategies/services still loads cleanly.
func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
