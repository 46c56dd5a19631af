// Package history implements the strategy learner. It keeps an
// in-memory two-level map (domain → strategy-id → stats), writing through
// to the persistent store on every record call, and reloads fully from
// storage at startup.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/store"
)

// Persister is the subset of internal/store.Store the learner writes
// through to and reloads from; narrowed to an interface so tests can stub
// it without a real database.
type Persister interface {
	RecordHistorySuccess(ctx context.Context, domainName, strategyID string) error
	RecordHistoryFailure(ctx context.Context, domainName, strategyID string) error
	LoadAllHistory(ctx context.Context) ([]store.HistoryRow, error)
	ClearHistoryDomain(ctx context.Context, domainName string) error
	ClearAllHistory(ctx context.Context) error
}

// Learner is the in-memory strategy-history cache, write-through to a
// Persister.
type Learner struct {
	mu    sync.RWMutex
	stats map[string]map[string]domain.StrategyStats
	store Persister
}

// New creates a Learner backed by store. Call LoadAll once at startup.
func New(store Persister) *Learner {
	return &Learner{stats: make(map[string]map[string]domain.StrategyStats), store: store}
}

// LoadAll reloads the full in-memory map from the persistent store,
// discarding any prior in-memory state.
func (l *Learner) LoadAll(ctx context.Context) error {
	rows, err := l.store.LoadAllHistory(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]map[string]domain.StrategyStats)
	for _, row := range rows {
		stats := domain.StrategyStats{Domain: row.Domain, StrategyID: row.StrategyID, Successes: row.Successes, Failures: row.Failures}
		if row.LastSuccess != "" {
			if t, err := time.Parse(time.RFC3339, row.LastSuccess); err == nil {
				stats.LastSuccess = &t
			}
		}
		if row.LastFailure != "" {
			if t, err := time.Parse(time.RFC3339, row.LastFailure); err == nil {
				stats.LastFailure = &t
			}
		}
		if fresh[row.Domain] == nil {
			fresh[row.Domain] = make(map[string]domain.StrategyStats)
		}
		fresh[row.Domain][row.StrategyID] = stats
	}

	l.mu.Lock()
	l.stats = fresh
	l.mu.Unlock()
	return nil
}

// RecordSuccess increments (domain, strategyID)'s success counter both
// in-memory and in the store.
func (l *Learner) RecordSuccess(ctx context.Context, domainName, strategyID string) error {
	if err := l.store.RecordHistorySuccess(ctx, domainName, strategyID); err != nil {
		return err
	}
	now := time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := l.statsLocked(domainName, strategyID)
	stats.Successes++
	stats.LastSuccess = &now
	l.setLocked(domainName, strategyID, stats)
	return nil
}

// RecordFailure increments (domain, strategyID)'s failure counter both
// in-memory and in the store.
func (l *Learner) RecordFailure(ctx context.Context, domainName, strategyID string) error {
	if err := l.store.RecordHistoryFailure(ctx, domainName, strategyID); err != nil {
		return err
	}
	now := time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := l.statsLocked(domainName, strategyID)
	stats.Failures++
	stats.LastFailure = &now
	l.setLocked(domainName, strategyID, stats)
	return nil
}

func (l *Learner) statsLocked(domainName, strategyID string) domain.StrategyStats {
	if byStrategy, ok := l.stats[domainName]; ok {
		if s, ok := byStrategy[strategyID]; ok {
			return s
		}
	}
	return domain.StrategyStats{Domain: domainName, StrategyID: strategyID}
}

func (l *Learner) setLocked(domainName, strategyID string, stats domain.StrategyStats) {
	if l.stats[domainName] == nil {
		l.stats[domainName] = make(map[string]domain.StrategyStats)
	}
	l.stats[domainName][strategyID] = stats
}

// GetBestStrategy returns the strategy id with the highest success rate
// among entries for domainName with ≥1 attempt and not in exclude,
// reading purely from the in-memory cache. Among tied entries the first one
// met in Go's randomised map iteration wins, so the pick is not
// deterministic; callers needing determinism across runs should rely on the
// persisted locked-strategy path instead.
func (l *Learner) GetBestStrategy(domainName string, exclude []string) (string, bool) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	byStrategy, ok := l.stats[domainName]
	if !ok {
		return "", false
	}

	bestID := ""
	bestRate := -1.0
	for id, stats := range byStrategy {
		if excluded[id] || stats.TotalAttempts() == 0 {
			continue
		}
		rate := stats.SuccessRate()
		if rate > bestRate {
			bestRate = rate
			bestID = id
		}
	}
	if bestID == "" {
		return "", false
	}
	return bestID, true
}

// Clear removes one domain's stats, in-memory and in the store.
func (l *Learner) Clear(ctx context.Context, domainName string) error {
	if err := l.store.ClearHistoryDomain(ctx, domainName); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.stats, domainName)
	l.mu.Unlock()
	return nil
}

// ClearAll wipes every domain's stats, in-memory and in the store.
func (l *Learner) ClearAll(ctx context.Context) error {
	if err := l.store.ClearAllHistory(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.stats = make(map[string]map[string]domain.StrategyStats)
	l.mu.Unlock()
	return nil
}

// Stats returns a copy of (domain, strategyID)'s current stats.
func (l *Learner) Stats(domainName, strategyID string) (domain.StrategyStats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	byStrategy, ok := l.stats[domainName]
	if !ok {
		return domain.StrategyStats{}, false
	}
	s, ok := byStrategy[strategyID]
	return s, ok
}
