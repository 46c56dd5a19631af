package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/store"
)

// stubPersister is an in-memory stand-in for internal/store.Store so the
// learner's write-through/reload logic can be tested without a database.
type stubPersister struct {
	rows []store.HistoryRow
}

func (s *stubPersister) RecordHistorySuccess(ctx context.Context, domainName, strategyID string) error {
	s.bump(domainName, strategyID, true)
	return nil
}

func (s *stubPersister) RecordHistoryFailure(ctx context.Context, domainName, strategyID string) error {
	s.bump(domainName, strategyID, false)
	return nil
}

func (s *stubPersister) bump(domainName, strategyID string, success bool) {
	for i := range s.rows {
		if s.rows[i].Domain == domainName && s.rows[i].StrategyID == strategyID {
			if success {
				s.rows[i].Successes++
			} else {
				s.rows[i].Failures++
			}
			return
		}
	}
	row := store.HistoryRow{Domain: domainName, StrategyID: strategyID}
	if success {
		row.Successes = 1
	} else {
		row.Failures = 1
	}
	s.rows = append(s.rows, row)
}

func (s *stubPersister) LoadAllHistory(ctx context.Context) ([]store.HistoryRow, error) {
	return s.rows, nil
}

func (s *stubPersister) ClearHistoryDomain(ctx context.Context, domainName string) error {
	var kept []store.HistoryRow
	for _, r := range s.rows {
		if r.Domain != domainName {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *stubPersister) ClearAllHistory(ctx context.Context) error {
	s.rows = nil
	return nil
}

// TestLearnerBestStrategy checks that the higher success rate wins and that
// an excluded strategy is skipped.
func TestLearnerBestStrategy(t *testing.T) {
	ctx := context.Background()
	l := New(&stubPersister{})

	for i := 0; i < 8; i++ {
		require.NoError(t, l.RecordSuccess(ctx, "youtube.com", "s1"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, l.RecordFailure(ctx, "youtube.com", "s1"))
	}
	for i := 0; i < 6; i++ {
		require.NoError(t, l.RecordSuccess(ctx, "youtube.com", "s2"))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, l.RecordFailure(ctx, "youtube.com", "s2"))
	}

	best, ok := l.GetBestStrategy("youtube.com", nil)
	require.True(t, ok)
	assert.Equal(t, "s1", best)

	best, ok = l.GetBestStrategy("youtube.com", []string{"s1"})
	require.True(t, ok)
	assert.Equal(t, "s2", best)
}

func TestLearnerLoadAllReload(t *testing.T) {
	ctx := context.Background()
	persister := &stubPersister{rows: []store.HistoryRow{
		{Domain: "d.com", StrategyID: "s1", Successes: 3, Failures: 1},
	}}
	l := New(persister)
	require.NoError(t, l.LoadAll(ctx))

	stats, ok := l.Stats("d.com", "s1")
	require.True(t, ok)
	assert.Equal(t, 3, stats.Successes)
	assert.Equal(t, 1, stats.Failures)
}

func TestLearnerClearDomain(t *testing.T) {
	ctx := context.Background()
	l := New(&stubPersister{})
	require.NoError(t, l.RecordSuccess(ctx, "a.com", "s1"))
	require.NoError(t, l.Clear(ctx, "a.com"))
	_, ok := l.Stats("a.com", "s1")
	assert.False(t, ok)
}

func TestLearnerNoAttemptsExcludedFromBest(t *testing.T) {
	_, ok := New(&stubPersister{}).GetBestStrategy("nothing.com", nil)
	assert.False(t, ok)
}
