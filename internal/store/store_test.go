package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "isolate-test.db")
	cipher, err := NewAESCipher(make([]byte, 32))
	require.NoError(t, err)
	s, err := Open(context.Background(), dsn, cipher)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProxyUpsertRoundTripsEncryptedPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg := domain.ProxyConfig{ID: "p1", Name: "primary", Protocol: domain.ProxySOCKS5, Server: "1.2.3.4", Port: 1080, Active: true}
	require.NoError(t, s.UpsertProxy(ctx, cfg, "hunter2"))

	got, plaintext, err := s.GetProxy(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
	assert.Equal(t, "primary", got.Name)
	assert.True(t, got.Active)
}

func TestOnlyOneProxyActiveAtOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProxy(ctx, domain.ProxyConfig{ID: "a", Name: "a", Protocol: domain.ProxyHTTP, Server: "h", Port: 1, Active: true}, ""))
	require.NoError(t, s.UpsertProxy(ctx, domain.ProxyConfig{ID: "b", Name: "b", Protocol: domain.ProxyHTTP, Server: "h", Port: 1, Active: true}, ""))

	list, err := s.ListProxies(ctx)
	require.NoError(t, err)
	activeCount := 0
	for _, p := range list {
		if p.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestHistoryUpsertAccumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, s.RecordHistorySuccess(ctx, "youtube.com", "s1"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, s.RecordHistoryFailure(ctx, "youtube.com", "s1"))
	}

	rows, err := s.LoadAllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Successes)
	assert.Equal(t, 2, rows[0].Failures)
}

func TestLearnedStrategyLockRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.UpsertLearnedStrategy(ctx, domain.LearnedStrategy{
		Domain: "d.com", StrategyID: "s1", Successes: 5, LockedAt: &now,
	}))

	got, err := s.GetLearnedStrategy(ctx, "d.com")
	require.NoError(t, err)
	assert.True(t, got.Locked())
	assert.Equal(t, "s1", got.StrategyID)
}

func TestDomainRouteNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDomainRoute(context.Background(), "missing.com")
	assert.Error(t, err)
}
