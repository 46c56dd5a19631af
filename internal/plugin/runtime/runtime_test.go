package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheckBooleanResult(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	result, err := rt.RunCheck(context.Background(), "function check() { return true; }")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunCheckBooleanFalseSetsError(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	result, err := rt.RunCheck(context.Background(), "function check() { return false; }")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestRunCheckTableResult(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	result, err := rt.RunCheck(context.Background(), `function check() { return {success: true, latency: 42}; }`)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.LatencyMS)
	assert.Equal(t, 42.0, *result.LatencyMS)
}

func TestRunCheckInvalidReturnIsNoResult(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	result, err := rt.RunCheck(context.Background(), `function check() { return 5; }`)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No result", result.Error)
}

func TestRunCheckTimesOut(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	_, err := rt.RunCheck(context.Background(), `function check() { while (true) {} }`)
	assert.Error(t, err)
}

func TestRunCheckSubsequentCallsWorkAfterTimeout(t *testing.T) {
	rt := New("p1", nil, NewStore(), nil)
	_, err := rt.RunCheck(context.Background(), `function check() { while (true) {} }`)
	assert.Error(t, err)

	result, err := rt.RunCheck(context.Background(), `function check() { return true; }`)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestHTTPAllowlistRejectsDisallowedHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) }))
	defer srv.Close()

	rt := New("p1", []string{"example.com"}, NewStore(), nil)
	script := `function check() {
		var res = http.get("` + srv.URL + `");
		return {success: !res.error, error: res.error};
	}`
	result, err := rt.RunCheck(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestStorageIsolatedPerPlugin(t *testing.T) {
	store := NewStore()
	a := New("pluginA", nil, store, nil)
	b := New("pluginB", nil, store, nil)

	_, err := a.RunCheck(context.Background(), `function check() { storage.set("k", "a-value"); return true; }`)
	require.NoError(t, err)

	result, err := b.RunCheck(context.Background(), `function check() { return {success: storage.get("k") === undefined}; }`)
	require.NoError(t, err)
	assert.True(t, result.Success, "plugin B should not see plugin A's key")
}

func TestHTTPCallsAreRateLimitedPerPlugin(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rt := New("p1", []string{"127.0.0.1"}, NewStore(), nil)
	script := `function check() {
		for (var i = 0; i < ` + strconv.Itoa(httpBurst+2) + `; i++) {
			http.get("` + srv.URL + `");
		}
		return true;
	}`
	started := time.Now()
	result, err := rt.RunCheck(context.Background(), script)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(httpBurst+2), atomic.LoadInt32(&hits))
	assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond, "requests past the burst should have waited for the limiter")
}

func TestHostAllowedWildcard(t *testing.T) {
	allowlist := []string{"*.example.com"}
	assert.True(t, hostAllowed(allowlist, "example.com"))
	assert.True(t, hostAllowed(allowlist, "api.example.com"))
	assert.False(t, hostAllowed(allowlist, "notexample.com"))
}
