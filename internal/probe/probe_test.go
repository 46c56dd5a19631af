package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/domain"
)

func TestHTTPGetSuccessAndFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	c := New()
	result := c.HTTPGet(context.Background(), srv.URL, time.Second, nil, nil)
	require.True(t, result.Success)
	require.NotNil(t, result.Status)
	assert.Equal(t, 200, *result.Status)

	minBody := 1000
	result = c.HTTPGet(context.Background(), srv.URL, time.Second, nil, &minBody)
	assert.False(t, result.Success)
}

func TestHTTPHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New()
	result := c.HTTPHead(context.Background(), srv.URL, time.Second)
	assert.True(t, result.Success)
}

func TestTCPConnectSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	c := New()
	result := c.TCP(context.Background(), "127.0.0.1", addr.Port, time.Second)
	assert.True(t, result.Success)
	require.NotNil(t, result.LatencyMS)
}

func TestTCPConnectFailure(t *testing.T) {
	c := New()
	result := c.TCP(context.Background(), "127.0.0.1", 1, 200*time.Millisecond)
	assert.False(t, result.Success)
}

func TestDNSResolvesLoopback(t *testing.T) {
	c := New()
	result := c.DNS(context.Background(), "localhost", time.Second)
	assert.True(t, result.Success)
}

func TestTimeoutClampedTo5s(t *testing.T) {
	assert.Equal(t, maxTimeout, clampTimeout(10*time.Second))
	assert.Equal(t, maxTimeout, clampTimeout(0))
	assert.Equal(t, time.Second, clampTimeout(time.Second))
}

func TestSummarizeAggregatesCriticalAndErrors(t *testing.T) {
	latency := 42.0
	results := []domain.ProbeResult{
		{Success: true, LatencyMS: &latency},
		{Success: false, Error: "dns lookup failed: no such host"},
		{Success: false, Error: "i/o timeout"},
	}
	summary := summarize("svc", true, results)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.InDelta(t, 1.0/3.0, summary.SuccessRate, 0.001)
	assert.Equal(t, 42.0, summary.AvgLatencySuccess)
	assert.Equal(t, 1, summary.ErrorTypes[domain.ErrorClassDNS])
	assert.Equal(t, 1, summary.ErrorTypes[domain.ErrorClassTimeout])
}

func TestRunServiceParallelizesTests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := domain.Service{
		ID:       "svc",
		Critical: true,
		Tests: []domain.TestDefinition{
			{Kind: domain.TestHTTPSGet, URL: srv.URL, Timeout: time.Second},
			{Kind: domain.TestHTTPSHead, URL: srv.URL, Timeout: time.Second},
			{Kind: domain.TestDNS, Domain: "localhost", Timeout: time.Second},
		},
	}

	c := New()
	summary := c.RunService(context.Background(), svc)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Passed)
	assert.True(t, summary.Critical)
}

type fakeProvider struct{}

func (fakeProvider) Kind() domain.TestKind { return "custom-echo" }
func (fakeProvider) Run(ctx context.Context, c *Client, test domain.TestDefinition, critical bool) domain.ProbeResult {
	return domain.ProbeResult{URL: "custom", Success: true}
}

func TestRegistryDispatchesCustomProviders(t *testing.T) {
	reg := NewRegistry()
	reg.Register(fakeProvider{})
	c := New().WithRegistry(reg)

	result := c.runWithRegistry(context.Background(), reg, domain.TestDefinition{Kind: "custom-echo"}, false)
	assert.True(t, result.Success)
}
