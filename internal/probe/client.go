// Package probe implements parallel HTTP/TCP/DNS/WebSocket probes with
// optional SOCKS5 proxy support and a 5-second per-probe timeout ceiling
//.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whitebite/isolate-core/internal/domain"
)

const maxTimeout = 5 * time.Second

// Client runs probes. A shared *http.Client is used for direct probes; a
// second client, built lazily, is used when a SOCKS5 proxy is configured —
// direct checks stay off the proxy path rather than always tunneling.
type Client struct {
	direct   *http.Client
	proxied  *http.Client
	registry *Registry
}

// WithRegistry returns a copy of c that dispatches through reg for probe
// kinds reg has a provider for, falling back to the five built-ins
// otherwise.
func (c *Client) WithRegistry(reg *Registry) *Client {
	next := *c
	next.registry = reg
	return &next
}

// New builds a probe Client with TLS verification on by default.
func New() *Client {
	return &Client{
		direct: &http.Client{Transport: &http.Transport{}},
	}
}

// WithSOCKS5Proxy returns a copy of c configured to route probes through
// host:port using a SOCKS5 dialer (no authentication; only the no-auth
// the no-auth handshake).
func (c *Client) WithSOCKS5Proxy(host string, port int) (*Client, error) {
	proxyURL, err := url.Parse(fmt.Sprintf("socks5://%s:%d", host, port))
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	next := *c
	next.proxied = &http.Client{Transport: transport}
	return &next, nil
}

func clampTimeout(d time.Duration) time.Duration {
	if d <= 0 || d > maxTimeout {
		return maxTimeout
	}
	return d
}

func (c *Client) httpClient() *http.Client {
	if c.proxied != nil {
		return c.proxied
	}
	return c.direct
}

// HTTPGet performs an HTTPS GET and checks the response against acceptedStatus
// (any 2xx if empty) and minBodySize if set.
func (c *Client) HTTPGet(ctx context.Context, target string, timeout time.Duration, acceptedStatus []int, minBodySize *int) domain.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failResult(target, err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return failResult(target, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	status := resp.StatusCode

	ok := statusAccepted(status, acceptedStatus)
	if ok && minBodySize != nil && len(body) < *minBodySize {
		ok = false
	}

	result := domain.ProbeResult{URL: target, Success: ok, LatencyMS: &latency, Status: &status}
	if !ok {
		result.Error = fmt.Sprintf("unexpected status %d or body too small", status)
	}
	return result
}

// HTTPHead performs an HTTPS HEAD, success iff a 2xx status is returned.
func (c *Client) HTTPHead(ctx context.Context, target string, timeout time.Duration) domain.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return failResult(target, err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return failResult(target, err)
	}
	defer resp.Body.Close()

	latency := float64(time.Since(start).Microseconds()) / 1000.0
	status := resp.StatusCode
	ok := status >= 200 && status < 300
	result := domain.ProbeResult{URL: target, Success: ok, LatencyMS: &latency, Status: &status}
	if !ok {
		result.Error = fmt.Sprintf("unexpected status %d", status)
	}
	return result
}

// TCP opens a TCP connection to host:port, through the configured SOCKS5
// proxy if any (manual no-auth handshake), and reports success/latency.
func (c *Client) TCP(ctx context.Context, host string, port int, timeout time.Duration) domain.ProbeResult {
	target := fmt.Sprintf("%s:%d", host, port)
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	start := time.Now()
	var conn net.Conn
	var err error
	if c.proxied != nil {
		conn, err = dialSOCKS5(ctx, c.proxyAddr(), host, port)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", target)
	}
	if err != nil {
		return failResult(target, err)
	}
	defer conn.Close()

	latency := float64(time.Since(start).Microseconds()) / 1000.0
	return domain.ProbeResult{URL: target, Success: true, LatencyMS: &latency}
}

func (c *Client) proxyAddr() string {
	if c.proxied == nil {
		return ""
	}
	t, ok := c.proxied.Transport.(*http.Transport)
	if !ok || t.Proxy == nil {
		return ""
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err := t.Proxy(req)
	if err != nil || u == nil {
		return ""
	}
	return u.Host
}

// DNS resolves domain and reports success iff at least one address comes
// back within the timeout.
func (c *Client) DNS(ctx context.Context, domainName string, timeout time.Duration) domain.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	start := time.Now()
	addrs, err := net.DefaultResolver.LookupHost(ctx, domainName)
	latency := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		return failResult(domainName, err)
	}
	if len(addrs) == 0 {
		return domain.ProbeResult{URL: domainName, Success: false, Error: "no addresses returned"}
	}
	return domain.ProbeResult{URL: domainName, Success: true, LatencyMS: &latency}
}

// WebSocket opens and immediately closes a WebSocket connection to target.
func (c *Client) WebSocket(ctx context.Context, target string, timeout time.Duration) domain.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	start := time.Now()
	dialer := websocket.Dialer{HandshakeTimeout: clampTimeout(timeout)}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return failResult(target, err)
	}
	defer conn.Close()
	defer func() {
		if resp != nil {
			resp.Body.Close()
		}
	}()

	latency := float64(time.Since(start).Microseconds()) / 1000.0
	return domain.ProbeResult{URL: target, Success: true, LatencyMS: &latency}
}

func statusAccepted(status int, accepted []int) bool {
	if len(accepted) == 0 {
		return status >= 200 && status < 300
	}
	for _, a := range accepted {
		if a == status {
			return true
		}
	}
	return false
}

func failResult(target string, err error) domain.ProbeResult {
	return domain.ProbeResult{URL: target, Success: false, Error: err.Error()}
}

// ClassifyError exposes classify for callers (e.g. aggregation) outside
// this package that need the ErrorClass without re-running the probe.
func ClassifyError(err error) domain.ErrorClass {
	return classify(err)
}
