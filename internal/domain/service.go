package domain

import "time"

// maxProbeTimeout is the hard ceiling every test definition timeout is
// clamped to on use.
const maxProbeTimeout = 5 * time.Second

// Service is a named target (YouTube, Discord, …) whose reachability is
// being probed.
type Service struct {
	ID               string
	Name             string
	Critical         bool
	DefaultEnabled   bool
	Tests            []TestDefinition
}

// Validate enforces the non-empty test list invariant.
func (s Service) Validate() error {
	if len(s.Tests) == 0 {
		return errServiceNoTests
	}
	return nil
}

// TestKind tags which variant a TestDefinition carries.
type TestKind string

const (
	TestHTTPSGet   TestKind = "https-get"
	TestHTTPSHead  TestKind = "https-head"
	TestTCPConnect TestKind = "tcp-connect"
	TestDNS        TestKind = "dns"
	TestWebSocket  TestKind = "websocket"
)

// TestDefinition is a tagged variant describing one probe to run against a
// service. Only the fields relevant to Kind are populated.
type TestDefinition struct {
	Kind TestKind

	URL     string // https-get, https-head, websocket
	Host    string // tcp-connect
	Port    int    // tcp-connect
	Domain  string // dns

	Timeout time.Duration

	AcceptedStatus []int // https-get
	MinBodySize    *int  // https-get
}

// ClampedTimeout returns the configured timeout capped at the 5s ceiling
// every probe operation enforces, defaulting to the ceiling when unset.
func (t TestDefinition) ClampedTimeout() time.Duration {
	if t.Timeout <= 0 || t.Timeout > maxProbeTimeout {
		return maxProbeTimeout
	}
	return t.Timeout
}

// ProbeResult is the outcome of running one TestDefinition.
type ProbeResult struct {
	URL       string
	Success   bool
	LatencyMS *float64
	Status    *int
	Error     string
	Critical  bool
}
