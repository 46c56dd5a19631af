package abtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/domain"
)

func TestSummarizeComputesStats(t *testing.T) {
	iterations := []domain.StrategyIterationResult{
		{Success: true, LatencyMS: 100},
		{Success: true, LatencyMS: 200},
		{Success: false, Error: "boom"},
	}
	stats := summarize("s1", iterations, 3)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.001)
	assert.Equal(t, 100.0, stats.Min)
	assert.Equal(t, 200.0, stats.Max)
	assert.Equal(t, 150.0, stats.Mean)
	assert.Equal(t, 150.0, stats.Median)
}

// TestABWinnerHigherSuccessRate checks that a clearly higher success rate wins.
func TestABWinnerHigherSuccessRate(t *testing.T) {
	a := buildRun("A", 25, 0.95, 100)
	b := buildRun("B", 25, 0.70, 100)
	// buildRun truncates 25*rate to a whole success count (23 and 17), so pin
	// the success rates this test names.
	a.SuccessRate, b.SuccessRate = 0.95, 0.70

	result := compare("t1", a, b)
	assert.Equal(t, "A", result.WinnerID)
	assert.GreaterOrEqual(t, result.WinnerConfidence, 0.25)
	assert.Contains(t, result.WinnerReason, "higher success rate")
}

func TestABTieWhenNoDifference(t *testing.T) {
	a := buildRun("A", 10, 0.9, 100)
	b := buildRun("B", 10, 0.9, 100)
	result := compare("t2", a, b)
	assert.Equal(t, "", result.WinnerID)
	assert.Equal(t, 0.5, result.WinnerConfidence)
}

func buildRun(id string, n int, successRate float64, latency float64) domain.StrategyRunStats {
	successes := int(float64(n) * successRate)
	var iterations []domain.StrategyIterationResult
	for i := 0; i < n; i++ {
		iterations = append(iterations, domain.StrategyIterationResult{Success: i < successes, LatencyMS: latency})
	}
	return summarize(id, iterations, float64(n))
}

type fakeEngine struct {
	starts    []string
	stops     []string
	failStart int // fails the failStart'th StartPerService call (1-indexed); 0 disables
	calls     int
}

func (f *fakeEngine) StartPerService(ctx context.Context, strategyID, serviceID string, proxyPort int) error {
	f.calls++
	if f.failStart != 0 && f.calls == f.failStart {
		return errors.New("apply failed")
	}
	f.starts = append(f.starts, strategyID)
	return nil
}

func (f *fakeEngine) StopPerService(ctx context.Context, serviceID string) error {
	f.stops = append(f.stops, serviceID)
	return nil
}

type fakeProber struct{ success bool }

func (f *fakeProber) HTTPGet(ctx context.Context, target string, timeout time.Duration, acceptedStatus []int, minBodySize *int) domain.ProbeResult {
	latency := 50.0
	return domain.ProbeResult{Success: f.success, LatencyMS: &latency}
}

func TestTesterRunSerializesStrategies(t *testing.T) {
	engine := &fakeEngine{}
	prober := &fakeProber{success: true}
	tester := New(engine, prober, nil).WithSleeps(time.Millisecond, time.Millisecond)

	test := domain.ABTest{ID: "t1", StrategyAID: "A", StrategyBID: "B", ServiceID: "svc", Iterations: 2}
	result, err := tester.Run(context.Background(), test, "http://example.com", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "B", "B"}, engine.starts)
	assert.Equal(t, []string{"svc", "svc", "svc", "svc"}, engine.stops)
	assert.Len(t, result.ResultA.Iterations, 2)
	assert.Len(t, result.ResultB.Iterations, 2)
}

func TestTesterRejectsConcurrentRuns(t *testing.T) {
	engine := &fakeEngine{}
	prober := &fakeProber{success: true}
	tester := New(engine, prober, nil).WithSleeps(10*time.Millisecond, time.Millisecond)

	test := domain.ABTest{ID: "t1", StrategyAID: "A", StrategyBID: "B", ServiceID: "svc", Iterations: 1}
	go func() { _, _ = tester.Run(context.Background(), test, "http://example.com", time.Second, nil) }()
	time.Sleep(2 * time.Millisecond)
	assert.True(t, tester.IsRunning())

	_, err := tester.Run(context.Background(), test, "http://example.com", time.Second, nil)
	assert.Error(t, err)
}

func TestTesterAppliesAndStopsStrategyEachIteration(t *testing.T) {
	engine := &fakeEngine{}
	prober := &fakeProber{success: true}
	tester := New(engine, prober, nil).WithSleeps(time.Millisecond, time.Millisecond)

	test := domain.ABTest{ID: "t1", StrategyAID: "A", StrategyBID: "B", ServiceID: "svc", Iterations: 3}
	_, err := tester.Run(context.Background(), test, "http://example.com", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "A", "B", "B", "B"}, engine.starts)
	assert.Len(t, engine.stops, 6)
}

func TestTesterFailedApplyRecordsFailedIterationAndContinues(t *testing.T) {
	engine := &fakeEngine{failStart: 1}
	prober := &fakeProber{success: true}
	tester := New(engine, prober, nil).WithSleeps(time.Millisecond, time.Millisecond)

	test := domain.ABTest{ID: "t1", StrategyAID: "A", StrategyBID: "B", ServiceID: "svc", Iterations: 2}
	result, err := tester.Run(context.Background(), test, "http://example.com", time.Second, nil)
	require.NoError(t, err)
	require.Len(t, result.ResultA.Iterations, 2)
	assert.False(t, result.ResultA.Iterations[0].Success)
	assert.NotEmpty(t, result.ResultA.Iterations[0].Error)
	assert.True(t, result.ResultA.Iterations[1].Success)
}
