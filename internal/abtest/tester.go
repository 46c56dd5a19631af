// Package abtest implements serial two-strategy A/B comparison with
// Welch's t-test, Cohen's d, and confidence-weighted winner selection.
// Comparisons run serially, never in parallel, because both
// candidate strategies compete for the single kernel-filter slot owned by
// the strategy engine.
package abtest

import (
	"context"
	"sync"
	"time"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/logging"
)

const (
	interIterationSleep = 2 * time.Second
	interStrategySleep  = 2 * time.Second
)

// StrategyController is the subset of the strategy engine the A/B
// tester drives: apply one strategy, then stop it, once per iteration.
type StrategyController interface {
	StartPerService(ctx context.Context, strategyID, serviceID string, proxyPort int) error
	StopPerService(ctx context.Context, serviceID string) error
}

// Prober runs the single HTTP GET probe used to score each iteration.
type Prober interface {
	HTTPGet(ctx context.Context, target string, timeout time.Duration, acceptedStatus []int, minBodySize *int) domain.ProbeResult
}

// Tester runs A/B tests. Only one test may run at a time across the whole
// process.
type Tester struct {
	mu              sync.Mutex
	engine          StrategyController
	prober          Prober
	log             *logging.Logger
	cancelFns       map[string]context.CancelFunc
	cancelMu        sync.Mutex
	runningIDs      map[string]bool
	iterationSleep  time.Duration
	strategySleep   time.Duration
}

// New creates a Tester driving engine for strategy start/stop and prober
// for per-iteration probes.
func New(engine StrategyController, prober Prober, log *logging.Logger) *Tester {
	if log == nil {
		log = logging.NewDefault("abtest")
	}
	return &Tester{
		engine:         engine,
		prober:         prober,
		log:            log,
		cancelFns:      make(map[string]context.CancelFunc),
		runningIDs:     make(map[string]bool),
		iterationSleep: interIterationSleep,
		strategySleep:  interStrategySleep,
	}
}

// WithSleeps overrides the inter-iteration/inter-strategy settle delays —
// used by tests so a 25-iteration run doesn't take 50 real seconds.
func (t *Tester) WithSleeps(iteration, strategy time.Duration) *Tester {
	t.iterationSleep = iteration
	t.strategySleep = strategy
	return t
}

// Run executes test end-to-end: iterations*2 strategy applications
// (strategy A then B, serially, never interleaved), producing the final
// comparison. Run blocks until the whole test completes, fails, or is
// cancelled via Cancel(test.ID).
func (t *Tester) Run(ctx context.Context, test domain.ABTest, serviceTestURL string, timeout time.Duration, acceptedStatus []int) (domain.ABTestResult, error) {
	t.mu.Lock()
	if len(t.runningIDs) > 0 {
		t.mu.Unlock()
		return domain.ABTestResult{}, errkit.ProcessError("another A/B test is already running")
	}
	t.runningIDs[test.ID] = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.runningIDs, test.ID)
		t.mu.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	t.cancelMu.Lock()
	t.cancelFns[test.ID] = cancel
	t.cancelMu.Unlock()
	defer func() {
		t.cancelMu.Lock()
		delete(t.cancelFns, test.ID)
		t.cancelMu.Unlock()
		cancel()
	}()

	startA := time.Now()
	iterationsA, err := t.runStrategyIterations(runCtx, test.StrategyAID, test.ServiceID, test.Iterations, serviceTestURL, timeout, acceptedStatus)
	wallA := time.Since(startA).Seconds()
	if err != nil {
		return domain.ABTestResult{}, err
	}

	select {
	case <-runCtx.Done():
		return domain.ABTestResult{}, errkit.New(errkit.KindProcess, "a/b test cancelled")
	case <-time.After(t.strategySleep):
	}

	startB := time.Now()
	iterationsB, err := t.runStrategyIterations(runCtx, test.StrategyBID, test.ServiceID, test.Iterations, serviceTestURL, timeout, acceptedStatus)
	wallB := time.Since(startB).Seconds()
	if err != nil {
		return domain.ABTestResult{}, err
	}

	statsA := summarize(test.StrategyAID, iterationsA, wallA)
	statsB := summarize(test.StrategyBID, iterationsB, wallB)
	return compare(test.ID, statsA, statsB), nil
}

// runStrategyIterations runs one strategy's share of an A/B test:
// iterations rounds of apply → sleep → probe → stop → sleep, with the
// strategy started and stopped fresh each round rather than once for the
// whole run. A failed apply is recorded as a failed iteration and the loop
// continues; it does not abort the test.
func (t *Tester) runStrategyIterations(ctx context.Context, strategyID, serviceID string, iterations int, target string, timeout time.Duration, acceptedStatus []int) ([]domain.StrategyIterationResult, error) {
	results := make([]domain.StrategyIterationResult, 0, iterations)

	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return results, nil
		}

		if err := t.engine.StartPerService(ctx, strategyID, serviceID, 0); err != nil {
			results = append(results, domain.StrategyIterationResult{Success: false, Error: err.Error()})
			continue
		}

		select {
		case <-ctx.Done():
			_ = t.engine.StopPerService(ctx, serviceID)
			return results, nil
		case <-time.After(t.iterationSleep):
		}

		probe := t.prober.HTTPGet(ctx, target, timeout, acceptedStatus, nil)
		iteration := domain.StrategyIterationResult{Success: probe.Success, Error: probe.Error}
		if probe.LatencyMS != nil {
			iteration.LatencyMS = *probe.LatencyMS
		}

		if err := t.engine.StopPerService(ctx, serviceID); err != nil {
			t.log.WithField("strategy", strategyID).WithError(err).Warn("failed to stop strategy after a/b iteration")
		}

		// A probe failure is recorded as a failed iteration; it does not
		// abort the test.
		results = append(results, iteration)

		select {
		case <-ctx.Done():
			return results, nil
		case <-time.After(t.strategySleep):
		}
	}
	return results, nil
}

// Cancel stops testID's run: the per-iteration loop observes ctx.Done() on
// its next check, and runStrategyIterations then calls StopPerService to
// stop the currently-applied strategy.
func (t *Tester) Cancel(testID string) bool {
	t.cancelMu.Lock()
	defer t.cancelMu.Unlock()
	cancel, ok := t.cancelFns[testID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// IsRunning reports whether any test is currently running (only one
// A/B test may run at a time across the whole process").
func (t *Tester) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.runningIDs) > 0
}
