package domain

import "time"

// ABTestStatus tracks an A/B test's lifecycle.
type ABTestStatus string

const (
	ABTestPending   ABTestStatus = "pending"
	ABTestRunning   ABTestStatus = "running"
	ABTestCompleted ABTestStatus = "completed"
	ABTestCancelled ABTestStatus = "cancelled"
	ABTestFailed    ABTestStatus = "failed"
)

// ABTest is a serial, two-strategy comparison against one service.
type ABTest struct {
	ID            string
	StrategyAID   string
	StrategyBID   string
	ServiceID     string
	Iterations    int
	Status        ABTestStatus
	Progress      int
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Error         string
	Metadata      map[string]string
}

// EffectSize classifies Cohen's d.
type EffectSize string

const (
	EffectNegligible EffectSize = "negligible"
	EffectSmall      EffectSize = "small"
	EffectMedium     EffectSize = "medium"
	EffectLarge      EffectSize = "large"
)

// StatComparison is the Welch's t-test result between two strategies' latency samples.
type StatComparison struct {
	TStatistic     float64
	PValue         float64
	EffectSize     float64
	EffectCategory EffectSize
	Interpretation string
}

// StrategyIterationResult is one iteration's probe outcome.
type StrategyIterationResult struct {
	Success   bool
	LatencyMS float64
	Error     string
}

// StrategyRunStats summarises one strategy's full A/B run.
type StrategyRunStats struct {
	StrategyID  string
	SuccessRate float64
	Mean        float64
	Min         float64
	Max         float64
	StdDev      float64
	Median      float64
	Throughput  float64 // successes per second over the strategy's wall-clock
	Iterations  []StrategyIterationResult
}

// ABTestResult is the final comparison produced once an ABTest completes.
type ABTestResult struct {
	TestID           string
	ResultA          StrategyRunStats
	ResultB          StrategyRunStats
	WinnerID         string
	WinnerConfidence float64
	WinnerReason     string
	Comparison       StatComparison
	DeltaSuccessRate float64
	DeltaLatencyMS   float64
}
