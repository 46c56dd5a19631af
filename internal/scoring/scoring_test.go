package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitebite/isolate-core/internal/domain"
)

func latency(ms float64) *float64 { return &ms }

// TestScoreOrdering checks that A beats B on success rate
// alone when latency and jitter are tied, and both exceed the 0.8 viability
// threshold.
func TestScoreOrdering(t *testing.T) {
	w := domain.DefaultScoreWeights()

	a := FromProbeResults("A", []domain.ProbeResult{
		{Success: true, LatencyMS: latency(100), Critical: true},
		{Success: true, LatencyMS: latency(100)},
	}, w)
	b := FromProbeResults("B", []domain.ProbeResult{
		{Success: true, LatencyMS: latency(100), Critical: true},
		{Success: false, LatencyMS: nil},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
		{Success: true, LatencyMS: latency(100)},
	}, w)

	require.Equal(t, 1.0, a.SuccessRate)
	require.InDelta(t, 0.9, b.SuccessRate, 0.001)

	best, ok := Best([]domain.StrategyScore{a, b}, DefaultViabilityThreshold)
	require.True(t, ok)
	assert.Equal(t, "A", best.StrategyID)
}

func TestWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, domain.DefaultScoreWeights().Sum(), 0.001)
	assert.InDelta(t, 1.0, domain.NoJitterScoreWeights().Sum(), 0.001)
}

func TestScoreWithinZeroOne(t *testing.T) {
	w := domain.ScoreWeights{SuccessRate: 0.5, CriticalSuccessRate: 0.3, Latency: 0.15, Jitter: 0.05}
	score := FromProbeResults("s", []domain.ProbeResult{
		{Success: true, LatencyMS: latency(5000)},
		{Success: false},
	}, w)
	assert.GreaterOrEqual(t, score.Score, 0.0)
	assert.LessOrEqual(t, score.Score, 1.0)
}

func TestViabilityFiltersBeforeBest(t *testing.T) {
	scores := []domain.StrategyScore{
		{StrategyID: "low", SuccessRate: 0.5, Score: 0.9},
		{StrategyID: "high", SuccessRate: 0.85, Score: 0.6},
	}
	best, ok := Best(scores, DefaultViabilityThreshold)
	require.True(t, ok)
	assert.Equal(t, "high", best.StrategyID)
}

func TestTopNIgnoresViability(t *testing.T) {
	scores := []domain.StrategyScore{
		{StrategyID: "low", SuccessRate: 0.1, Score: 0.9},
		{StrategyID: "high", SuccessRate: 0.85, Score: 0.6},
	}
	top := TopN(scores, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "low", top[0].StrategyID)
}

func TestNormalizeOutOfToleranceWeights(t *testing.T) {
	w := domain.ScoreWeights{SuccessRate: 1, CriticalSuccessRate: 1, Latency: 1, Jitter: 1}
	score := FromProbeResults("s", []domain.ProbeResult{{Success: true, LatencyMS: latency(50)}}, w)
	assert.LessOrEqual(t, score.Score, 1.0)
}
