// Package scoring implements the weighted combination of a strategy's
// probe results into a single comparable score, plus viability filtering
// and ranking.
package scoring

import (
	"math"
	"sort"

	"github.com/whitebite/isolate-core/internal/domain"
)

// DefaultViabilityThreshold is the minimum success rate a strategy needs to
// be considered viable for get-best-strategy style selection.
const DefaultViabilityThreshold = 0.8

const (
	latencyFloorMS   = 100.0
	latencyCeilingMS = 2000.0
	// latencyNormCeilingMS is a "linear to 0 at 5s" ceiling that no
	// function in this package uses; normalizeLatency, and so both Score
	// and FromProbeResults, use the 100ms/2s floor/ceiling above.
	latencyNormCeilingMS = 5000.0
)

// Score computes a StrategyScore for strategyID from the given per-service
// probe summaries, using w (normalised first if its components don't sum to
// 1.0 within 0.001).
func Score(strategyID string, summaries []domain.ServiceProbeSummary, w domain.ScoreWeights) domain.StrategyScore {
	w = normalize(w)

	totalProbes, totalPassed := 0, 0
	criticalTotal, criticalPassed := 0, 0
	var successLatencies []float64

	for _, s := range summaries {
		totalProbes += s.Total
		totalPassed += s.Passed
		if s.Critical {
			criticalTotal += s.Total
			criticalPassed += s.Passed
		}
		if s.Passed > 0 && s.AvgLatencySuccess > 0 {
			// AvgLatencySuccess already averages that service's own
			// successful probes; weight it once per successful probe so a
			// service with more passing probes contributes proportionally.
			for i := 0; i < s.Passed; i++ {
				successLatencies = append(successLatencies, s.AvgLatencySuccess)
			}
		}
	}

	successRate := ratio(totalPassed, totalProbes)

	criticalSuccessRate := successRate
	if criticalTotal > 0 {
		criticalSuccessRate = ratio(criticalPassed, criticalTotal)
	}

	avgLatency := average(successLatencies)
	jitter := coefficientOfVariation(successLatencies)

	score := w.SuccessRate*successRate +
		w.CriticalSuccessRate*criticalSuccessRate +
		w.Latency*normalizeLatency(avgLatency) +
		w.Jitter*(1-jitter)

	return domain.StrategyScore{
		StrategyID:          strategyID,
		SuccessRate:         successRate,
		CriticalSuccessRate: criticalSuccessRate,
		LatencyAvgMS:        avgLatency,
		LatencyJitter:       jitter,
		Score:               clamp01(score),
	}
}

// FromProbeResults builds a StrategyScore directly from a flat list of probe
// results, separating the critical subset itself rather than requiring the
// caller to pre-aggregate into ServiceProbeSummary.
func FromProbeResults(strategyID string, results []domain.ProbeResult, w domain.ScoreWeights) domain.StrategyScore {
	w = normalize(w)

	total, passed := len(results), 0
	criticalTotal, criticalPassed := 0, 0
	var successLatencies []float64

	for _, r := range results {
		if r.Success {
			passed++
			if r.LatencyMS != nil {
				successLatencies = append(successLatencies, *r.LatencyMS)
			}
		}
		if r.Critical {
			criticalTotal++
			if r.Success {
				criticalPassed++
			}
		}
	}

	successRate := ratio(passed, total)
	criticalSuccessRate := successRate
	if criticalTotal > 0 {
		criticalSuccessRate = ratio(criticalPassed, criticalTotal)
	}

	avgLatency := average(successLatencies)
	jitter := coefficientOfVariation(successLatencies)

	score := w.SuccessRate*successRate +
		w.CriticalSuccessRate*criticalSuccessRate +
		w.Latency*normalizeLatency(avgLatency) +
		w.Jitter*(1-jitter)

	return domain.StrategyScore{
		StrategyID:          strategyID,
		SuccessRate:         successRate,
		CriticalSuccessRate: criticalSuccessRate,
		LatencyAvgMS:        avgLatency,
		LatencyJitter:       jitter,
		Score:               clamp01(score),
	}
}

// normalizeLatency maps a latency in ms to [0,1]: at or below the floor is
// 1, at or above the ceiling is 0, linear in between (a simpler
// 100ms/2s variant).
func normalizeLatency(ms float64) float64 {
	if ms <= 0 {
		return 1
	}
	if ms <= latencyFloorMS {
		return 1
	}
	if ms >= latencyCeilingMS {
		return 0
	}
	return 1 - (ms-latencyFloorMS)/(latencyCeilingMS-latencyFloorMS)
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func coefficientOfVariation(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := average(xs)
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	cv := math.Sqrt(variance) / mean
	return clamp01(cv)
}

func ratio(numer, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(numer) / float64(denom)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// normalize rescales w so its components sum to 1.0 when they drift outside
// the 0.001 tolerance allowed.
func normalize(w domain.ScoreWeights) domain.ScoreWeights {
	sum := w.Sum()
	if math.Abs(sum-1.0) <= 0.001 || sum == 0 {
		return w
	}
	return domain.ScoreWeights{
		SuccessRate:         w.SuccessRate / sum,
		CriticalSuccessRate: w.CriticalSuccessRate / sum,
		Latency:             w.Latency / sum,
		Jitter:              w.Jitter / sum,
	}
}

// Rank sorts scores by composite score descending, stable so ties keep
// their input (iteration) order.
func Rank(scores []domain.StrategyScore) []domain.StrategyScore {
	ranked := make([]domain.StrategyScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Viable filters scores to those meeting threshold's success-rate floor.
func Viable(scores []domain.StrategyScore, threshold float64) []domain.StrategyScore {
	out := make([]domain.StrategyScore, 0, len(scores))
	for _, s := range scores {
		if s.SuccessRate >= threshold {
			out = append(out, s)
		}
	}
	return out
}

// Best returns the highest-scoring viable strategy, or false if none are
// viable. get-best-strategy filters by viability before picking max score;
// get-top-n (TopN) does not.
func Best(scores []domain.StrategyScore, threshold float64) (domain.StrategyScore, bool) {
	viable := Viable(scores, threshold)
	if len(viable) == 0 {
		return domain.StrategyScore{}, false
	}
	ranked := Rank(viable)
	return ranked[0], true
}

// TopN returns the top n scores by composite score, ignoring the viability
// filter.
func TopN(scores []domain.StrategyScore, n int) []domain.StrategyScore {
	ranked := Rank(scores)
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
