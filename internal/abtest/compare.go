package abtest

import (
	"fmt"
	"math"

	"github.com/whitebite/isolate-core/internal/domain"
)

// compare applies the winner-selection priority order to two completed
// strategy runs and returns the full comparison record.
func compare(testID string, a, b domain.StrategyRunStats) domain.ABTestResult {
	result := domain.ABTestResult{TestID: testID, ResultA: a, ResultB: b}
	result.DeltaSuccessRate = a.SuccessRate - b.SuccessRate
	result.DeltaLatencyMS = a.Mean - b.Mean

	latenciesA := successLatencies(a)
	latenciesB := successLatencies(b)
	tStat, _, pValue := welchTTest(latenciesA, latenciesB)
	d := cohenD(latenciesA, latenciesB)
	result.Comparison = domain.StatComparison{
		TStatistic:     tStat,
		PValue:         pValue,
		EffectSize:     d,
		EffectCategory: classifyEffect(d),
		Interpretation: interpretation(tStat, pValue, d),
	}

	successDeltaPct := math.Abs(result.DeltaSuccessRate) * 100

	switch {
	case successDeltaPct > 10:
		winner, loser := a, b
		if b.SuccessRate > a.SuccessRate {
			winner, loser = b, a
		}
		result.WinnerID = winner.StrategyID
		result.WinnerConfidence = math.Min(successDeltaPct/100, 0.99)
		result.WinnerReason = fmt.Sprintf("%s has a higher success rate (%.1f%% vs %.1f%%)",
			winner.StrategyID, winner.SuccessRate*100, loser.SuccessRate*100)

	case pValue < 0.05 && len(latenciesA) > 0 && len(latenciesB) > 0:
		winner := a
		if b.Mean < a.Mean {
			winner = b
		}
		result.WinnerID = winner.StrategyID
		result.WinnerConfidence = 1 - pValue
		result.WinnerReason = fmt.Sprintf("%s has statistically significantly lower latency (p=%.4f, effect=%s)",
			winner.StrategyID, pValue, result.Comparison.EffectCategory)

	case successDeltaPct > 5 && successDeltaPct <= 10:
		winner, loser := a, b
		if b.SuccessRate > a.SuccessRate {
			winner, loser = b, a
		}
		result.WinnerID = winner.StrategyID
		result.WinnerConfidence = 0.7 + 0.1*((successDeltaPct-5)/5)
		result.WinnerReason = fmt.Sprintf("%s has a modestly higher success rate (%.1f%% vs %.1f%%)",
			winner.StrategyID, winner.SuccessRate*100, loser.SuccessRate*100)

	case math.Abs(result.DeltaLatencyMS) > 100 && a.Mean > 0 && b.Mean > 0:
		winner := a
		if b.Mean < a.Mean {
			winner = b
		}
		result.WinnerID = winner.StrategyID
		delta := math.Abs(result.DeltaLatencyMS)
		result.WinnerConfidence = math.Min(0.6+delta/1000, 0.8)
		result.WinnerReason = fmt.Sprintf("%s has meaningfully lower latency (Δ=%.0fms)", winner.StrategyID, delta)

	default:
		result.WinnerID = ""
		result.WinnerConfidence = 0.5
		result.WinnerReason = "no statistically or practically significant difference"
	}

	return result
}

func successLatencies(run domain.StrategyRunStats) []float64 {
	var out []float64
	for _, it := range run.Iterations {
		if it.Success {
			out = append(out, it.LatencyMS)
		}
	}
	return out
}

func interpretation(tStat, pValue float64, d float64) string {
	if pValue < 0.05 {
		return fmt.Sprintf("statistically significant (t=%.2f, p=%.4f, Cohen's d=%.2f)", tStat, pValue, d)
	}
	return fmt.Sprintf("not statistically significant (t=%.2f, p=%.4f)", tStat, pValue)
}
