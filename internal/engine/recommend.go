package engine

import (
	"strconv"

	"github.com/whitebite/isolate-core/internal/domain"
	"github.com/whitebite/isolate-core/internal/scoring"
)

// Recommendation pairs a candidate strategy with the evidence behind its
// ranking, so a caller can show "why" before committing to a start call.
type Recommendation struct {
	StrategyID string
	Score      domain.StrategyScore
	Learned    *domain.StrategyStats
	Reason     string
}

// RecommendStrategies ranks pool against the most recent scorer output,
// supplementing the bare start/stop primitives with a ranked suggestion list
// (grounded on the original's `strategy_analyzer.rs`). The order follows the
// composite score alone (a strategy without a score ranks as zero). Learner
// stats, keyed by strategy id, are attached and noted in Reason but do not
// change the order; learner locks are not consulted.
func RecommendStrategies(pool []domain.Strategy, scores []domain.StrategyScore, learned map[string]domain.StrategyStats, viabilityThreshold float64) []Recommendation {
	scoreByID := make(map[string]domain.StrategyScore, len(scores))
	for _, s := range scores {
		scoreByID[s.StrategyID] = s
	}

	recs := make([]Recommendation, 0, len(pool))
	for _, strategy := range pool {
		score, hasScore := scoreByID[strategy.ID]
		var learnedStats *domain.StrategyStats
		if stats, ok := learned[strategy.ID]; ok {
			s := stats
			learnedStats = &s
		}

		reason := "no probe history yet"
		switch {
		case hasScore && score.SuccessRate >= viabilityThreshold:
			reason = "viable: meets the success-rate threshold"
		case hasScore:
			reason = "below viability threshold"
		}
		if learnedStats != nil && learnedStats.TotalAttempts() > 0 {
			reason = reason + "; learner success rate " + formatPercent(learnedStats.SuccessRate())
		}

		recs = append(recs, Recommendation{StrategyID: strategy.ID, Score: score, Learned: learnedStats, Reason: reason})
	}

	return rankRecommendations(recs)
}

func rankRecommendations(recs []Recommendation) []Recommendation {
	scores := make([]domain.StrategyScore, len(recs))
	for i, r := range recs {
		scores[i] = r.Score
		scores[i].StrategyID = r.StrategyID
	}
	ranked := scoring.Rank(scores)

	byID := make(map[string]Recommendation, len(recs))
	for _, r := range recs {
		byID[r.StrategyID] = r
	}
	out := make([]Recommendation, 0, len(recs))
	for _, s := range ranked {
		out = append(out, byID[s.StrategyID])
	}
	return out
}

func formatPercent(ratio float64) string {
	return strconv.Itoa(int(ratio*100)) + "%"
}
