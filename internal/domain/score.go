package domain

// ServiceProbeSummary aggregates all probes run for one service.
type ServiceProbeSummary struct {
	ServiceID         string
	Critical          bool
	Total             int
	Passed            int
	SuccessRate       float64
	AvgLatencySuccess float64
	ErrorTypes        map[ErrorClass]int
}

// ErrorClass is the classification attached to a failed probe, used by the
// scorer and surfaced to the UI layer.
type ErrorClass string

const (
	ErrorClassTimeout ErrorClass = "timeout"
	ErrorClassDNS     ErrorClass = "dns"
	ErrorClassTCP     ErrorClass = "tcp"
	ErrorClassTLS     ErrorClass = "tls"
	ErrorClassHTTP    ErrorClass = "http"
	ErrorClassUnknown ErrorClass = "unknown"
)

// StrategyScore is the computed ranking for one strategy over a set of
// service probe summaries.
type StrategyScore struct {
	StrategyID          string
	SuccessRate         float64
	CriticalSuccessRate float64
	LatencyAvgMS        float64
	LatencyJitter       float64
	Score               float64
}

// ScoreWeights weight the four components of the composite score. They must
// sum to 1.0 within 0.001 or be normalised.
type ScoreWeights struct {
	SuccessRate         float64
	CriticalSuccessRate float64
	Latency             float64
	Jitter              float64
}

// DefaultScoreWeights is the default weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{SuccessRate: 0.5, CriticalSuccessRate: 0.3, Latency: 0.15, Jitter: 0.05}
}

// NoJitterScoreWeights is the variant used when no jitter term is available.
func NoJitterScoreWeights() ScoreWeights {
	return ScoreWeights{SuccessRate: 0.4, CriticalSuccessRate: 0.3, Latency: 0.3, Jitter: 0}
}

// Sum returns the sum of all four weights.
func (w ScoreWeights) Sum() float64 {
	return w.SuccessRate + w.CriticalSuccessRate + w.Latency + w.Jitter
}
