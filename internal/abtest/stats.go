package abtest

import (
	"math"
	"sort"

	"github.com/whitebite/isolate-core/internal/domain"
)

// summarize computes a StrategyRunStats from one strategy's raw iterations
// over a wall-clock duration.
func summarize(strategyID string, iterations []domain.StrategyIterationResult, wallClockSeconds float64) domain.StrategyRunStats {
	stats := domain.StrategyRunStats{StrategyID: strategyID, Iterations: iterations}
	if len(iterations) == 0 {
		return stats
	}

	var latencies []float64
	successes := 0
	for _, it := range iterations {
		if it.Success {
			successes++
			latencies = append(latencies, it.LatencyMS)
		}
	}

	stats.SuccessRate = float64(successes) / float64(len(iterations))
	if wallClockSeconds > 0 {
		stats.Throughput = float64(successes) / wallClockSeconds
	}

	if len(latencies) == 0 {
		return stats
	}

	sort.Float64s(latencies)
	stats.Min = latencies[0]
	stats.Max = latencies[len(latencies)-1]
	stats.Mean = mean(latencies)
	stats.StdDev = stddev(latencies, stats.Mean)
	stats.Median = median(latencies)
	return stats
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// median assumes xs is already sorted ascending.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// welchTTest runs Welch's t-test between two independent samples, returning
// the t-statistic, the Welch–Satterthwaite degrees of freedom, and a
// two-tailed p-value approximation via a Student's-t CDF.
func welchTTest(a, b []float64) (tStat, df, pValue float64) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, 1
	}
	meanA, meanB := mean(a), mean(b)
	varA := variance(a, meanA)
	varB := variance(b, meanB)
	nA, nB := float64(len(a)), float64(len(b))

	seA := varA / nA
	seB := varB / nB
	se := math.Sqrt(seA + seB)
	if se == 0 {
		return 0, 0, 1
	}

	tStat = (meanA - meanB) / se

	numerator := (seA + seB) * (seA + seB)
	denominator := (seA*seA)/(nA-1) + (seB*seB)/(nB-1)
	if denominator == 0 {
		df = nA + nB - 2
	} else {
		df = numerator / denominator
	}

	pValue = twoTailedP(tStat, df)
	return tStat, df, pValue
}

func variance(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return sumSq / float64(len(xs)-1)
}

// cohenD computes Cohen's d using the pooled standard deviation of the two
// samples.
func cohenD(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	meanA, meanB := mean(a), mean(b)
	varA := variance(a, meanA)
	varB := variance(b, meanB)
	nA, nB := float64(len(a)), float64(len(b))

	pooled := ((nA-1)*varA + (nB-1)*varB) / (nA + nB - 2)
	if pooled <= 0 {
		return 0
	}
	return (meanA - meanB) / math.Sqrt(pooled)
}

func classifyEffect(d float64) domain.EffectSize {
	ad := math.Abs(d)
	switch {
	case ad < 0.2:
		return domain.EffectNegligible
	case ad < 0.5:
		return domain.EffectSmall
	case ad < 0.8:
		return domain.EffectMedium
	default:
		return domain.EffectLarge
	}
}

// twoTailedP approximates the two-tailed p-value for a t-statistic with df
// degrees of freedom via the regularized incomplete beta function, the
// standard closed-form route from the t-distribution's CDF.
func twoTailedP(t, df float64) float64 {
	if df <= 0 {
		return 1
	}
	x := df / (df + t*t)
	ib := incompleteBeta(x, df/2, 0.5)
	p := ib
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// incompleteBeta computes the regularized incomplete beta function I_x(a,b)
// via a continued fraction expansion (Numerical Recipes' betacf), the
// standard numerically stable approach for this range of a/b.
func incompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	lbeta := lgamma(a+b) - lgamma(a) - lgamma(b)
	front := math.Exp(lbeta + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betacf(x, a, b) / a
	}
	return 1 - front*betacf(1-x, b, a)/b
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func betacf(x, a, b float64) float64 {
	const maxIter = 200
	const eps = 3e-12
	const fpmin = 1e-300

	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		m2 := float64(2 * m)
		aa := float64(m) * (b - float64(m)) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c

		aa = -(a + float64(m)) * (qab + float64(m)) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
