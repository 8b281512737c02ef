package stats

import (
	"math"

	"geoanomaly/domain/core"
)

// BinomialResult is the outcome of a two-tailed binomial test using the
// normal approximation.
type BinomialResult struct {
	Hits               int     `json:"hits"`
	Trials             int     `json:"trials"`
	ObservedProportion float64 `json:"observed_proportion"`
	ExpectedProportion float64 `json:"expected_proportion"`
	ZScore             float64 `json:"z_score"`
	PValue             float64 `json:"p_value"`
	// EffectObserved is true when the observed proportion deviates from the
	// expected one in the hypothesized direction.
	EffectObserved bool `json:"effect_observed"`
}

// Interval is a closed confidence interval for a proportion.
type Interval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// BinomialTest runs a two-tailed binomial test via the normal approximation.
// Fails fast on invalid counts; inputs are never clamped.
func BinomialTest(hits, trials int, expectedProportion float64) (BinomialResult, error) {
	if trials <= 0 {
		return BinomialResult{}, core.NewInvalidInputError("trials", "must be positive")
	}
	if hits < 0 {
		return BinomialResult{}, core.NewInvalidInputError("hits", "must be non-negative")
	}
	if hits > trials {
		return BinomialResult{}, core.NewInvalidInputError("hits", "cannot exceed trials")
	}
	if expectedProportion < 0 || expectedProportion > 1 {
		return BinomialResult{}, core.NewInvalidInputError("expectedProportion", "must be in [0,1]")
	}

	observed := float64(hits) / float64(trials)
	stdDev := math.Sqrt(expectedProportion * (1 - expectedProportion) / float64(trials))
	z := ZScore(observed, expectedProportion, stdDev)

	return BinomialResult{
		Hits:               hits,
		Trials:             trials,
		ObservedProportion: observed,
		ExpectedProportion: expectedProportion,
		ZScore:             z,
		PValue:             PValueFromZ(z),
		EffectObserved:     observed > expectedProportion,
	}, nil
}

// WilsonInterval computes the Wilson score interval for a proportion. The
// Wilson interval stays inside [0,1] at small n and extreme proportions,
// unlike the naive normal-approximation interval.
func WilsonInterval(hits, trials int, confidence float64) (Interval, error) {
	if trials <= 0 {
		return Interval{}, core.NewInvalidInputError("trials", "must be positive")
	}
	if hits < 0 || hits > trials {
		return Interval{}, core.NewInvalidInputError("hits", "must be in [0, trials]")
	}
	if confidence <= 0 || confidence >= 1 {
		return Interval{}, core.NewInvalidInputError("confidence", "must be in (0,1)")
	}

	z := zForConfidence(confidence)
	n := float64(trials)
	p := float64(hits) / n

	denom := 1 + z*z/n
	center := (p + z*z/(2*n)) / denom
	margin := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n)) / denom

	return Interval{
		Lower:      center - margin,
		Upper:      center + margin,
		Confidence: confidence,
	}, nil
}

// CohensH computes the arcsine-transformed effect size for the difference
// between two proportions: 2*asin(sqrt(p1)) - 2*asin(sqrt(p2)).
func CohensH(p1, p2 float64) (float64, error) {
	if p1 < 0 || p1 > 1 {
		return 0, core.NewInvalidInputError("p1", "must be in [0,1]")
	}
	if p2 < 0 || p2 > 1 {
		return 0, core.NewInvalidInputError("p2", "must be in [0,1]")
	}
	return 2*math.Asin(math.Sqrt(p1)) - 2*math.Asin(math.Sqrt(p2)), nil
}

// ZScore returns (observed-expected)/stdDev, or 0 when stdDev is 0.
func ZScore(observed, expected, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (observed - expected) / stdDev
}

// PValueFromZ converts a z-score to a two-tailed p-value using the
// Abramowitz & Stegun closed-form approximation of the normal CDF. The
// polynomial coefficients are pinned: downstream systems reproduce results
// digit-for-digit against them.
func PValueFromZ(z float64) float64 {
	absZ := math.Abs(z)
	t := 1 / (1 + 0.2316419*absZ)
	d := 0.3989423 * math.Exp(-z*z/2)
	p := 2 * d * t * (0.3193815 + t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// zForConfidence maps a two-sided confidence level to its critical z value.
// The common levels are tabulated; anything else falls back to an inverse
// search over PValueFromZ so the interval stays consistent with the same
// CDF approximation used everywhere else.
func zForConfidence(confidence float64) float64 {
	switch confidence {
	case 0.90:
		return 1.6449
	case 0.95:
		return 1.9600
	case 0.99:
		return 2.5758
	}

	alpha := 1 - confidence
	lo, hi := 0.0, 10.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if PValueFromZ(mid) > alpha {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
