// Package scoring contains the pure scoring functions of the evaluation
// engine: per-factor normalization curves and the composite risk/reward
// quality score. Every function here is deterministic and side-effect free.
package scoring

import (
	"fmt"
	"math"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
)

// Factor curve shape constants. Meeting a target exactly is worth the
// baseline; the remaining headroom rewards exceeding it.
const (
	baselineScore = 70.0
	bonusRange    = 30.0

	// Qualitative ratings run 1-5; a rating that meets a maxed-out target
	// of 5 scores a flat 85 since there is no headroom left to scale into.
	maxRating             = 5.0
	maxTargetQualityScore = 85.0
)

// ScoreFactor normalizes one observed value into a 0-100 sub-score using the
// factor's comparison rule. Weight is deliberately not applied here; the
// aggregator owns weighting. Unknown rules are an error: the rule set is
// closed so that every supported curve is exhaustively testable.
func ScoreFactor(value float64, factor policy.PolicyFactor) (float64, error) {
	if err := factor.Validate(); err != nil {
		return 0, err
	}

	if factor.Kind == policy.KindQualitative {
		return scoreQualitative(value, factor.Target), nil
	}

	switch factor.Rule {
	case policy.RuleGTE:
		return scoreGTE(value, factor.Target), nil
	case policy.RuleLTE:
		return scoreLTE(value, factor.Target), nil
	case policy.RuleEQ:
		return scoreEQ(value, factor.Target), nil
	case policy.RuleRange:
		return scoreRange(value, factor.Target, *factor.TargetMax), nil
	default:
		return 0, fmt.Errorf("unsupported comparison rule %q for factor %s", factor.Rule, factor.Key)
	}
}

// scoreGTE scores higher-is-better factors. Meeting the target exactly is
// worth the baseline 70; the curve is monotonic and continuous at the target.
func scoreGTE(value, target float64) float64 {
	if value >= target {
		return math.Min(100, baselineScore+bonusRange*(value-target)/safeDenominator(target))
	}
	denom := target
	if denom == 0 {
		denom = 1
	}
	return clamp(0, 100, value/denom*baselineScore)
}

// scoreLTE scores lower-is-better factors, mirroring scoreGTE.
func scoreLTE(value, target float64) float64 {
	if value <= target {
		return math.Min(100, baselineScore+bonusRange*(target-value)/safeDenominator(target))
	}
	return math.Max(0, baselineScore-baselineScore*(value-target)/safeDenominator(target))
}

// scoreEQ scores closeness to a target using stepped thresholds on the
// relative distance, falling off linearly past 50% away.
func scoreEQ(value, target float64) float64 {
	d := math.Abs(value-target) / safeDenominator(target)
	switch {
	case d <= 0.05:
		return 100
	case d <= 0.10:
		return 90
	case d <= 0.20:
		return 75
	case d <= 0.50:
		return 50
	default:
		return math.Max(0, 50-50*d)
	}
}

// scoreRange scores a band factor: the midpoint of [target, targetMax]
// scores 100 and both bounds score the baseline 70. Outside the band the
// score decays linearly with relative distance beyond the nearest bound.
func scoreRange(value, target, targetMax float64) float64 {
	if value >= target && value <= targetMax {
		if targetMax == target {
			// Degenerate single-point band.
			return 100
		}
		position := (value - target) / (targetMax - target)
		return baselineScore + bonusRange*(1-2*math.Abs(position-0.5))
	}

	var d float64
	if value < target {
		d = (target - value) / safeDenominator(target)
	} else {
		d = (value - targetMax) / safeDenominator(targetMax)
	}
	return math.Max(0, baselineScore-baselineScore*d)
}

// scoreQualitative scores a 1-5 rating against a 1-5 integer target.
func scoreQualitative(rating, target float64) float64 {
	if rating >= target {
		if target >= maxRating {
			return maxTargetQualityScore
		}
		return math.Min(100, baselineScore+bonusRange*(rating-target)/(maxRating-target))
	}
	return clamp(0, 100, rating/safeDenominator(target)*baselineScore)
}

// DistanceToTarget computes the normalized distance-to-target used for
// severity classification: 0 means the target is met, and the value grows
// with relative shortfall. The same max(target, 1) denominator guard as the
// scoring curves keeps zero targets from dividing by zero.
func DistanceToTarget(value float64, factor policy.PolicyFactor) (float64, error) {
	if err := factor.Validate(); err != nil {
		return 0, err
	}

	switch factor.Rule {
	case policy.RuleGTE:
		return math.Max(0, (factor.Target-value)/safeDenominator(factor.Target)), nil
	case policy.RuleLTE:
		return math.Max(0, (value-factor.Target)/safeDenominator(factor.Target)), nil
	case policy.RuleEQ:
		return math.Abs(value-factor.Target) / safeDenominator(factor.Target), nil
	case policy.RuleRange:
		targetMax := *factor.TargetMax
		if value >= factor.Target && value <= targetMax {
			return 0, nil
		}
		if value < factor.Target {
			return (factor.Target - value) / safeDenominator(factor.Target), nil
		}
		return (value - targetMax) / safeDenominator(targetMax), nil
	default:
		return 0, fmt.Errorf("unsupported comparison rule %q for factor %s", factor.Rule, factor.Key)
	}
}

// safeDenominator guards relative-distance divisions against zero targets.
// For targets below 1 (including negative ones) this compresses relative
// distances; the approximation is inherited from the scoring formulas and
// kept identical everywhere so curves and severities stay consistent.
func safeDenominator(target float64) float64 {
	return math.Max(target, 1)
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
