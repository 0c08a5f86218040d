package evaluation

import (
	"math"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/scoring"
)

// ExtraComponent is a pre-scored signal folded into the weighted average as
// one more factor, e.g. the composite quality score. Its severity is derived
// by treating the baseline 70 as its implicit target.
type ExtraComponent struct {
	Key    string
	Name   string
	Score  float64 // already normalized to 0-100
	Weight float64
}

// AggregateResult is the pure output of weighted aggregation, before the
// service attaches identity and candidate context.
type AggregateResult struct {
	FinalScore     float64
	Grade          string
	Compliance     string
	Tier           Tier
	WeightCoverage float64
	Verdicts       []FactorVerdict
}

// Aggregate combines per-factor sub-scores into a final compliance score.
//
// The final score is a true weighted average over the factors that were
// actually observed, not over the policy's full configured weight, so
// missing data does not silently depress the score. Weight coverage is
// reported separately for transparency. Factors are processed in their
// given order so the floating-point summation is bit-reproducible.
//
// A policy with zero enabled factors (and no extras) yields final score 0
// and coverage 0: valid output that callers should treat as "not evaluable".
func Aggregate(
	factors []policy.PolicyFactor,
	observations ObservationSet,
	extras []ExtraComponent,
	thresholds SeverityThresholds,
) (AggregateResult, error) {
	if err := thresholds.Validate(); err != nil {
		return AggregateResult{}, err
	}

	verdicts := make([]FactorVerdict, 0, len(factors)+len(extras))

	totalWeightedScore := 0.0
	totalAvailableWeight := 0.0
	totalConfiguredWeight := 0.0

	for _, factor := range factors {
		if !factor.Enabled {
			continue
		}
		if err := factor.Validate(); err != nil {
			return AggregateResult{}, err
		}

		totalConfiguredWeight += factor.Weight

		obs := observations.Lookup(factor.Key)
		if obs == nil {
			verdicts = append(verdicts, FactorVerdict{
				FactorKey:  factor.Key,
				FactorName: factor.Name,
				Weight:     factor.Weight,
				Target:     factor.TargetDescription(),
				Severity:   SeverityMissing,
			})
			continue
		}

		subScore, err := scoring.ScoreFactor(obs.Value, factor)
		if err != nil {
			return AggregateResult{}, err
		}

		distance, err := scoring.DistanceToTarget(obs.Value, factor)
		if err != nil {
			return AggregateResult{}, err
		}

		totalWeightedScore += subScore * factor.Weight
		totalAvailableWeight += factor.Weight

		value := obs.Value
		verdicts = append(verdicts, FactorVerdict{
			FactorKey:  factor.Key,
			FactorName: factor.Name,
			Value:      &value,
			SubScore:   subScore,
			Weight:     factor.Weight,
			Target:     factor.TargetDescription(),
			Severity:   thresholds.Classify(distance),
		})
	}

	for _, extra := range extras {
		score := clamp01Range(extra.Score)

		totalWeightedScore += score * extra.Weight
		totalAvailableWeight += extra.Weight
		totalConfiguredWeight += extra.Weight

		// Pre-scored components have no comparison rule; classify them as
		// if 70 (the curves' baseline for "target met") were the target.
		distance := math.Max(0, (70-score)/70)

		value := score
		verdicts = append(verdicts, FactorVerdict{
			FactorKey:  extra.Key,
			FactorName: extra.Name,
			Value:      &value,
			SubScore:   score,
			Weight:     extra.Weight,
			Target:     ">= 70",
			Severity:   thresholds.Classify(distance),
		})
	}

	finalScore := 0.0
	if totalAvailableWeight > 0 {
		finalScore = clamp01Range(totalWeightedScore / totalAvailableWeight)
	}

	weightCoverage := 0.0
	if totalConfiguredWeight > 0 {
		weightCoverage = totalAvailableWeight / totalConfiguredWeight
	}

	return AggregateResult{
		FinalScore:     finalScore,
		Grade:          GradeForScore(finalScore),
		Compliance:     ComplianceForScore(finalScore),
		Tier:           TierForScore(finalScore),
		WeightCoverage: weightCoverage,
		Verdicts:       verdicts,
	}, nil
}

// clamp01Range saturates a score into [0, 100].
func clamp01Range(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
