package scoring

import (
	"fmt"
	"math"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
)

// Composite quality score component weights. Fixed, not user-configurable,
// and they must sum to exactly 1.0.
const (
	WeightRiskReward          = 0.35 // max profit vs max loss
	WeightCapitalEfficiency   = 0.25 // annualized return on risk capital
	WeightProbabilityWeighted = 0.20 // POP-weighted return
	WeightExpectedValue       = 0.15 // expected value per dollar risked
	WeightSharpeLike          = 0.05 // excess return over volatility proxy

	// Annualization and EV curve constants.
	daysPerYear      = 365.0
	riskFreeRate     = 0.05
	evTargetPerUnit  = 0.10 // EV per dollar that scores the 50-point midpoint
	evScoreSlope     = 250.0
	sharpeScoreSlope = 50.0
)

// CompositeBreakdown carries the composite score together with its component
// scores and intermediate quantities for diagnostics.
type CompositeBreakdown struct {
	ROIPct        float64 `json:"roi_pct"`
	AnnualizedROI float64 `json:"annualized_roi"`
	ExpectedValue float64 `json:"expected_value"`
	EVPerDollar   float64 `json:"ev_per_dollar"`

	RiskRewardScore        float64 `json:"risk_reward_score"`
	CapitalEfficiencyScore float64 `json:"capital_efficiency_score"`
	ProbWeightedScore      float64 `json:"prob_weighted_score"`
	ExpectedValueScore     float64 `json:"expected_value_score"`
	SharpeLikeScore        float64 `json:"sharpe_like_score"`

	Score int `json:"score"`
}

// ScoreComposite produces a single 0-100 quality score for a candidate
// spread from its financial geometry. It is usable standalone for ranking or
// as one more weighted component fed into the aggregator.
func ScoreComposite(c candidates.CandidateSpread) (int, error) {
	breakdown, err := CompositeWithBreakdown(c)
	if err != nil {
		return 0, err
	}
	return breakdown.Score, nil
}

// CompositeWithBreakdown computes the composite score and its components.
// Candidates violating the generator's validity guarantees (non-positive max
// loss or days to expiration, probability outside (0,1)) are rejected as
// input-validation errors rather than being scored.
func CompositeWithBreakdown(c candidates.CandidateSpread) (CompositeBreakdown, error) {
	if c.MaxLoss <= 0 {
		return CompositeBreakdown{}, fmt.Errorf("composite score %s: max loss must be positive, got %g", c.Describe(), c.MaxLoss)
	}
	if c.MaxProfit <= 0 {
		return CompositeBreakdown{}, fmt.Errorf("composite score %s: max profit must be positive, got %g", c.Describe(), c.MaxProfit)
	}
	if c.DaysToExpiration <= 0 {
		return CompositeBreakdown{}, fmt.Errorf("composite score %s: days to expiration must be positive, got %d", c.Describe(), c.DaysToExpiration)
	}
	if c.ProbabilityOfProfit <= 0 || c.ProbabilityOfProfit >= 1 {
		return CompositeBreakdown{}, fmt.Errorf("composite score %s: probability of profit %g outside (0, 1)", c.Describe(), c.ProbabilityOfProfit)
	}

	dte := float64(c.DaysToExpiration)

	// Return on risk capital.
	roiPct := c.MaxProfit / c.MaxLoss * 100
	rrScore := math.Min(100, roiPct)

	// Annualized return, halved so a 200% annualized ROI saturates the scale.
	annualizedROI := roiPct * (daysPerYear / dte)
	capitalEfficiencyScore := math.Min(100, annualizedROI/2)

	// Probability-weighted return.
	probWeighted := c.ProbabilityOfProfit * roiPct
	probWeightedScore := math.Min(100, probWeighted*1.5)

	// Expected value per dollar risked, centered so +10 cents per dollar
	// scores the 50-point midpoint.
	ev := c.ProbabilityOfProfit*c.MaxProfit - (1-c.ProbabilityOfProfit)*c.MaxLoss
	evPerDollar := ev / c.MaxLoss
	evScore := clamp(0, 100, 50+(evPerDollar-evTargetPerUnit)*evScoreSlope)

	// Sharpe-like ratio: excess return over a crude volatility proxy.
	excessReturn := evPerDollar - riskFreeRate*(dte/daysPerYear)
	volatilityProxy := c.MaxLoss / (c.MaxLoss + c.MaxProfit)
	sharpeLike := excessReturn / volatilityProxy
	sharpeScore := clamp(0, 100, 50+sharpeLike*sharpeScoreSlope)

	composite := WeightRiskReward*rrScore +
		WeightCapitalEfficiency*capitalEfficiencyScore +
		WeightProbabilityWeighted*probWeightedScore +
		WeightExpectedValue*evScore +
		WeightSharpeLike*sharpeScore

	return CompositeBreakdown{
		ROIPct:                 roiPct,
		AnnualizedROI:          annualizedROI,
		ExpectedValue:          ev,
		EVPerDollar:            evPerDollar,
		RiskRewardScore:        rrScore,
		CapitalEfficiencyScore: capitalEfficiencyScore,
		ProbWeightedScore:      probWeightedScore,
		ExpectedValueScore:     evScore,
		SharpeLikeScore:        sharpeScore,
		Score:                  int(math.Round(composite)),
	}, nil
}
