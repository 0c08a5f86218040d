package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
)

func floatPtr(v float64) *float64 {
	return &v
}

// buildSpread constructs a valid 450/445 put credit spread 30 days out.
func buildSpread(t *testing.T) candidates.CandidateSpread {
	t.Helper()

	asOf := time.Date(2026, 8, 19, 14, 30, 0, 0, time.UTC)
	expiration := asOf.AddDate(0, 0, 30)

	short := chains.OptionLeg{
		Strike:       450,
		Expiration:   expiration,
		Type:         chains.OptionTypePut,
		Bid:          1.20,
		Ask:          1.30,
		Delta:        floatPtr(-0.18),
		OpenInterest: 1500,
	}
	long := chains.OptionLeg{
		Strike:       445,
		Expiration:   expiration,
		Type:         chains.OptionTypePut,
		Bid:          0.55,
		Ask:          0.60,
		Delta:        floatPtr(-0.12),
		OpenInterest: 900,
	}

	spread, err := candidates.NewCandidateSpread("SPY", 470, short, long, asOf)
	require.NoError(t, err)
	return spread
}

func TestCompositeWeightsSumToOne(t *testing.T) {
	total := WeightRiskReward +
		WeightCapitalEfficiency +
		WeightProbabilityWeighted +
		WeightExpectedValue +
		WeightSharpeLike
	assert.Equal(t, 1.0, total)
}

func TestCompositeWithBreakdown(t *testing.T) {
	spread := buildSpread(t)

	breakdown, err := CompositeWithBreakdown(spread)
	require.NoError(t, err)

	// credit 0.60 against max loss 4.40 is a 13.64% return on risk.
	assert.InDelta(t, 13.6364, breakdown.ROIPct, 1e-3)
	assert.InDelta(t, breakdown.ROIPct*365.0/30.0, breakdown.AnnualizedROI, 1e-9)

	// EV = 0.82 * 0.60 - 0.18 * 4.40
	assert.InDelta(t, 0.82*0.60-0.18*4.40, breakdown.ExpectedValue, 1e-9)
	assert.InDelta(t, breakdown.ExpectedValue/4.40, breakdown.EVPerDollar, 1e-9)

	// Every component stays on the 0-100 scale.
	for name, component := range map[string]float64{
		"risk_reward":        breakdown.RiskRewardScore,
		"capital_efficiency": breakdown.CapitalEfficiencyScore,
		"prob_weighted":      breakdown.ProbWeightedScore,
		"expected_value":     breakdown.ExpectedValueScore,
		"sharpe_like":        breakdown.SharpeLikeScore,
	} {
		assert.GreaterOrEqual(t, component, 0.0, name)
		assert.LessOrEqual(t, component, 100.0, name)
	}

	assert.GreaterOrEqual(t, breakdown.Score, 0)
	assert.LessOrEqual(t, breakdown.Score, 100)
}

func TestScoreCompositeDeterministic(t *testing.T) {
	spread := buildSpread(t)

	first, err := ScoreComposite(spread)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := ScoreComposite(spread)
		require.NoError(t, err)
		assert.Equal(t, first, again, "same inputs must produce the same score")
	}
}

func TestScoreCompositeKnownGeometry(t *testing.T) {
	// maxProfit 0.25, maxLoss 4.75, pop 0.82, dte 30 on a 5-wide spread.
	spread := buildSpread(t)
	spread.Credit = 0.25
	spread.MaxProfit = 0.25
	spread.MaxLoss = 4.75
	spread.ProbabilityOfProfit = 0.82
	spread.DaysToExpiration = 30

	breakdown, err := CompositeWithBreakdown(spread)
	require.NoError(t, err)

	roiPct := 0.25 / 4.75 * 100
	assert.InDelta(t, roiPct, breakdown.ROIPct, 1e-9)
	assert.InDelta(t, roiPct, breakdown.RiskRewardScore, 1e-9)

	annualized := roiPct * 365.0 / 30.0
	assert.InDelta(t, annualized/2, breakdown.CapitalEfficiencyScore, 1e-9)

	assert.InDelta(t, 0.82*roiPct*1.5, breakdown.ProbWeightedScore, 1e-9)

	// EV is deeply negative here (0.82*0.25 - 0.18*4.75), so the EV
	// component bottoms out at the clamp.
	assert.InDelta(t, 0.82*0.25-0.18*4.75, breakdown.ExpectedValue, 1e-9)
	assert.Equal(t, 0.0, breakdown.ExpectedValueScore)
}

func TestCompositeRejectsInvalidGeometry(t *testing.T) {
	base := buildSpread(t)

	zeroLoss := base
	zeroLoss.MaxLoss = 0
	_, err := CompositeWithBreakdown(zeroLoss)
	assert.Error(t, err, "non-positive max loss must be rejected")

	zeroProfit := base
	zeroProfit.MaxProfit = 0
	_, err = CompositeWithBreakdown(zeroProfit)
	assert.Error(t, err, "non-positive max profit must be rejected")

	expired := base
	expired.DaysToExpiration = 0
	_, err = CompositeWithBreakdown(expired)
	assert.Error(t, err, "non-positive DTE must be rejected")

	certain := base
	certain.ProbabilityOfProfit = 1.0
	_, err = CompositeWithBreakdown(certain)
	assert.Error(t, err, "probability of 1 must be rejected")

	impossible := base
	impossible.ProbabilityOfProfit = 0
	_, err = CompositeWithBreakdown(impossible)
	assert.Error(t, err, "probability of 0 must be rejected")
}

func TestCompositeScoreBounded(t *testing.T) {
	base := buildSpread(t)

	// Extremely favorable geometry still lands inside 0-100.
	rich := base
	rich.Credit = 4.0
	rich.MaxProfit = 4.0
	rich.MaxLoss = 1.0
	rich.ProbabilityOfProfit = 0.95
	rich.DaysToExpiration = 3

	score, err := ScoreComposite(rich)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)

	// Terrible geometry likewise.
	poor := base
	poor.Credit = 0.01
	poor.MaxProfit = 0.01
	poor.MaxLoss = 9.99
	poor.ProbabilityOfProfit = 0.05
	poor.DaysToExpiration = 400

	score, err = ScoreComposite(poor)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
	assert.Greater(t, mustScore(t, rich), score, "favorable geometry must outrank poor geometry")
}

func mustScore(t *testing.T, c candidates.CandidateSpread) int {
	t.Helper()
	score, err := ScoreComposite(c)
	require.NoError(t, err)
	return score
}
