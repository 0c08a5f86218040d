package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
)

func gteFactor(target float64) policy.PolicyFactor {
	return policy.PolicyFactor{
		Key:     "roi",
		Name:    "Return on investment",
		Weight:  1.0,
		Rule:    policy.RuleGTE,
		Target:  target,
		Kind:    policy.KindQuantitative,
		Enabled: true,
	}
}

func lteFactor(target float64) policy.PolicyFactor {
	f := gteFactor(target)
	f.Key = "max_iv"
	f.Rule = policy.RuleLTE
	return f
}

func eqFactor(target float64) policy.PolicyFactor {
	f := gteFactor(target)
	f.Key = "target_delta"
	f.Rule = policy.RuleEQ
	return f
}

func rangeFactor(target, targetMax float64) policy.PolicyFactor {
	f := gteFactor(target)
	f.Key = "dte_window"
	f.Rule = policy.RuleRange
	f.TargetMax = &targetMax
	return f
}

func TestScoreFactor_GTEAtTargetScoresBaseline(t *testing.T) {
	// A gte factor with target 15 observed exactly at 15 scores 70.
	score, err := ScoreFactor(15, gteFactor(15))
	require.NoError(t, err)
	assert.Equal(t, 70.0, score)
}

func TestScoreFactor_GTEAboveTarget(t *testing.T) {
	factor := gteFactor(15)

	// Halfway bonus: value 22.5 is 50% above target -> 70 + 15 = 85.
	score, err := ScoreFactor(22.5, factor)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, score, 1e-9)

	// Doubling the target saturates the bonus.
	score, err = ScoreFactor(30, factor)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)

	// Far beyond stays capped.
	score, err = ScoreFactor(1000, factor)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestScoreFactor_GTEBelowTargetScalesLinearly(t *testing.T) {
	factor := gteFactor(15)

	score, err := ScoreFactor(7.5, factor)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, score, 1e-9)

	score, err = ScoreFactor(0, factor)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScoreFactor_GTEMonotonicInValue(t *testing.T) {
	factor := gteFactor(12)

	previous := -1.0
	for value := 0.0; value <= 40; value += 0.25 {
		score, err := ScoreFactor(value, factor)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, previous, "score must not decrease as value grows (value %v)", value)
		previous = score
	}
}

func TestScoreFactor_GTEZeroTargetDoesNotDivideByZero(t *testing.T) {
	factor := gteFactor(0)

	score, err := ScoreFactor(0, factor)
	require.NoError(t, err)
	assert.Equal(t, 70.0, score)

	// Denominator guard max(target, 1) applies above the target.
	score, err = ScoreFactor(0.5, factor)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, score, 1e-9)
}

func TestScoreFactor_LTE(t *testing.T) {
	factor := lteFactor(20)

	// At target: baseline.
	score, err := ScoreFactor(20, factor)
	require.NoError(t, err)
	assert.Equal(t, 70.0, score)

	// Below target is better.
	score, err = ScoreFactor(10, factor)
	require.NoError(t, err)
	assert.InDelta(t, 85.0, score, 1e-9)

	// Above target decays toward 0.
	score, err = ScoreFactor(30, factor)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, score, 1e-9)

	// Twice the target floors at 0.
	score, err = ScoreFactor(40, factor)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScoreFactor_EQExactTargetScores100(t *testing.T) {
	score, err := ScoreFactor(50, eqFactor(50))
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestScoreFactor_EQSteppedThresholds(t *testing.T) {
	factor := eqFactor(100)

	cases := []struct {
		value    float64
		expected float64
	}{
		{104, 100}, // d = 0.04
		{109, 90},  // d = 0.09
		{118, 75},  // d = 0.18
		{140, 50},  // d = 0.40
		{180, 10},  // d = 0.80 -> 50 - 40
		{300, 0},   // d = 2.00 -> floored
	}
	for _, tc := range cases {
		score, err := ScoreFactor(tc.value, factor)
		require.NoError(t, err)
		assert.InDelta(t, tc.expected, score, 1e-9, "value %v", tc.value)
	}
}

func TestScoreFactor_EQSymmetricAroundTarget(t *testing.T) {
	factor := eqFactor(100)

	for _, offset := range []float64{3, 8, 15, 40, 75} {
		above, err := ScoreFactor(100+offset, factor)
		require.NoError(t, err)
		below, err := ScoreFactor(100-offset, factor)
		require.NoError(t, err)
		assert.Equal(t, above, below, "offset %v", offset)
	}
}

func TestScoreFactor_RangeMidpointScores100(t *testing.T) {
	// A range factor 10..20 observed at the midpoint 15 scores 100.
	score, err := ScoreFactor(15, rangeFactor(10, 20))
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestScoreFactor_RangeBoundsScoreBaseline(t *testing.T) {
	factor := rangeFactor(10, 20)

	low, err := ScoreFactor(10, factor)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, low, 1e-9)

	high, err := ScoreFactor(20, factor)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, high, 1e-9)
}

func TestScoreFactor_RangeDegeneratePointBand(t *testing.T) {
	score, err := ScoreFactor(10, rangeFactor(10, 10))
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestScoreFactor_RangeOutsideDecaysToZero(t *testing.T) {
	factor := rangeFactor(10, 20)

	// Below the band: d = (10-5)/10 = 0.5 -> 70 * 0.5 = 35.
	score, err := ScoreFactor(5, factor)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, score, 1e-9)

	// Above the band: d = (30-20)/20 = 0.5 -> 35.
	score, err = ScoreFactor(30, factor)
	require.NoError(t, err)
	assert.InDelta(t, 35.0, score, 1e-9)

	// Far outside floors at zero.
	score, err = ScoreFactor(-100, factor)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScoreFactor_Qualitative(t *testing.T) {
	factor := policy.PolicyFactor{
		Key:     "conviction",
		Name:    "Conviction rating",
		Weight:  0.5,
		Rule:    policy.RuleGTE,
		Target:  3,
		Kind:    policy.KindQualitative,
		Enabled: true,
	}

	// Meets the target exactly: baseline.
	score, err := ScoreFactor(3, factor)
	require.NoError(t, err)
	assert.Equal(t, 70.0, score)

	// Max rating against target 3: 70 + 30 * 2/2 = 100.
	score, err = ScoreFactor(5, factor)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)

	// Below target scales linearly.
	score, err = ScoreFactor(2, factor)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0*70, score, 1e-9)
}

func TestScoreFactor_QualitativeMaxTargetFlat85(t *testing.T) {
	factor := policy.PolicyFactor{
		Key:     "conviction",
		Name:    "Conviction rating",
		Weight:  0.5,
		Rule:    policy.RuleGTE,
		Target:  5,
		Kind:    policy.KindQualitative,
		Enabled: true,
	}

	score, err := ScoreFactor(5, factor)
	require.NoError(t, err)
	assert.Equal(t, 85.0, score)
}

func TestScoreFactor_RejectsInvalidFactor(t *testing.T) {
	factor := gteFactor(10)
	factor.Weight = -1

	_, err := ScoreFactor(10, factor)
	assert.Error(t, err)
}

func TestDistanceToTarget(t *testing.T) {
	// Meeting or beating the target is distance zero.
	d, err := DistanceToTarget(20, gteFactor(15))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)

	// Shortfall is relative to the target.
	d, err = DistanceToTarget(12, gteFactor(15))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, d, 1e-9)

	// lte mirrors gte.
	d, err = DistanceToTarget(25, lteFactor(20))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, d, 1e-9)

	// eq counts both directions.
	d, err = DistanceToTarget(90, eqFactor(100))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, d, 1e-9)

	// Inside a range band the distance is zero.
	d, err = DistanceToTarget(14, rangeFactor(10, 20))
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)

	// Outside, distance is measured from the nearest bound.
	d, err = DistanceToTarget(25, rangeFactor(10, 20))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, d, 1e-9)
}
