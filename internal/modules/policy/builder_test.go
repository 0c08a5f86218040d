package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func validFactor(key string, order int) PolicyFactor {
	return PolicyFactor{
		Key:          key,
		Name:         "Factor " + key,
		Weight:       0.5,
		Rule:         RuleGTE,
		Target:       15,
		Kind:         KindQuantitative,
		Enabled:      true,
		DisplayOrder: order,
	}
}

func TestBuilder_Build(t *testing.T) {
	pol, err := NewBuilder("Conservative Wheel").
		Description("Low-delta put spreads on index ETFs").
		AddFactor(validFactor("roi", 1)).
		AddFactor(validFactor("pop", 2)).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "Conservative Wheel", pol.Name)
	assert.Equal(t, "Low-delta put spreads on index ETFs", pol.Description)
	assert.Len(t, pol.Factors, 2)
}

func TestBuilder_RequiresName(t *testing.T) {
	_, err := NewBuilder("").Build()

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Empty(t, vErr.Factor)
}

func TestBuilder_RejectsNegativeWeight(t *testing.T) {
	f := validFactor("roi", 1)
	f.Weight = -0.1

	_, err := NewBuilder("p").AddFactor(f).Build()

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "roi", vErr.Factor)
}

func TestBuilder_RejectsUnknownRuleAndKind(t *testing.T) {
	f := validFactor("roi", 1)
	f.Rule = "approx"
	_, err := NewBuilder("p").AddFactor(f).Build()
	assert.Error(t, err)

	f = validFactor("roi", 1)
	f.Kind = "fuzzy"
	_, err = NewBuilder("p").AddFactor(f).Build()
	assert.Error(t, err)
}

func TestBuilder_RangeRuleValidation(t *testing.T) {
	// range without target_max
	f := validFactor("dte", 1)
	f.Rule = RuleRange
	_, err := NewBuilder("p").AddFactor(f).Build()
	assert.Error(t, err, "range rule requires target_max")

	// inverted band
	f.TargetMax = floatPtr(5)
	f.Target = 10
	_, err = NewBuilder("p").AddFactor(f).Build()
	assert.Error(t, err, "target above target_max must be rejected")

	// target_max on a non-range rule
	g := validFactor("roi", 1)
	g.TargetMax = floatPtr(20)
	_, err = NewBuilder("p").AddFactor(g).Build()
	assert.Error(t, err, "target_max only applies to the range rule")

	// a proper band passes
	f.Target = 5
	f.TargetMax = floatPtr(10)
	_, err = NewBuilder("p").AddFactor(f).Build()
	assert.NoError(t, err)
}

func TestBuilder_QualitativeValidation(t *testing.T) {
	q := validFactor("conviction", 1)
	q.Kind = KindQualitative
	q.Target = 3

	_, err := NewBuilder("p").AddFactor(q).Build()
	assert.NoError(t, err)

	// Only gte is meaningful for ratings.
	bad := q
	bad.Rule = RuleLTE
	_, err = NewBuilder("p").AddFactor(bad).Build()
	assert.Error(t, err)

	// Non-integer target.
	bad = q
	bad.Target = 3.5
	_, err = NewBuilder("p").AddFactor(bad).Build()
	assert.Error(t, err)

	// Out of the 1-5 scale.
	bad = q
	bad.Target = 6
	_, err = NewBuilder("p").AddFactor(bad).Build()
	assert.Error(t, err)
}

func TestBuilder_RejectsDuplicateKeys(t *testing.T) {
	_, err := NewBuilder("p").
		AddFactor(validFactor("roi", 1)).
		AddFactor(validFactor("roi", 2)).
		Build()

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "roi", vErr.Factor)
}

func TestBuilder_SortsByDisplayOrder(t *testing.T) {
	pol, err := NewBuilder("p").
		AddFactor(validFactor("third", 30)).
		AddFactor(validFactor("first", 10)).
		AddFactor(validFactor("second", 20)).
		Build()
	require.NoError(t, err)

	keys := make([]string, 0, len(pol.Factors))
	for _, f := range pol.Factors {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"first", "second", "third"}, keys)
}

func TestPolicy_EnabledFactors(t *testing.T) {
	disabled := validFactor("skipped", 2)
	disabled.Enabled = false

	pol, err := NewBuilder("p").
		AddFactor(validFactor("roi", 1)).
		AddFactor(disabled).
		AddFactor(validFactor("pop", 3)).
		Build()
	require.NoError(t, err)

	enabled := pol.EnabledFactors()
	require.Len(t, enabled, 2)
	assert.Equal(t, "roi", enabled[0].Key)
	assert.Equal(t, "pop", enabled[1].Key)

	assert.InDelta(t, 1.0, pol.TotalConfiguredWeight(), 1e-9, "disabled factors carry no weight")
}

func TestTargetDescription(t *testing.T) {
	f := validFactor("roi", 1)
	assert.Equal(t, ">= 15", f.TargetDescription())

	f.Rule = RuleLTE
	assert.Equal(t, "<= 15", f.TargetDescription())

	f.Rule = RuleEQ
	assert.Equal(t, "= 15", f.TargetDescription())

	f.Rule = RuleRange
	f.Target = 10
	f.TargetMax = floatPtr(20)
	assert.Equal(t, "10 to 20", f.TargetDescription())
}
