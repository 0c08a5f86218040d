// Package evaluation combines per-factor sub-scores and the composite
// quality signal into a final compliance score with tier classification and
// per-factor diagnostics. The aggregation itself is pure; the service layer
// adds orchestration, persistence, and batch fan-out.
package evaluation

import (
	"fmt"
	"time"
)

// Severity is the per-factor diagnostic label, independent of the numeric
// sub-score.
type Severity string

const (
	SeverityPass      Severity = "pass"
	SeverityMinorMiss Severity = "minor_miss"
	SeverityMajorMiss Severity = "major_miss"
	SeverityMissing   Severity = "missing"
)

// Tier is the coarse classification bucket used for dashboard grouping.
type Tier string

const (
	TierElite          Tier = "elite"
	TierQuality        Tier = "quality"
	TierSpeculative    Tier = "speculative"
	TierBelowThreshold Tier = "below_threshold"
)

// FactorObservation is the resolved value of one policy factor for one
// candidate at evaluation time. Observations are produced by external
// collaborators; an absent observation is a valid state, not an error.
type FactorObservation struct {
	Value float64 `json:"value"`
}

// ObservationSet maps factor keys to observations. A key that is absent or
// mapped to nil means the factor could not be resolved; its weight is then
// excluded from the coverage denominator instead of silently scoring zero.
type ObservationSet map[string]*FactorObservation

// Lookup returns the observation for a factor key, or nil when missing.
func (s ObservationSet) Lookup(key string) *FactorObservation {
	if s == nil {
		return nil
	}
	return s[key]
}

// FactorVerdict is the per-factor diagnostic row in a ScoreResult.
type FactorVerdict struct {
	FactorKey  string   `json:"factor_key"`
	FactorName string   `json:"factor_name"`
	Value      *float64 `json:"value,omitempty"` // nil when the observation was missing
	SubScore   float64  `json:"sub_score"`
	Weight     float64  `json:"weight"`
	Target     string   `json:"target"`
	Severity   Severity `json:"severity"`
}

// ScoreResult is the final output of one candidate evaluation. It is a plain
// structured value intended for direct serialization to a display layer; it
// carries no behavior and is immutable once returned.
type ScoreResult struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	PolicyID       int64           `json:"policy_id"`
	ShortStrike    float64         `json:"short_strike"`
	LongStrike     float64         `json:"long_strike"`
	Expiration     string          `json:"expiration"`
	FinalScore     float64         `json:"final_score"`
	Grade          string          `json:"grade"`
	Compliance     string          `json:"compliance"`
	Tier           Tier            `json:"tier"`
	WeightCoverage float64         `json:"weight_coverage"`
	CompositeScore int             `json:"composite_score"`
	Verdicts       []FactorVerdict `json:"verdicts"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SeverityThresholds partitions the normalized distance-to-target into
// pass / minor_miss / major_miss. The partition covers [0, inf) without
// gaps: d <= Pass is a pass, d <= Minor a minor miss, anything else major.
type SeverityThresholds struct {
	Pass  float64 `json:"pass"`
	Minor float64 `json:"minor"`
}

// DefaultSeverityThresholds mirror the eq curve's top bands: within 5% of
// target is a pass, within 20% a minor miss.
var DefaultSeverityThresholds = SeverityThresholds{Pass: 0.05, Minor: 0.20}

// Validate checks that the thresholds are monotonic.
func (t SeverityThresholds) Validate() error {
	if t.Pass < 0 {
		return fmt.Errorf("severity thresholds: pass must be >= 0, got %g", t.Pass)
	}
	if t.Minor < t.Pass {
		return fmt.Errorf("severity thresholds: minor (%g) must be >= pass (%g)", t.Minor, t.Pass)
	}
	return nil
}

// Classify maps a normalized distance-to-target to a severity.
func (t SeverityThresholds) Classify(distance float64) Severity {
	switch {
	case distance <= t.Pass:
		return SeverityPass
	case distance <= t.Minor:
		return SeverityMinorMiss
	default:
		return SeverityMajorMiss
	}
}

// GradeForScore maps a 0-100 score to a letter grade.
func GradeForScore(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// ComplianceForScore maps a 0-100 score to a compliance label.
func ComplianceForScore(score float64) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 65:
		return "Acceptable"
	case score >= 50:
		return "Below Target"
	default:
		return "Poor"
	}
}

// TierForScore maps a 0-100 score to a dashboard tier.
func TierForScore(score float64) Tier {
	switch {
	case score >= 90:
		return TierElite
	case score >= 75:
		return TierQuality
	case score >= 60:
		return TierSpeculative
	default:
		return TierBelowThreshold
	}
}
