// Package policy provides Investment Policy Statement (IPS) configuration:
// named sets of weighted evaluation factors, validated at construction so
// scoring never has to deal with malformed rules.
package policy

import (
	"fmt"
	"math"
	"time"
)

// ComparisonRule is the closed set of supported factor comparison rules.
type ComparisonRule string

const (
	RuleGTE   ComparisonRule = "gte"   // higher is better
	RuleLTE   ComparisonRule = "lte"   // lower is better
	RuleEQ    ComparisonRule = "eq"    // closer to target is better
	RuleRange ComparisonRule = "range" // inside [target, target_max] is better
)

// IsValid checks if the rule is a known value
func (r ComparisonRule) IsValid() bool {
	switch r {
	case RuleGTE, RuleLTE, RuleEQ, RuleRange:
		return true
	}
	return false
}

// FactorKind distinguishes numeric factors from 1-5 qualitative ratings.
type FactorKind string

const (
	KindQuantitative FactorKind = "quantitative"
	KindQualitative  FactorKind = "qualitative" // integer rating 1-5
)

// IsValid checks if the kind is a known value
func (k FactorKind) IsValid() bool {
	return k == KindQuantitative || k == KindQualitative
}

// ValidationError describes a malformed factor definition. It carries the
// offending factor key so a batch caller can report which rule was rejected.
type ValidationError struct {
	Factor string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Factor == "" {
		return fmt.Sprintf("invalid policy: %s", e.Reason)
	}
	return fmt.Sprintf("invalid policy factor %q: %s", e.Factor, e.Reason)
}

// PolicyFactor is a named, weighted evaluation rule within a policy.
type PolicyFactor struct {
	ID           int64          `json:"id"`
	Key          string         `json:"key"` // stable identifier used to resolve observations
	Name         string         `json:"name"`
	Weight       float64        `json:"weight"` // >= 0; weights need not sum to 1 across a policy
	Rule         ComparisonRule `json:"rule"`
	Target       float64        `json:"target"`
	TargetMax    *float64       `json:"target_max,omitempty"` // required for range rule
	Kind         FactorKind     `json:"kind"`
	Enabled      bool           `json:"enabled"`
	DisplayOrder int            `json:"display_order"`
}

// Validate rejects malformed factor definitions at construction time.
func (f PolicyFactor) Validate() error {
	if f.Key == "" {
		return &ValidationError{Reason: "factor key is required"}
	}
	if f.Weight < 0 {
		return &ValidationError{Factor: f.Key, Reason: fmt.Sprintf("weight must be >= 0, got %g", f.Weight)}
	}
	if !f.Rule.IsValid() {
		return &ValidationError{Factor: f.Key, Reason: fmt.Sprintf("unknown comparison rule %q", f.Rule)}
	}
	if !f.Kind.IsValid() {
		return &ValidationError{Factor: f.Key, Reason: fmt.Sprintf("unknown factor kind %q", f.Kind)}
	}

	if f.Rule == RuleRange {
		if f.TargetMax == nil {
			return &ValidationError{Factor: f.Key, Reason: "range rule requires target_max"}
		}
		if f.Target > *f.TargetMax {
			return &ValidationError{
				Factor: f.Key,
				Reason: fmt.Sprintf("range rule requires target (%g) <= target_max (%g)", f.Target, *f.TargetMax),
			}
		}
	} else if f.TargetMax != nil {
		return &ValidationError{Factor: f.Key, Reason: fmt.Sprintf("target_max only applies to the range rule, not %q", f.Rule)}
	}

	if f.Kind == KindQualitative {
		if f.Rule != RuleGTE {
			return &ValidationError{Factor: f.Key, Reason: "qualitative factors only support the gte rule"}
		}
		if f.Target < 1 || f.Target > 5 || f.Target != math.Trunc(f.Target) {
			return &ValidationError{
				Factor: f.Key,
				Reason: fmt.Sprintf("qualitative target must be an integer rating 1-5, got %g", f.Target),
			}
		}
	}

	return nil
}

// TargetDescription renders the factor's rule as a short human-readable
// string for per-factor diagnostics, e.g. ">= 15" or "10 to 20".
func (f PolicyFactor) TargetDescription() string {
	switch f.Rule {
	case RuleGTE:
		return fmt.Sprintf(">= %g", f.Target)
	case RuleLTE:
		return fmt.Sprintf("<= %g", f.Target)
	case RuleEQ:
		return fmt.Sprintf("= %g", f.Target)
	case RuleRange:
		if f.TargetMax != nil {
			return fmt.Sprintf("%g to %g", f.Target, *f.TargetMax)
		}
		return fmt.Sprintf("%g to ?", f.Target)
	default:
		return string(f.Rule)
	}
}

// Policy is an immutable, validated set of weighted factors.
// Construct through the Builder or load through the Repository; both reject
// invalid factor definitions.
type Policy struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Factors     []PolicyFactor `json:"factors"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// EnabledFactors returns the enabled factors in display order.
// The order is stable so weighted summation is bit-reproducible across runs.
func (p Policy) EnabledFactors() []PolicyFactor {
	enabled := make([]PolicyFactor, 0, len(p.Factors))
	for _, f := range p.Factors {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

// TotalConfiguredWeight returns the sum of weights of all enabled factors.
func (p Policy) TotalConfiguredWeight() float64 {
	total := 0.0
	for _, f := range p.EnabledFactors() {
		total += f.Weight
	}
	return total
}
