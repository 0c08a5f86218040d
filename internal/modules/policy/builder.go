package policy

import "sort"

// Builder assembles a validated, immutable Policy. Invalid factor
// definitions are rejected at Build time, never at scoring time.
type Builder struct {
	name        string
	description string
	factors     []PolicyFactor
}

// NewBuilder creates a policy builder.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Description sets the policy description.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// AddFactor appends a factor definition. Validation happens at Build.
func (b *Builder) AddFactor(factor PolicyFactor) *Builder {
	b.factors = append(b.factors, factor)
	return b
}

// Build validates every factor and returns the assembled policy.
// Factors are ordered by display order (stable for equal orders) so
// downstream weighted summation has a deterministic iteration order.
func (b *Builder) Build() (Policy, error) {
	if b.name == "" {
		return Policy{}, &ValidationError{Reason: "policy name is required"}
	}

	seen := make(map[string]bool, len(b.factors))
	for _, f := range b.factors {
		if err := f.Validate(); err != nil {
			return Policy{}, err
		}
		if seen[f.Key] {
			return Policy{}, &ValidationError{Factor: f.Key, Reason: "duplicate factor key"}
		}
		seen[f.Key] = true
	}

	factors := make([]PolicyFactor, len(b.factors))
	copy(factors, b.factors)
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].DisplayOrder < factors[j].DisplayOrder
	})

	return Policy{
		Name:        b.name,
		Description: b.description,
		Factors:     factors,
	}, nil
}
