// Package chains provides option-chain models and snapshot storage.
// Chain acquisition from a market-data vendor is out of scope; snapshots are
// pushed by external collectors and stored immutably for candidate generation.
package chains

import (
	"fmt"
	"math"
	"time"
)

// OptionType represents the contract type of an option leg
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// IsValid checks if the option type is a known value
func (t OptionType) IsValid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// OptionLeg is one row of an option chain: a single contract snapshot.
// Legs are sourced externally and never mutated by the engine.
type OptionLeg struct {
	Strike            float64    `json:"strike" msgpack:"strike"`
	Expiration        time.Time  `json:"expiration" msgpack:"expiration"`
	Type              OptionType `json:"type" msgpack:"type"`
	Bid               float64    `json:"bid" msgpack:"bid"`
	Ask               float64    `json:"ask" msgpack:"ask"`
	Delta             *float64   `json:"delta,omitempty" msgpack:"delta"` // nil when the vendor omitted greeks
	ImpliedVolatility float64    `json:"implied_volatility" msgpack:"implied_volatility"`
	OpenInterest      int64      `json:"open_interest" msgpack:"open_interest"`
	Theta             float64    `json:"theta" msgpack:"theta"`
	Vega              float64    `json:"vega" msgpack:"vega"`
}

// Validate checks that the leg's fields are within their legal domains.
func (l OptionLeg) Validate() error {
	if !l.Type.IsValid() {
		return fmt.Errorf("option leg strike %.2f: invalid type %q", l.Strike, l.Type)
	}
	if l.Strike <= 0 {
		return fmt.Errorf("option leg strike %.2f: strike must be positive", l.Strike)
	}
	if l.Bid < 0 || l.Ask < 0 {
		return fmt.Errorf("option leg strike %.2f: bid/ask must be >= 0", l.Strike)
	}
	if l.Delta != nil && (*l.Delta < -1 || *l.Delta > 1) {
		return fmt.Errorf("option leg strike %.2f: delta %.4f outside [-1, 1]", l.Strike, *l.Delta)
	}
	if l.ImpliedVolatility < 0 {
		return fmt.Errorf("option leg strike %.2f: implied volatility must be >= 0", l.Strike)
	}
	if l.OpenInterest < 0 {
		return fmt.Errorf("option leg strike %.2f: open interest must be >= 0", l.Strike)
	}
	if l.Expiration.IsZero() {
		return fmt.Errorf("option leg strike %.2f: expiration is required", l.Strike)
	}
	return nil
}

// DaysToExpiration returns the calendar days between asOf and the leg's
// expiration, rounded to the nearest whole day.
func (l OptionLeg) DaysToExpiration(asOf time.Time) int {
	return int(math.Round(l.Expiration.Sub(asOf).Hours() / 24))
}

// HasDelta reports whether the vendor supplied a delta for this leg.
// A leg without delta cannot be a short-leg candidate.
func (l OptionLeg) HasDelta() bool {
	return l.Delta != nil
}

// ChainSnapshot is an immutable option-chain snapshot for one symbol.
type ChainSnapshot struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	AsOf       time.Time   `json:"as_of"`
	Underlying float64     `json:"underlying"`
	Legs       []OptionLeg `json:"legs"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Validate checks the snapshot and every leg in it.
func (s ChainSnapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("chain snapshot: symbol is required")
	}
	if s.Underlying <= 0 {
		return fmt.Errorf("chain snapshot %s: underlying price must be positive", s.Symbol)
	}
	if s.AsOf.IsZero() {
		return fmt.Errorf("chain snapshot %s: as_of is required", s.Symbol)
	}
	for i, leg := range s.Legs {
		if err := leg.Validate(); err != nil {
			return fmt.Errorf("chain snapshot %s leg %d: %w", s.Symbol, i, err)
		}
	}
	return nil
}
