package candidates

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
)

const (
	// Short strikes must be at least this far out of the money relative to
	// the underlying price.
	otmBuffer = 0.05

	// The long (protective) leg's strike must lie strictly between
	// shortStrike-longLegMaxOffset and shortStrike-longLegMinOffset for puts,
	// mirrored above the short strike for calls.
	longLegMinOffset = 5.0
	longLegMaxOffset = 10.0
)

// Filters holds the eligibility criteria for candidate generation.
type Filters struct {
	Side            chains.OptionType `json:"side"`              // put or call
	MinDTE          int               `json:"min_dte"`           // inclusive
	MaxDTE          int               `json:"max_dte"`           // inclusive
	DeltaMin        float64           `json:"delta_min"`         // absolute short-leg delta, inclusive
	DeltaMax        float64           `json:"delta_max"`         // absolute short-leg delta, inclusive
	MinOpenInterest int64             `json:"min_open_interest"` // short leg OI must exceed this
	MinBid          float64           `json:"min_bid"`           // short leg bid must exceed this
}

// Validate checks the filters for internal consistency.
func (f Filters) Validate() error {
	if !f.Side.IsValid() {
		return fmt.Errorf("filters: invalid strategy side %q", f.Side)
	}
	if f.MinDTE > f.MaxDTE {
		return fmt.Errorf("filters: min dte %d exceeds max dte %d", f.MinDTE, f.MaxDTE)
	}
	if f.DeltaMin < 0 || f.DeltaMax > 1 || f.DeltaMin > f.DeltaMax {
		return fmt.Errorf("filters: delta band [%.4f, %.4f] must satisfy 0 <= lo <= hi <= 1", f.DeltaMin, f.DeltaMax)
	}
	if f.MinOpenInterest < 0 {
		return fmt.Errorf("filters: min open interest must be >= 0")
	}
	if f.MinBid < 0 {
		return fmt.Errorf("filters: min bid must be >= 0")
	}
	return nil
}

// Generator derives vertical-spread candidates from raw option-chain rows.
type Generator struct {
	log zerolog.Logger
}

// NewGenerator creates a new candidate generator.
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{
		log: log.With().Str("module", "candidates").Logger(),
	}
}

// Generate produces every structurally and liquidity-eligible spread from the
// given rows. An empty result is valid, not an error: it means no rows
// satisfied the filters. Candidate order carries no meaning.
func (g *Generator) Generate(symbol string, legs []chains.OptionLeg, underlying float64, asOf time.Time, filters Filters) ([]CandidateSpread, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if underlying <= 0 {
		return nil, fmt.Errorf("generate %s: underlying price must be positive", symbol)
	}

	// Keep only rows of the requested type, grouped by expiration day.
	byExpiration := make(map[string][]chains.OptionLeg)
	for _, leg := range legs {
		if leg.Type != filters.Side {
			continue
		}
		key := leg.Expiration.Format("2006-01-02")
		byExpiration[key] = append(byExpiration[key], leg)
	}

	candidates := make([]CandidateSpread, 0)
	for _, group := range byExpiration {
		dte := group[0].DaysToExpiration(asOf)
		if dte < filters.MinDTE || dte > filters.MaxDTE {
			continue
		}

		for _, short := range group {
			if !g.shortLegEligible(short, underlying, filters) {
				continue
			}

			for _, long := range group {
				if !longLegEligible(short, long) {
					continue
				}

				spread, err := NewCandidateSpread(symbol, underlying, short, long, asOf)
				if err != nil {
					// Structurally invalid pairing; skip, never fail the whole run.
					g.log.Debug().Err(err).Msg("Skipping invalid spread pairing")
					continue
				}
				candidates = append(candidates, spread)
			}
		}
	}

	g.log.Debug().
		Str("symbol", symbol).
		Int("rows", len(legs)).
		Int("candidates", len(candidates)).
		Msg("Candidate generation complete")

	return candidates, nil
}

// shortLegEligible applies the short-leg filters: delta band (inclusive at
// both ends), minimum out-of-the-money distance, open interest, and premium.
// Rows without a delta are tolerated and skipped here: they cannot be
// short-leg candidates.
func (g *Generator) shortLegEligible(leg chains.OptionLeg, underlying float64, filters Filters) bool {
	if !leg.HasDelta() {
		return false
	}

	absDelta := *leg.Delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	if absDelta < filters.DeltaMin || absDelta > filters.DeltaMax {
		return false
	}

	switch leg.Type {
	case chains.OptionTypePut:
		if leg.Strike > underlying*(1-otmBuffer) {
			return false
		}
	case chains.OptionTypeCall:
		if leg.Strike < underlying*(1+otmBuffer) {
			return false
		}
	}

	if leg.OpenInterest <= filters.MinOpenInterest {
		return false
	}

	if leg.Bid <= filters.MinBid {
		return false
	}

	return true
}

// longLegEligible checks that the long leg sits on the protective side of the
// short strike, strictly between 5 and 10 points away.
func longLegEligible(short, long chains.OptionLeg) bool {
	switch short.Type {
	case chains.OptionTypePut:
		return long.Strike > short.Strike-longLegMaxOffset && long.Strike < short.Strike-longLegMinOffset
	case chains.OptionTypeCall:
		return long.Strike > short.Strike+longLegMinOffset && long.Strike < short.Strike+longLegMaxOffset
	default:
		return false
	}
}
