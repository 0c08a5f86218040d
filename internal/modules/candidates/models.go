// Package candidates derives structurally valid vertical-spread candidates
// from raw option-chain rows. Everything in this package is pure computation:
// no I/O, no clocks beyond the explicit asOf parameter.
package candidates

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
)

// Construction-time validation failures. A candidate that fails any of these
// is excluded from scoring; it is never silently coerced into a valid one.
var (
	ErrLegTypeMismatch    = errors.New("short and long legs must have the same option type")
	ErrExpirationMismatch = errors.New("short and long legs must have the same expiration")
	ErrInvalidWidth       = errors.New("spread width must be positive")
	ErrNoCredit           = errors.New("spread credit must be positive")
	ErrNoRisk             = errors.New("credit >= width leaves no risk in the spread")
	ErrMissingShortDelta  = errors.New("short leg has no delta, cannot derive probability of profit")
	ErrExpired            = errors.New("spread must have at least one day to expiration")
)

// CandidateSpread is a two-leg credit spread: a sold short leg and a bought
// long leg of the same type and expiration. Derived attributes are computed
// once at construction and the value is treated as immutable afterwards.
type CandidateSpread struct {
	Symbol     string           `json:"symbol"`
	Underlying float64          `json:"underlying"`
	Short      chains.OptionLeg `json:"short"`
	Long       chains.OptionLeg `json:"long"`

	Width               float64 `json:"width"`
	Credit              float64 `json:"credit"`
	MaxProfit           float64 `json:"max_profit"`
	MaxLoss             float64 `json:"max_loss"`
	ProbabilityOfProfit float64 `json:"probability_of_profit"`
	DaysToExpiration    int     `json:"days_to_expiration"`
}

// NewCandidateSpread builds a spread from a short and long leg, computing the
// derived attributes and rejecting structurally invalid pairings.
func NewCandidateSpread(symbol string, underlying float64, short, long chains.OptionLeg, asOf time.Time) (CandidateSpread, error) {
	if short.Type != long.Type {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrLegTypeMismatch)
	}

	if !sameDay(short.Expiration, long.Expiration) {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrExpirationMismatch)
	}

	width := math.Abs(short.Strike - long.Strike)
	if width <= 0 {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrInvalidWidth)
	}

	// Credit received for the spread: sell the short at bid, buy the long at ask.
	credit := short.Bid - long.Ask
	if credit <= 0 {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrNoCredit)
	}

	maxLoss := width - credit
	if maxLoss <= 0 {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrNoRisk)
	}

	if !short.HasDelta() {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrMissingShortDelta)
	}

	dte := short.DaysToExpiration(asOf)
	if dte <= 0 {
		return CandidateSpread{}, spreadError(symbol, short, long, ErrExpired)
	}

	return CandidateSpread{
		Symbol:              symbol,
		Underlying:          underlying,
		Short:               short,
		Long:                long,
		Width:               width,
		Credit:              credit,
		MaxProfit:           credit,
		MaxLoss:             maxLoss,
		ProbabilityOfProfit: 1 - math.Abs(*short.Delta),
		DaysToExpiration:    dte,
	}, nil
}

// Describe returns a short human-readable identifier for logs and errors,
// e.g. "SPY 450/445 put 2026-09-18".
func (c CandidateSpread) Describe() string {
	return fmt.Sprintf("%s %.5g/%.5g %s %s",
		c.Symbol, c.Short.Strike, c.Long.Strike, c.Short.Type,
		c.Short.Expiration.Format("2006-01-02"))
}

func spreadError(symbol string, short, long chains.OptionLeg, err error) error {
	return fmt.Errorf("candidate %s %.5g/%.5g %s: %w", symbol, short.Strike, long.Strike, short.Type, err)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
