// Package denomination converts between nominal currency values and exact
// coin counts. All arithmetic happens in scaled-integer coordinates so that
// fractional denominations never introduce floating point drift.
package denomination

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a coin count is negative.
	ErrInvalidQuantity = errors.New("coin quantity must be a non-negative integer")

	// ErrMissingDenominations is returned when no denominations are configured.
	ErrMissingDenominations = errors.New("no denominations configured")

	// ErrInvalidTotal is returned when a scaled total is negative.
	ErrInvalidTotal = errors.New("scaled total must be a non-negative integer")

	// ErrInvalidDenomination is returned by NewSet for a malformed denomination set.
	ErrInvalidDenomination = errors.New("invalid denomination")
)

// maxFractionDigits keeps the multiplier within int64.
const maxFractionDigits = 18

// Denomination is a named coin with a fixed value and weight.
type Denomination struct {
	Name   string          `json:"name" yaml:"name"`
	Value  decimal.Decimal `json:"value" yaml:"value"`
	Weight decimal.Decimal `json:"weight" yaml:"weight"`
}

// CoinBag maps a denomination name to a coin count.
type CoinBag map[string]int64

// Set is a validated denomination set ordered descending by value, with its
// base-unit multiplier computed once.
type Set struct {
	denoms     []Denomination
	scaled     []int64
	multiplier int64
}

// NewSet validates the denominations and caches the multiplier. Names must
// be unique, values positive and distinct, weights non-negative.
func NewSet(denoms []Denomination) (*Set, error) {
	if len(denoms) == 0 {
		return nil, ErrMissingDenominations
	}

	sorted := make([]Denomination, len(denoms))
	copy(sorted, denoms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value.GreaterThan(sorted[j].Value)
	})

	names := make(map[string]struct{}, len(sorted))
	for i, d := range sorted {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidDenomination)
		}
		if _, dup := names[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidDenomination, d.Name)
		}
		names[d.Name] = struct{}{}
		if !d.Value.IsPositive() {
			return nil, fmt.Errorf("%w: %s value must be positive", ErrInvalidDenomination, d.Name)
		}
		if d.Weight.IsNegative() {
			return nil, fmt.Errorf("%w: %s weight must not be negative", ErrInvalidDenomination, d.Name)
		}
		if p := decimalPlaces(d.Value); p > maxFractionDigits {
			return nil, fmt.Errorf("%w: %s has %d fractional digits, at most %d are supported", ErrInvalidDenomination, d.Name, p, maxFractionDigits)
		}
		if i > 0 && sorted[i-1].Value.Equal(d.Value) {
			return nil, fmt.Errorf("%w: %s and %s share value %s", ErrInvalidDenomination, sorted[i-1].Name, d.Name, d.Value)
		}
	}

	multiplier := Multiplier(sorted)
	m := decimal.NewFromInt(multiplier)
	limit := decimal.NewFromInt(math.MaxInt64)
	scaled := make([]int64, len(sorted))
	for i, d := range sorted {
		v := d.Value.Mul(m)
		if v.GreaterThan(limit) {
			return nil, fmt.Errorf("%w: %s is too large for %d base units", ErrInvalidDenomination, d.Name, multiplier)
		}
		scaled[i] = v.IntPart()
	}

	return &Set{denoms: sorted, scaled: scaled, multiplier: multiplier}, nil
}

// Multiplier returns 10^n where n is the largest number of fractional digits
// among the denomination values. NewSet rejects sets where n exceeds 18.
func Multiplier(denoms []Denomination) int64 {
	places := 0
	for _, d := range denoms {
		if p := decimalPlaces(d.Value); p > places {
			places = p
		}
	}
	m := int64(1)
	for i := 0; i < places; i++ {
		m *= 10
	}
	return m
}

func decimalPlaces(v decimal.Decimal) int {
	s := v.String()
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}

// Denominations returns the set ordered descending by value.
func (s *Set) Denominations() []Denomination {
	out := make([]Denomination, len(s.denoms))
	copy(out, s.denoms)
	return out
}

// Multiplier returns the cached base-unit multiplier.
func (s *Set) Multiplier() int64 {
	return s.multiplier
}

// Smallest returns the lowest-valued denomination.
func (s *Set) Smallest() Denomination {
	return s.denoms[len(s.denoms)-1]
}

// Scale converts a nominal value to scaled-integer coordinates, rounding
// half away from zero to the nearest base unit.
func (s *Set) Scale(nominal decimal.Decimal) int64 {
	return nominal.Mul(decimal.NewFromInt(s.multiplier)).Round(0).IntPart()
}

// Nominal converts a scaled-integer value back to a nominal value.
func (s *Set) Nominal(scaled int64) decimal.Decimal {
	return decimal.NewFromInt(scaled).Div(decimal.NewFromInt(s.multiplier))
}

// MakeChange breaks a scaled total into coins greedily, largest value first.
// The result is minimal only for canonical sets, which all default sets are;
// arbitrary user-configured sets still satisfy the value invariant but may
// use more coins than strictly necessary.
func (s *Set) MakeChange(scaledTotal int64) (CoinBag, error) {
	if scaledTotal < 0 {
		return nil, ErrInvalidTotal
	}
	bag := make(CoinBag, len(s.denoms))
	remaining := scaledTotal
	for i, d := range s.denoms {
		bag[d.Name] = remaining / s.scaled[i]
		remaining %= s.scaled[i]
	}
	return bag, nil
}

// ValueFromCoins sums count*value over the bag. Names that are not part of
// the set are ignored.
func (s *Set) ValueFromCoins(coins CoinBag) (decimal.Decimal, error) {
	for name, count := range coins {
		if count < 0 {
			return decimal.Zero, fmt.Errorf("%w: %s=%d", ErrInvalidQuantity, name, count)
		}
	}
	var scaled int64
	for i, d := range s.denoms {
		scaled += coins[d.Name] * s.scaled[i]
	}
	return s.Nominal(scaled), nil
}

// MakeChange is a convenience wrapper that builds a Set for a single call.
func MakeChange(scaledTotal int64, denoms []Denomination) (CoinBag, error) {
	set, err := NewSet(denoms)
	if err != nil {
		return nil, err
	}
	return set.MakeChange(scaledTotal)
}

// ValueFromCoins is a convenience wrapper that builds a Set for a single call.
func ValueFromCoins(coins CoinBag, denoms []Denomination) (decimal.Decimal, error) {
	set, err := NewSet(denoms)
	if err != nil {
		return decimal.Zero, err
	}
	return set.ValueFromCoins(coins)
}

// Defaults returns the standard platinum/gold/electrum/silver/copper set.
func Defaults() []Denomination {
	weight := decimal.RequireFromString("0.02")
	return []Denomination{
		{Name: "pp", Value: decimal.NewFromInt(10), Weight: weight},
		{Name: "gp", Value: decimal.NewFromInt(1), Weight: weight},
		{Name: "ep", Value: decimal.RequireFromString("0.5"), Weight: weight},
		{Name: "sp", Value: decimal.RequireFromString("0.1"), Weight: weight},
		{Name: "cp", Value: decimal.RequireFromString("0.01"), Weight: weight},
	}
}
