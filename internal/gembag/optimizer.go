// Package gembag builds bags of gems whose combined value approximates a
// target. Type selection is random; the constraints on the result are not.
package gembag

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	// ErrNoGemTypes is returned when no gem type survives the base value filter.
	ErrNoGemTypes = errors.New("no gem types within the base value range")

	// ErrInvalidTypeRange is returned when the minimum type count exceeds the maximum.
	ErrInvalidTypeRange = errors.New("minimum gem types exceeds maximum")

	// ErrInvalidTarget is returned for a non-positive target value.
	ErrInvalidTarget = errors.New("target value must be positive")

	// ErrNoSizes is returned when no positive carat sizes are configured.
	ErrNoSizes = errors.New("no gem sizes configured")
)

// WeightDivisor converts carats to inventory weight units.
const WeightDivisor = 2488

const (
	epsilon = 1e-9

	// maxSteps bounds the one-gem-at-a-time phase; whatever budget is left
	// afterwards is filled in bulk with the largest gems that fit.
	maxSteps = 5000

	typeScore = 100
	sizeScore = 10
)

// Value is the worth of one gem of the given size and base value.
func Value(size, baseValue float64) float64 {
	return (size*size + 4*size) * baseValue
}

// Weight is the inventory weight of one gem of the given size.
func Weight(size float64) float64 {
	return size / WeightDivisor
}

// Options constrains a bag. MaxTypes of zero means every eligible type.
type Options struct {
	Target       float64
	Types        map[string]float64
	Sizes        []float64
	MinTypes     int
	MaxTypes     int
	MinBaseValue *float64
	MaxBaseValue *float64
}

// Gem is one line of a bag: Quantity gems of the same type and size.
type Gem struct {
	Name       string  `json:"name"`
	Carats     float64 `json:"carats"`
	BaseValue  float64 `json:"baseValue"`
	Value      float64 `json:"value"`
	TotalValue float64 `json:"totalValue"`
	Weight     float64 `json:"weight"`
	Quantity   int     `json:"quantity"`
}

// Result is a finished bag.
type Result struct {
	Gems             []Gem   `json:"gems"`
	TotalValue       float64 `json:"totalValue"`
	TargetValue      float64 `json:"targetValue"`
	Difference       float64 `json:"difference"`
	Accuracy         string  `json:"accuracy"`
	UniqueGemTypes   int     `json:"uniqueGemTypes"`
	CaratVarietyUsed int     `json:"caratVarietyUsed"`
}

type combo struct {
	name  string
	base  float64
	size  float64
	value float64
}

type gemType struct {
	name string
	base float64
}

// FindOptimal fills a bag toward opts.Target without exceeding it. It picks
// a random number of distinct types within the allowed range, places one
// gem of every chosen type first, then spreads the rest across the least
// used types and sizes.
func FindOptimal(rng *rand.Rand, opts Options) (Result, error) {
	if opts.Target <= 0 {
		return Result{}, ErrInvalidTarget
	}
	if len(opts.Sizes) == 0 {
		return Result{}, ErrNoSizes
	}

	eligible := filterTypes(opts.Types, opts.MinBaseValue, opts.MaxBaseValue)
	if len(eligible) == 0 {
		return Result{}, ErrNoGemTypes
	}

	minTypes := clamp(opts.MinTypes, 1, len(eligible))
	maxTypes := len(eligible)
	if opts.MaxTypes > 0 {
		maxTypes = clamp(opts.MaxTypes, 1, len(eligible))
	}
	if minTypes > maxTypes {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrInvalidTypeRange, minTypes, maxTypes)
	}

	k := minTypes + rng.Intn(maxTypes-minTypes+1)
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	selected := eligible[:k]

	combos := buildCombos(selected, opts.Sizes)
	if len(combos) == 0 {
		return Result{}, ErrNoSizes
	}
	counts := fill(combos, opts.Target, k)
	return summarize(combos, counts, opts.Target), nil
}

func filterTypes(types map[string]float64, minBase, maxBase *float64) []gemType {
	out := make([]gemType, 0, len(types))
	for name, base := range types {
		if base <= 0 {
			continue
		}
		if minBase != nil && base < *minBase {
			continue
		}
		if maxBase != nil && base > *maxBase {
			continue
		}
		out = append(out, gemType{name: name, base: base})
	}
	// Map order is random; sort so the rng alone drives selection.
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func buildCombos(types []gemType, sizes []float64) []combo {
	combos := make([]combo, 0, len(types)*len(sizes))
	for _, t := range types {
		for _, s := range sizes {
			if s <= 0 {
				continue
			}
			combos = append(combos, combo{name: t.name, base: t.base, size: s, value: Value(s, t.base)})
		}
	}
	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].value != combos[j].value {
			return combos[i].value < combos[j].value
		}
		if combos[i].name != combos[j].name {
			return combos[i].name < combos[j].name
		}
		return combos[i].size < combos[j].size
	})
	return combos
}

func fill(combos []combo, target float64, k int) []int {
	counts := make([]int, len(combos))
	typeUses := make(map[string]int, k)
	sizeUses := make(map[float64]int)
	maxValue := combos[len(combos)-1].value
	remaining := target

	fits := func(c combo) bool { return c.value <= remaining+epsilon }

	for step := 0; step < maxSteps; step++ {
		pick := -1

		if len(typeUses) < k {
			for i, c := range combos {
				if typeUses[c.name] == 0 && fits(c) {
					pick = i
					break
				}
			}
		} else {
			best := math.Inf(1)
			for i, c := range combos {
				if !fits(c) {
					continue
				}
				score := float64(typeUses[c.name]*typeScore+sizeUses[c.size]*sizeScore) + c.value/maxValue
				if score < best {
					best, pick = score, i
				}
			}
		}

		if pick < 0 {
			for i, c := range combos {
				if typeUses[c.name] > 0 && fits(c) {
					pick = i
					break
				}
			}
		}
		if pick < 0 {
			return counts
		}

		c := combos[pick]
		counts[pick]++
		typeUses[c.name]++
		sizeUses[c.size]++
		remaining -= c.value
	}

	for i := len(combos) - 1; i >= 0; i-- {
		c := combos[i]
		if n := int(math.Floor((remaining + epsilon) / c.value)); n > 0 {
			counts[i] += n
			remaining -= float64(n) * c.value
		}
	}
	return counts
}

func summarize(combos []combo, counts []int, target float64) Result {
	res := Result{Gems: []Gem{}, TargetValue: target}
	types := map[string]struct{}{}
	sizes := map[float64]struct{}{}
	for i, n := range counts {
		if n == 0 {
			continue
		}
		c := combos[i]
		res.Gems = append(res.Gems, Gem{
			Name:       c.name,
			Carats:     c.size,
			BaseValue:  c.base,
			Value:      c.value,
			TotalValue: c.value * float64(n),
			Weight:     Weight(c.size),
			Quantity:   n,
		})
		res.TotalValue += c.value * float64(n)
		types[c.name] = struct{}{}
		sizes[c.size] = struct{}{}
	}
	sort.Slice(res.Gems, func(i, j int) bool {
		if res.Gems[i].Name != res.Gems[j].Name {
			return res.Gems[i].Name < res.Gems[j].Name
		}
		return res.Gems[i].Carats < res.Gems[j].Carats
	})

	res.Difference = target - res.TotalValue
	res.Accuracy = Accuracy(res.TotalValue, target)
	res.UniqueGemTypes = len(types)
	res.CaratVarietyUsed = len(sizes)
	return res
}

// Accuracy renders achieved/target as a percentage with one decimal.
func Accuracy(achieved, target float64) string {
	if achieved == 0 || target == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", achieved/target*100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
