package config

import "github.com/gm-shop/gm_shop/internal/denomination"

// Default values for optional shop settings.
const (
	DefaultCurrencyName       = "Gold"
	DefaultCurrencySymbol     = "gp"
	DefaultCurrencyLocale     = "en"
	DefaultAutoSellPercentage = 50
	DefaultMinGemTypes        = 3
)

// DefaultGemBaseValues is the stock gem table, base value per type.
func DefaultGemBaseValues() map[string]float64 {
	return map[string]float64{
		"Agate":      1,
		"Azurite":    1,
		"Quartz":     2,
		"Moonstone":  3,
		"Onyx":       4,
		"Jade":       5,
		"Amethyst":   6,
		"Garnet":     7,
		"Pearl":      8,
		"Topaz":      9,
		"Aquamarine": 10,
		"Opal":       12,
		"Sapphire":   15,
		"Emerald":    18,
		"Ruby":       20,
		"Diamond":    25,
	}
}

// DefaultGemSizes is the stock list of carat sizes.
func DefaultGemSizes() []float64 {
	return []float64{0.5, 1, 2, 3, 5}
}

// DefaultShop returns fully defaulted shop settings.
func DefaultShop() Shop {
	s := Shop{AutoSellPercentage: DefaultAutoSellPercentage}
	s.applyDefaults()
	return s
}

func (s *Shop) applyDefaults() {
	if s.CurrencyName == "" {
		s.CurrencyName = DefaultCurrencyName
	}
	if s.CurrencySymbol == "" {
		s.CurrencySymbol = DefaultCurrencySymbol
	}
	if s.CurrencyLocale == "" {
		s.CurrencyLocale = DefaultCurrencyLocale
	}
	if len(s.Denominations) == 0 {
		s.Denominations = denomination.Defaults()
	}
	if len(s.GemBaseValues) == 0 {
		s.GemBaseValues = DefaultGemBaseValues()
	}
	if len(s.GemSizes) == 0 {
		s.GemSizes = DefaultGemSizes()
	}
	if s.MinGemTypes == 0 {
		s.MinGemTypes = DefaultMinGemTypes
	}
}
