package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gm-shop/gm_shop/internal/denomination"
)

// Shop holds the GM-facing shop settings.
type Shop struct {
	UseModuleCurrency  bool                        `yaml:"use_module_currency" json:"useModuleCurrency"`
	CurrencyName       string                      `yaml:"currency_name" json:"currencyName"`
	CurrencySymbol     string                      `yaml:"currency_symbol" json:"currencySymbol"`
	CurrencyLocale     string                      `yaml:"currency_locale" json:"currencyLocale"`
	Denominations      []denomination.Denomination `yaml:"denominations" json:"denominations"`
	RequireGMApproval  bool                        `yaml:"require_gm_approval" json:"requireGMApproval"`
	AutoSellPercentage int                         `yaml:"auto_sell_percentage" json:"autoSellPercentage"`
	DebugLogging       bool                        `yaml:"debug_logging" json:"debugLogging"`
	GemBaseValues      map[string]float64          `yaml:"gem_base_values" json:"gemBaseValues"`
	GemSizes           []float64                   `yaml:"gem_sizes" json:"gemSizes"`
	MinGemTypes        int                         `yaml:"min_gem_types" json:"minGemTypes"`
}

// LoadShop reads shop settings from a YAML file. An empty path yields the defaults.
func LoadShop(path string) (Shop, error) {
	if path == "" {
		return DefaultShop(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Shop{}, fmt.Errorf("read shop settings: %w", err)
	}
	return ParseShop(raw)
}

// ParseShop decodes YAML shop settings, applies defaults and validates.
func ParseShop(raw []byte) (Shop, error) {
	// Start from the defaults so an explicit zero percentage survives. The
	// gem table is cleared because yaml merges into a non-nil map.
	s := DefaultShop()
	s.GemBaseValues = nil
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Shop{}, fmt.Errorf("shop settings: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Shop{}, err
	}
	return s, nil
}
