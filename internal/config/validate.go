package config

import (
	"errors"
	"fmt"

	"github.com/gm-shop/gm_shop/internal/denomination"
)

// Validate checks shop settings for consistency.
func (s Shop) Validate() error {
	if _, err := denomination.NewSet(s.Denominations); err != nil {
		return fmt.Errorf("denominations: %w", err)
	}
	if s.AutoSellPercentage < 0 || s.AutoSellPercentage > 100 {
		return fmt.Errorf("auto_sell_percentage (%d) must be between 0 and 100", s.AutoSellPercentage)
	}
	if s.MinGemTypes < 1 {
		return fmt.Errorf("min_gem_types (%d) must be at least 1", s.MinGemTypes)
	}
	for _, size := range s.GemSizes {
		if size <= 0 {
			return fmt.Errorf("gem_sizes must be positive, got %v", size)
		}
	}
	for name, v := range s.GemBaseValues {
		if name == "" {
			return errors.New("gem_base_values contains an empty name")
		}
		if v <= 0 {
			return fmt.Errorf("gem_base_values[%s] must be positive", name)
		}
	}
	return nil
}
