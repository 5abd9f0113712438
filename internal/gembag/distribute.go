package gembag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/inventory"
)

// ItemName is the inventory name for a gem, e.g. "Ruby (2 ct)".
func ItemName(name string, carats float64) string {
	return fmt.Sprintf("%s (%s ct)", name, strconv.FormatFloat(carats, 'f', -1, 64))
}

// ItemRef is the inventory template for one gem of a bag line.
func (g Gem) ItemRef() inventory.ItemRef {
	return inventory.ItemRef{
		UUID:   "gem:" + g.Name + ":" + strconv.FormatFloat(g.Carats, 'f', -1, 64),
		Name:   ItemName(g.Name, g.Carats),
		Price:  decimal.NewFromFloat(g.Value).Round(2),
		Weight: decimal.NewFromFloat(g.Weight),
	}
}

// Distribute writes every line of res into the holder's inventory and
// returns the resulting inventory lines. It stops at the first failed write.
func Distribute(ctx context.Context, store inventory.Store, holderID string, res Result) ([]inventory.Item, error) {
	out := make([]inventory.Item, 0, len(res.Gems))
	for _, g := range res.Gems {
		item, err := store.Add(ctx, holderID, g.ItemRef(), g.Quantity)
		if err != nil {
			return out, fmt.Errorf("add %s: %w", ItemName(g.Name, g.Carats), err)
		}
		out = append(out, item)
	}
	return out, nil
}
