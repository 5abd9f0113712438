// Package inventory is the per-holder item store: purchased goods, gems and,
// in character-sheet currency mode, physical coins.
package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrItemNotFound is returned when a holder has no item with the given id.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrInsufficientCount is returned when removing more units than held.
	ErrInsufficientCount = errors.New("insufficient item count")

	// ErrInvalidQuantity is returned for non-positive add/remove quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

const coinPrefix = "coin:"

// ItemRef references an item template to instantiate in an inventory.
type ItemRef struct {
	UUID   string          `json:"uuid"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Weight decimal.Decimal `json:"weight"`
}

// Item is one flattened inventory line.
type Item struct {
	ID       string          `json:"id"`
	HolderID string          `json:"holderId"`
	UUID     string          `json:"uuid"`
	Name     string          `json:"name"`
	Count    int             `json:"count"`
	Price    decimal.Decimal `json:"price"`
	Weight   decimal.Decimal `json:"weight"`
}

// Store adds, removes and lists holder items. Add merges into an existing
// line with the same template uuid and returns only once the write is done.
// Remove deletes the line when its count reaches zero.
type Store interface {
	Add(ctx context.Context, holderID string, ref ItemRef, qty int) (Item, error)
	Get(ctx context.Context, holderID, itemID string) (Item, error)
	Remove(ctx context.Context, holderID, itemID string, qty int) (int, error)
	List(ctx context.Context, holderID string) ([]Item, error)

	// CoinCounts returns the holder's coin items keyed by denomination name.
	CoinCounts(ctx context.Context, holderID string) (map[string]int64, error)
	// SetCoinCount rewrites one denomination's coin item. A zero count keeps
	// a placeholder line so every denomination stays present.
	SetCoinCount(ctx context.Context, holderID string, coin ItemRef, count int64) error
}

// CoinUUID returns the template uuid used for a denomination's coin item.
func CoinUUID(denomination string) string {
	return coinPrefix + denomination
}

// IsCoin reports whether a template uuid names a coin item.
func IsCoin(uuid string) bool {
	return strings.HasPrefix(uuid, coinPrefix)
}
