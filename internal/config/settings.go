package config

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/gm-shop/gm_shop/internal/kvstore"
)

const shopSettingsKey = "settings:shop"

// Settings is the live shop configuration shared by every component.
// Subscribers run after each successful Update.
type Settings struct {
	mu   sync.RWMutex
	shop Shop
	subs []func(Shop)
}

// NewSettings wraps already validated shop settings.
func NewSettings(shop Shop) *Settings {
	return &Settings{shop: shop.clone()}
}

// Get returns a copy of the current settings.
func (s *Settings) Get() Shop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shop.clone()
}

// Update validates and swaps in new settings, then notifies subscribers.
func (s *Settings) Update(next Shop) error {
	next.applyDefaults()
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.shop = next.clone()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.clone())
	}
	return nil
}

// Subscribe registers fn to be called with every accepted update.
func (s *Settings) Subscribe(fn func(Shop)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s Shop) clone() Shop {
	out := s
	out.Denominations = slices.Clone(s.Denominations)
	out.GemSizes = slices.Clone(s.GemSizes)
	out.GemBaseValues = maps.Clone(s.GemBaseValues)
	return out
}

// SaveShop persists settings to the host key-value store.
func SaveShop(ctx context.Context, store kvstore.Store, shop Shop) error {
	raw, err := json.Marshal(shop)
	if err != nil {
		return fmt.Errorf("encode shop settings: %w", err)
	}
	return store.Set(ctx, shopSettingsKey, string(raw))
}

// LoadStoredShop reads settings previously saved with SaveShop. The boolean
// is false when nothing has been stored yet.
func LoadStoredShop(ctx context.Context, store kvstore.Store) (Shop, bool, error) {
	raw, ok, err := store.Get(ctx, shopSettingsKey)
	if err != nil || !ok {
		return Shop{}, false, err
	}
	var shop Shop
	if err := json.Unmarshal([]byte(raw), &shop); err != nil {
		return Shop{}, false, fmt.Errorf("decode shop settings: %w", err)
	}
	shop.applyDefaults()
	if err := shop.Validate(); err != nil {
		return Shop{}, false, err
	}
	return shop, true, nil
}
