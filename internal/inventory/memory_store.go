package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type holderItems struct {
	order []string
	items map[string]*Item
}

type memoryStore struct {
	mu      sync.RWMutex
	holders map[string]*holderItems
}

// NewMemoryStore constructs an in-memory inventory for development and tests.
func NewMemoryStore() Store {
	return &memoryStore{holders: make(map[string]*holderItems)}
}

func (s *memoryStore) holder(id string) *holderItems {
	h, ok := s.holders[id]
	if !ok {
		h = &holderItems{items: make(map[string]*Item)}
		s.holders[id] = h
	}
	return h
}

func (h *holderItems) byUUID(ref string) *Item {
	for _, id := range h.order {
		if it := h.items[id]; it.UUID == ref {
			return it
		}
	}
	return nil
}

func (h *holderItems) remove(id string) {
	delete(h.items, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func (s *memoryStore) Add(_ context.Context, holderID string, ref ItemRef, qty int) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if strings.TrimSpace(ref.UUID) == "" {
		return Item{}, fmt.Errorf("add item: missing template uuid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.holder(holderID)
	if existing := h.byUUID(ref.UUID); existing != nil {
		existing.Count += qty
		return *existing, nil
	}
	item := &Item{
		ID:       uuid.NewString(),
		HolderID: holderID,
		UUID:     ref.UUID,
		Name:     ref.Name,
		Count:    qty,
		Price:    ref.Price,
		Weight:   ref.Weight,
	}
	h.items[item.ID] = item
	h.order = append(h.order, item.ID)
	return *item, nil
}

func (s *memoryStore) Get(_ context.Context, holderID, itemID string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holders[holderID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	it, ok := h.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return *it, nil
}

func (s *memoryStore) Remove(_ context.Context, holderID, itemID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holders[holderID]
	if !ok {
		return 0, ErrItemNotFound
	}
	it, ok := h.items[itemID]
	if !ok {
		return 0, ErrItemNotFound
	}
	if it.Count < qty {
		return it.Count, ErrInsufficientCount
	}
	it.Count -= qty
	if it.Count == 0 {
		h.remove(itemID)
	}
	return it.Count, nil
}

func (s *memoryStore) List(_ context.Context, holderID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holders[holderID]
	if !ok {
		return []Item{}, nil
	}
	out := make([]Item, 0, len(h.order))
	for _, id := range h.order {
		if it := h.items[id]; !IsCoin(it.UUID) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *memoryStore) CoinCounts(_ context.Context, holderID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	h, ok := s.holders[holderID]
	if !ok {
		return counts, nil
	}
	for _, id := range h.order {
		if it := h.items[id]; IsCoin(it.UUID) {
			counts[strings.TrimPrefix(it.UUID, coinPrefix)] = int64(it.Count)
		}
	}
	return counts, nil
}

func (s *memoryStore) SetCoinCount(_ context.Context, holderID string, coin ItemRef, count int64) error {
	if count < 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.holder(holderID)
	if existing := h.byUUID(coin.UUID); existing != nil {
		existing.Count = int(count)
		return nil
	}
	item := &Item{
		ID:       uuid.NewString(),
		HolderID: holderID,
		UUID:     coin.UUID,
		Name:     coin.Name,
		Count:    int(count),
		Price:    coin.Price,
		Weight:   coin.Weight,
	}
	h.items[item.ID] = item
	h.order = append(h.order, item.ID)
	return nil
}
