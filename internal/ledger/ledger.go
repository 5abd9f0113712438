// Package ledger is the currency ledger: per-holder balances in either the
// module-managed abstract wallet or the character's physical coins.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/denomination"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/kvstore"
)

var (
	// ErrInsufficientFunds occurs when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for negative balances.
	ErrInvalidAmount = errors.New("balance must not be negative")

	// ErrMissingHolder is returned when no holder id is supplied.
	ErrMissingHolder = errors.New("holder id is required")
)

// ModuleMultiplier scales module-mode balances to integers (hundredths).
const ModuleMultiplier = 100

// Mode selects the balance backing. The two never mix within one read or write.
type Mode string

const (
	ModeModule    Mode = "module"
	ModeCharacter Mode = "character"
)

// CoinPurse is the slice of the inventory the ledger needs in character mode.
type CoinPurse interface {
	CoinCounts(ctx context.Context, holderID string) (map[string]int64, error)
	SetCoinCount(ctx context.Context, holderID string, coin inventory.ItemRef, count int64) error
}

// Ledger reads and writes holder balances.
type Ledger struct {
	store    kvstore.Store
	purse    CoinPurse
	settings *config.Settings
	logger   *slog.Logger

	mu  sync.RWMutex
	set *denomination.Set

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New builds a ledger and keeps its denomination set in sync with settings.
func New(store kvstore.Store, purse CoinPurse, settings *config.Settings, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	set, err := denomination.NewSet(settings.Get().Denominations)
	if err != nil {
		return nil, fmt.Errorf("ledger denominations: %w", err)
	}
	l := &Ledger{
		store:    store,
		purse:    purse,
		settings: settings,
		logger:   logger,
		set:      set,
		locks:    make(map[string]*sync.Mutex),
	}
	settings.Subscribe(l.refresh)
	return l, nil
}

func (l *Ledger) refresh(shop config.Shop) {
	set, err := denomination.NewSet(shop.Denominations)
	if err != nil {
		l.logger.Error("denomination refresh rejected", slog.Any("error", err))
		return
	}
	l.mu.Lock()
	l.set = set
	l.mu.Unlock()
	l.logger.Debug("denominations refreshed", slog.Int64("multiplier", set.Multiplier()))
}

// Denominations returns the cached denomination set.
func (l *Ledger) Denominations() *denomination.Set {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set
}

// Mode reports the backing currently selected by the shop settings.
func (l *Ledger) Mode() Mode {
	if l.settings.Get().UseModuleCurrency {
		return ModeModule
	}
	return ModeCharacter
}

func (l *Ledger) lock(holderID string) func() {
	l.locksMu.Lock()
	m, ok := l.locks[holderID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[holderID] = m
	}
	l.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// Balance returns the holder's nominal balance, creating an empty module
// wallet on first read.
func (l *Ledger) Balance(ctx context.Context, holderID string) (decimal.Decimal, error) {
	if holderID == "" {
		return decimal.Zero, ErrMissingHolder
	}
	unlock := l.lock(holderID)
	defer unlock()
	return l.balance(ctx, holderID, l.Mode())
}

// SetBalance overwrites the holder's balance. In character mode every
// configured denomination's coin item is rewritten from a fresh change bag.
func (l *Ledger) SetBalance(ctx context.Context, holderID string, amount decimal.Decimal) error {
	if holderID == "" {
		return ErrMissingHolder
	}
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	unlock := l.lock(holderID)
	defer unlock()
	return l.setBalance(ctx, holderID, amount, l.Mode())
}

// AddBalance applies a signed delta and returns the new balance. A result
// below zero is rejected with ErrInsufficientFunds and nothing is written.
func (l *Ledger) AddBalance(ctx context.Context, holderID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if holderID == "" {
		return decimal.Zero, ErrMissingHolder
	}
	unlock := l.lock(holderID)
	defer unlock()

	mode := l.Mode()
	current, err := l.balance(ctx, holderID, mode)
	if err != nil {
		return decimal.Zero, err
	}
	next := current.Add(delta)
	if next.IsNegative() {
		return current, ErrInsufficientFunds
	}
	if err := l.setBalance(ctx, holderID, next, mode); err != nil {
		return current, err
	}
	return l.balance(ctx, holderID, mode)
}

func (l *Ledger) balance(ctx context.Context, holderID string, mode Mode) (decimal.Decimal, error) {
	if mode == ModeModule {
		return l.moduleBalance(ctx, holderID)
	}
	return l.characterBalance(ctx, holderID)
}

func (l *Ledger) setBalance(ctx context.Context, holderID string, amount decimal.Decimal, mode Mode) error {
	if mode == ModeModule {
		return l.setModuleBalance(ctx, holderID, amount)
	}
	return l.setCharacterBalance(ctx, holderID, amount)
}

func walletKey(holderID string) string {
	return "wallet:" + holderID
}

func (l *Ledger) moduleBalance(ctx context.Context, holderID string) (decimal.Decimal, error) {
	raw, ok, err := l.store.Get(ctx, walletKey(holderID))
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		if err := l.store.Set(ctx, walletKey(holderID), "0"); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, nil
	}
	scaled, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet %s is corrupt: %w", holderID, err)
	}
	return decimal.New(scaled, 0).Div(decimal.NewFromInt(ModuleMultiplier)), nil
}

func (l *Ledger) setModuleBalance(ctx context.Context, holderID string, amount decimal.Decimal) error {
	scaled := amount.Mul(decimal.NewFromInt(ModuleMultiplier)).Round(0).IntPart()
	return l.store.Set(ctx, walletKey(holderID), strconv.FormatInt(scaled, 10))
}

func (l *Ledger) characterBalance(ctx context.Context, holderID string) (decimal.Decimal, error) {
	coins, err := l.purse.CoinCounts(ctx, holderID)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Denominations().ValueFromCoins(coins)
}

func (l *Ledger) setCharacterBalance(ctx context.Context, holderID string, amount decimal.Decimal) error {
	set := l.Denominations()
	bag, err := set.MakeChange(set.Scale(amount))
	if err != nil {
		return err
	}
	for _, d := range set.Denominations() {
		coin := inventory.ItemRef{
			UUID:   inventory.CoinUUID(d.Name),
			Name:   d.Name,
			Price:  d.Value,
			Weight: d.Weight,
		}
		if err := l.purse.SetCoinCount(ctx, holderID, coin, bag[d.Name]); err != nil {
			return fmt.Errorf("write %s coins: %w", d.Name, err)
		}
	}
	l.logger.Debug("coins redistributed", slog.String("holder_id", holderID), slog.Any("coins", bag))
	return nil
}
