package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/channel"
	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/kvstore"
	"github.com/gm-shop/gm_shop/internal/ledger"
	"github.com/gm-shop/gm_shop/internal/logging"
	"github.com/gm-shop/gm_shop/internal/notification"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

type fixture struct {
	mgr      *Manager
	ledger   *ledger.Ledger
	vendors  *vendor.Service
	inv      inventory.Store
	settings *config.Settings
	registry *approval.Registry
	bus      *channel.MemoryBus
	vendor   vendor.Vendor
}

func newFixture(t *testing.T, mutate func(*config.Shop)) *fixture {
	t.Helper()
	shop := config.DefaultShop()
	shop.UseModuleCurrency = true
	if mutate != nil {
		mutate(&shop)
	}
	logger := logging.Discard()
	settings := config.NewSettings(shop)
	inv := inventory.NewMemoryStore()
	l, err := ledger.New(kvstore.NewMemory(), inv, settings, logger)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	bus := channel.NewMemoryBus()
	notifier := notification.NewBusNotifier(bus, logger)
	vendors := vendor.NewService(vendor.NewMemoryRepository(), notifier, logger)
	registry := approval.NewRegistry(logger)
	t.Cleanup(registry.Close)

	v, err := vendors.Create(context.Background(), vendor.CreateInput{
		Name:   "Armory",
		Active: true,
		Items: []vendor.Item{
			{ID: "sword", Name: "Longsword", Price: decimal.NewFromInt(30), Quantity: vendor.Quantity(5)},
			{ID: "torch", Name: "Torch", Price: decimal.RequireFromString("2.5")},
		},
	})
	if err != nil {
		t.Fatalf("vendor: %v", err)
	}

	mgr := NewManager(Deps{
		Wallet:    l,
		Catalog:   vendors,
		Inventory: inv,
		Approver:  registry,
		Notifier:  notifier,
		Settings:  settings,
		Logger:    logger,
	})
	return &fixture{mgr: mgr, ledger: l, vendors: vendors, inv: inv, settings: settings, registry: registry, bus: bus, vendor: v}
}

func (f *fixture) stock(t *testing.T, itemID string) (int, bool) {
	t.Helper()
	v, err := f.vendors.Get(context.Background(), f.vendor.ID)
	if err != nil {
		t.Fatalf("get vendor: %v", err)
	}
	it, ok := v.Item(itemID)
	if !ok {
		return 0, false
	}
	return *it.Quantity, true
}

func (f *fixture) balance(t *testing.T, holder string) decimal.Decimal {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

func (f *fixture) purchase(t *testing.T, items ...Line) Result {
	t.Helper()
	res, err := f.mgr.Purchase(context.Background(), Request{ActorID: "actor-1", RequesterID: "player-1", VendorID: f.vendor.ID, Items: items})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	return res
}

// purchaseAsync is purchase for use off the test goroutine; a rejected
// request comes back as a zero Result.
func (f *fixture) purchaseAsync(items ...Line) Result {
	res, _ := f.mgr.Purchase(context.Background(), Request{ActorID: "actor-1", RequesterID: "player-1", VendorID: f.vendor.ID, Items: items})
	return res
}

func (f *fixture) giveItem(t *testing.T, name string, price string, qty int) inventory.Item {
	t.Helper()
	it, err := f.inv.Add(context.Background(), "actor-1", inventory.ItemRef{
		UUID:  "item:" + name,
		Name:  name,
		Price: decimal.RequireFromString(price),
	}, qty)
	if err != nil {
		t.Fatalf("give item: %v", err)
	}
	return it
}

func waitPending(t *testing.T, r *approval.Registry) approval.Prompt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := r.Pending(); len(p) > 0 {
			return p[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no approval became pending")
	return approval.Prompt{}
}

func TestPurchaseDebitsAndDecrementsStock(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)

	res := f.purchase(t, Line{ID: "sword", Quantity: 2})
	if !res.Success || res.State != StateCompleted {
		t.Fatalf("expected success, got %+v", res)
	}
	if !res.Data.NewBalance.Equal(decimal.NewFromInt(40)) || !res.Data.Cost.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected data %+v", res.Data)
	}
	if res.Data.ItemsProcessed != 2 {
		t.Fatalf("expected 2 items processed, got %d", res.Data.ItemsProcessed)
	}
	if q, _ := f.stock(t, "sword"); q != 3 {
		t.Fatalf("expected stock 3, got %d", q)
	}
	items, _ := f.inv.List(context.Background(), "actor-1")
	if len(items) != 1 || items[0].Count != 2 || items[0].Name != "Longsword" {
		t.Fatalf("unexpected inventory %+v", items)
	}
}

func TestPurchaseInsufficientFundsLeavesStock(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 10)

	res := f.purchase(t, Line{ID: "sword", Quantity: 1})
	if res.Success || res.State != StateFailed {
		t.Fatalf("expected failure, got %+v", res)
	}
	if q, _ := f.stock(t, "sword"); q != 5 {
		t.Fatalf("stock must be unchanged, got %d", q)
	}
	if !f.balance(t, "actor-1").Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance must be unchanged")
	}
	if items, _ := f.inv.List(context.Background(), "actor-1"); len(items) != 0 {
		t.Fatalf("inventory must be unchanged, got %+v", items)
	}
}

func TestPurchaseRoundsCostUp(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 5)

	res := f.purchase(t, Line{ID: "torch", Quantity: 1})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !res.Data.Cost.Equal(decimal.NewFromInt(3)) || !f.balance(t, "actor-1").Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected ceil cost 3 and balance 2, got cost %s balance %s", res.Data.Cost, f.balance(t, "actor-1"))
	}
}

func TestPurchaseCoercesInvalidQuantity(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)

	res := f.purchase(t, Line{ID: "sword", Quantity: 0})
	if !res.Success || res.Data.ItemsProcessed != 1 {
		t.Fatalf("expected one item bought, got %+v", res)
	}
	if len(res.Lines) != 1 || !res.Lines[0].Coerced || res.Lines[0].Quantity != 1 {
		t.Fatalf("expected coercion to be reported, got %+v", res.Lines)
	}
}

func TestPurchaseReportsInvalidLinesAndKeepsValid(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)

	res := f.purchase(t,
		Line{ID: "missing", Quantity: 1},
		Line{ID: "sword", Quantity: 9},
		Line{ID: "torch", Quantity: 2},
	)
	if !res.Success || res.Data.ItemsProcessed != 2 || !res.Data.Cost.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected only torches bought, got %+v", res)
	}
	if res.Lines[0].Status != LineInvalid || res.Lines[1].Status != LineInvalid || res.Lines[2].Status != LineApplied {
		t.Fatalf("unexpected line statuses %+v", res.Lines)
	}
}

func TestPurchaseAllStockPrunesItem(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 1000)

	if res := f.purchase(t, Line{ID: "sword", Quantity: 5}); !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if _, ok := f.stock(t, "sword"); ok {
		t.Fatalf("sold-out item must be removed from the vendor")
	}
}

func TestPurchaseInactiveVendor(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	inactive := false
	if _, err := f.vendors.Update(context.Background(), f.vendor.ID, vendor.UpdateInput{Active: &inactive}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if res := f.purchase(t, Line{ID: "torch", Quantity: 1}); res.Success {
		t.Fatalf("closed vendor must not trade")
	}
}

func TestPurchaseApprovalGate(t *testing.T) {
	for _, approve := range []bool{true, false} {
		t.Run(fmt.Sprintf("approved=%v", approve), func(t *testing.T) {
			f := newFixture(t, func(s *config.Shop) { s.RequireGMApproval = true })
			ledger.SeedBalance(t, f.ledger, "actor-1", 100)

			done := make(chan Result, 1)
			go func() { done <- f.purchaseAsync(Line{ID: "sword", Quantity: 1}) }()

			prompt := waitPending(t, f.registry)
			if prompt.Kind != approval.KindPurchase || !prompt.Total.Equal(decimal.NewFromInt(30)) {
				t.Fatalf("unexpected prompt %+v", prompt)
			}
			if err := f.registry.Resolve(prompt.ID, approval.Decision{Approved: approve}); err != nil {
				t.Fatalf("resolve: %v", err)
			}

			res := <-done
			if res.Success != approve {
				t.Fatalf("expected success=%v, got %+v", approve, res)
			}
			wantStock := 5
			if approve {
				wantStock = 4
			}
			if q, _ := f.stock(t, "sword"); q != wantStock {
				t.Fatalf("expected stock %d, got %d", wantStock, q)
			}
		})
	}
}

func TestDismissedApprovalDeclines(t *testing.T) {
	f := newFixture(t, func(s *config.Shop) { s.RequireGMApproval = true })
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)

	done := make(chan Result, 1)
	go func() { done <- f.purchaseAsync(Line{ID: "sword", Quantity: 1}) }()
	prompt := waitPending(t, f.registry)
	if err := f.registry.Dismiss(prompt.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if res := <-done; res.Success {
		t.Fatalf("dismissed approval must fail the request")
	}
}

func TestDuplicateRequestRejected(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	req := Request{ID: "req-1", ActorID: "actor-1", VendorID: f.vendor.ID, Items: []Line{{ID: "sword", Quantity: 1}}}

	if _, err := f.mgr.Purchase(context.Background(), req); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := f.mgr.Purchase(context.Background(), req); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	if q, _ := f.stock(t, "sword"); q != 4 {
		t.Fatalf("duplicate must not apply twice, stock %d", q)
	}
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 10_000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.mgr.Purchase(context.Background(), Request{ActorID: "actor-1", VendorID: f.vendor.ID, Items: []Line{{ID: "sword", Quantity: 1}}})
			if err != nil {
				t.Errorf("purchase: %v", err)
				return
			}
			if res.Success {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 purchases to succeed, got %d", succeeded)
	}
	if !f.balance(t, "actor-1").Equal(decimal.NewFromInt(10_000 - 150)) {
		t.Fatalf("unexpected balance %s", f.balance(t, "actor-1"))
	}
}

type failingWallet struct {
	*ledger.Ledger
}

func (failingWallet) AddBalance(context.Context, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("wallet store unavailable")
}

func TestSettlementFailureKeepsInventory(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	f.mgr.wallet = failingWallet{f.ledger}

	res := f.purchase(t, Line{ID: "sword", Quantity: 1})
	if res.Success {
		t.Fatalf("expected settlement failure")
	}
	if q, _ := f.stock(t, "sword"); q != 4 {
		t.Fatalf("stock change is not rolled back, expected 4 got %d", q)
	}
	if items, _ := f.inv.List(context.Background(), "actor-1"); len(items) != 1 {
		t.Fatalf("inventory change is not rolled back, got %+v", items)
	}
}

type panickingInventory struct {
	inventory.Store
}

func (panickingInventory) Add(context.Context, string, inventory.ItemRef, int) (inventory.Item, error) {
	panic("inventory exploded")
}

func TestPanicBecomesGenericFailure(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	f.mgr.inventory = panickingInventory{f.inv}

	res := f.purchase(t, Line{ID: "sword", Quantity: 1})
	if res.Success || res.State != StateFailed || res.Message == "" {
		t.Fatalf("expected generic failure, got %+v", res)
	}
}

// flakyInventory fails Add for one item name and Remove for one item id.
type flakyInventory struct {
	inventory.Store
	failAdd    string
	failRemove string
}

func (s flakyInventory) Add(ctx context.Context, holderID string, ref inventory.ItemRef, qty int) (inventory.Item, error) {
	if ref.Name == s.failAdd {
		return inventory.Item{}, errors.New("inventory write rejected")
	}
	return s.Store.Add(ctx, holderID, ref, qty)
}

func (s flakyInventory) Remove(ctx context.Context, holderID, itemID string, qty int) (int, error) {
	if itemID == s.failRemove {
		return 0, errors.New("inventory write rejected")
	}
	return s.Store.Remove(ctx, holderID, itemID, qty)
}

func TestPurchaseSkipsLineThatCannotBeAdded(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	f.mgr.inventory = flakyInventory{Store: f.inv, failAdd: "Longsword"}

	res := f.purchase(t, Line{ID: "sword", Quantity: 1}, Line{ID: "torch", Quantity: 2})
	if !res.Success {
		t.Fatalf("expected partial success, got %+v", res)
	}
	if res.Data.ItemsProcessed != 2 || !res.Data.Cost.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("only the torches must be settled, got %+v", res.Data)
	}
	if res.Lines[0].Status != LineSkipped || res.Lines[1].Status != LineApplied {
		t.Fatalf("unexpected line statuses %+v", res.Lines)
	}
	if !f.balance(t, "actor-1").Equal(decimal.NewFromInt(95)) {
		t.Fatalf("expected balance 95, got %s", f.balance(t, "actor-1"))
	}
	if q, _ := f.stock(t, "sword"); q != 5 {
		t.Fatalf("skipped line must keep its stock, got %d", q)
	}
	items, _ := f.inv.List(context.Background(), "actor-1")
	if len(items) != 1 || items[0].Name != "Torch" || items[0].Count != 2 {
		t.Fatalf("expected only torches delivered, got %+v", items)
	}
}

func TestPurchaseAllLinesFailToApply(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)
	f.mgr.inventory = flakyInventory{Store: f.inv, failAdd: "Longsword"}

	res := f.purchase(t, Line{ID: "sword", Quantity: 2})
	if res.Success || res.Lines[0].Status != LineSkipped {
		t.Fatalf("expected failure with skipped line, got %+v", res)
	}
	if !f.balance(t, "actor-1").Equal(decimal.NewFromInt(100)) {
		t.Fatalf("nothing applied, nothing charged; got %s", f.balance(t, "actor-1"))
	}
	if q, _ := f.stock(t, "sword"); q != 5 {
		t.Fatalf("expected stock 5, got %d", q)
	}
}

func TestSellSkipsLineThatCannotBeRemoved(t *testing.T) {
	f := newFixture(t, func(s *config.Shop) { s.AutoSellPercentage = 50 })
	arrows := f.giveItem(t, "Arrow", "1", 10)
	gem := f.giveItem(t, "Gem", "20", 1)
	f.mgr.inventory = flakyInventory{Store: f.inv, failRemove: gem.ID}

	res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{
		{ID: arrows.ID, Quantity: 4},
		{ID: gem.ID, Quantity: 1},
	}})
	if err != nil || !res.Success {
		t.Fatalf("expected partial success: %v %+v", err, res)
	}
	if res.Lines[0].Status != LineApplied || res.Lines[1].Status != LineSkipped {
		t.Fatalf("unexpected line statuses %+v", res.Lines)
	}
	if res.Data.ItemsProcessed != 4 || !res.Data.Cost.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("only the arrows must be paid, got %+v", res.Data)
	}
	if !f.balance(t, "actor-1").Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected balance 2, got %s", f.balance(t, "actor-1"))
	}
	left, _ := f.inv.Get(context.Background(), "actor-1", arrows.ID)
	kept, _ := f.inv.Get(context.Background(), "actor-1", gem.ID)
	if left.Count != 6 || kept.Count != 1 {
		t.Fatalf("expected 6 arrows and the gem kept, got %d and %d", left.Count, kept.Count)
	}
}

func TestSellRefusedAfterSkipsRestoresItems(t *testing.T) {
	f := newFixture(t, func(s *config.Shop) {
		s.UseModuleCurrency = false
		s.AutoSellPercentage = 50
	})
	bead := f.giveItem(t, "Bead", "0.8", 1)
	gem := f.giveItem(t, "Gem", "20", 1)
	f.mgr.inventory = flakyInventory{Store: f.inv, failRemove: gem.ID}

	res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{
		{ID: bead.ID, Quantity: 1},
		{ID: gem.ID, Quantity: 1},
	}})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Success {
		t.Fatalf("a 0.4 payout must be refused, got %+v", res)
	}
	if res.Lines[0].Status != LineSkipped || res.Lines[0].Reason != "returned to the inventory" {
		t.Fatalf("expected the bead to be returned, got %+v", res.Lines[0])
	}
	if !f.balance(t, "actor-1").IsZero() {
		t.Fatalf("refused sale paid %s", f.balance(t, "actor-1"))
	}

	items, _ := f.inv.List(context.Background(), "actor-1")
	counts := map[string]int{}
	for _, it := range items {
		counts[it.Name] += it.Count
	}
	if counts["Bead"] != 1 || counts["Gem"] != 1 {
		t.Fatalf("expected bead and gem back in the inventory, got %+v", counts)
	}
}

func TestResultEventAddressedToRequester(t *testing.T) {
	f := newFixture(t, nil)
	ledger.SeedBalance(t, f.ledger, "actor-1", 100)

	got := make(chan channel.Event, 8)
	if _, err := f.bus.Subscribe(func(_ context.Context, evt channel.Event) {
		if evt.IsResult() {
			got <- evt
		}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	res := f.purchase(t, Line{ID: "sword", Quantity: 1})
	select {
	case evt := <-got:
		if evt.Type != channel.TypePurchaseCompleted || evt.UserID != "player-1" || evt.RequestID != res.RequestID {
			t.Fatalf("unexpected result event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no result event")
	}
}

func TestSellAutomaticPercentage(t *testing.T) {
	tests := []struct {
		name        string
		moduleMode  bool
		price       string
		wantSuccess bool
		wantPayout  string
	}{
		{name: "module mode exact", moduleMode: true, price: "20", wantSuccess: true, wantPayout: "10"},
		{name: "module mode fractional", moduleMode: true, price: "0.8", wantSuccess: true, wantPayout: "0.4"},
		{name: "character mode", moduleMode: false, price: "20", wantSuccess: true, wantPayout: "10"},
		{name: "character mode rounds up", moduleMode: false, price: "3", wantSuccess: true, wantPayout: "2"},
		{name: "character mode below minimum", moduleMode: false, price: "0.8", wantSuccess: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(s *config.Shop) {
				s.UseModuleCurrency = tt.moduleMode
				s.AutoSellPercentage = 50
			})
			item := f.giveItem(t, "Gem", tt.price, 1)

			res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{{ID: item.ID, Quantity: 1}}})
			if err != nil {
				t.Fatalf("sell: %v", err)
			}
			if res.Success != tt.wantSuccess {
				t.Fatalf("expected success=%v, got %+v", tt.wantSuccess, res)
			}

			items, _ := f.inv.List(context.Background(), "actor-1")
			if !tt.wantSuccess {
				if len(items) != 1 || !f.balance(t, "actor-1").IsZero() {
					t.Fatalf("refused sale must leave funds and inventory unchanged")
				}
				return
			}
			if !res.Data.Cost.Equal(decimal.RequireFromString(tt.wantPayout)) {
				t.Fatalf("expected payout %s, got %s", tt.wantPayout, res.Data.Cost)
			}
			if !f.balance(t, "actor-1").Equal(decimal.RequireFromString(tt.wantPayout)) {
				t.Fatalf("expected balance %s, got %s", tt.wantPayout, f.balance(t, "actor-1"))
			}
			if len(items) != 0 {
				t.Fatalf("sold item must be deleted, got %+v", items)
			}
		})
	}
}

func TestSellPartialCountKeepsRemainder(t *testing.T) {
	f := newFixture(t, nil)
	item := f.giveItem(t, "Arrow", "1", 10)

	res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{{ID: item.ID, Quantity: 4}}})
	if err != nil || !res.Success {
		t.Fatalf("sell: %v %+v", err, res)
	}
	left, err := f.inv.Get(context.Background(), "actor-1", item.ID)
	if err != nil || left.Count != 6 {
		t.Fatalf("expected 6 arrows left, got %+v err=%v", left, err)
	}
}

func TestSellRejectsMoreThanHeld(t *testing.T) {
	f := newFixture(t, nil)
	item := f.giveItem(t, "Arrow", "1", 2)

	res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{{ID: item.ID, Quantity: 3}}})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Success || res.Lines[0].Status != LineInvalid {
		t.Fatalf("expected invalid line, got %+v", res)
	}
}

func TestSellWithApprovalPercentage(t *testing.T) {
	f := newFixture(t, func(s *config.Shop) {
		s.RequireGMApproval = true
		s.AutoSellPercentage = 50
	})
	item := f.giveItem(t, "Crown", "40", 1)

	done := make(chan Result, 1)
	go func() {
		res, _ := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{{ID: item.ID, Quantity: 1}}})
		done <- res
	}()

	prompt := waitPending(t, f.registry)
	if prompt.DefaultPercentage == nil || *prompt.DefaultPercentage != 50 {
		t.Fatalf("expected default percentage 50, got %+v", prompt.DefaultPercentage)
	}
	pct := 75
	if err := f.registry.Resolve(prompt.ID, approval.Decision{Approved: true, Percentage: &pct}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	res := <-done
	if !res.Success || !res.Data.Cost.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected payout 30, got %+v", res)
	}
}

func TestCoinsCannotBeSold(t *testing.T) {
	f := newFixture(t, nil)
	coin, err := f.inv.Add(context.Background(), "actor-1", inventory.ItemRef{
		UUID:  inventory.CoinUUID("gp"),
		Name:  "gp",
		Price: decimal.NewFromInt(1),
	}, 3)
	if err != nil {
		t.Fatalf("add coin: %v", err)
	}

	res, err := f.mgr.Sell(context.Background(), Request{ActorID: "actor-1", Items: []Line{{ID: coin.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Success || res.Lines[0].Status != LineInvalid {
		t.Fatalf("coins must not be sellable, got %+v", res)
	}
}

func TestQuantityDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: `3`, want: 3},
		{raw: `"4"`, want: 4},
		{raw: `2.7`, want: 2},
		{raw: `"abc"`, want: 0},
		{raw: `null`, want: 0},
		{raw: `-2`, want: -2},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var line Line
			if err := json.Unmarshal([]byte(`{"id":"x","quantity":`+tt.raw+`}`), &line); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if int(line.Quantity) != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, line.Quantity)
			}
		})
	}
}
