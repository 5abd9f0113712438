package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/channel"
	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/ledger"
	"github.com/gm-shop/gm_shop/internal/notification"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

// consumedTTL is how long a processed request id is remembered.
const consumedTTL = 24 * time.Hour

// Wallet is the ledger surface the manager needs.
type Wallet interface {
	Balance(ctx context.Context, holderID string) (decimal.Decimal, error)
	AddBalance(ctx context.Context, holderID string, delta decimal.Decimal) (decimal.Decimal, error)
	Mode() ledger.Mode
	Format(amount decimal.Decimal) string
}

// Catalog is the vendor store surface the manager needs.
type Catalog interface {
	Get(ctx context.Context, id string) (vendor.Vendor, error)
	UpdateItemQuantity(ctx context.Context, vendorID, itemID string, delta int) (vendor.Vendor, error)
}

// Approver suspends a request until the GM decides.
type Approver interface {
	Await(ctx context.Context, prompt approval.Prompt) approval.Decision
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Wallet    Wallet
	Catalog   Catalog
	Inventory inventory.Store
	Approver  Approver
	Notifier  notification.Notifier
	Settings  *config.Settings
	Logger    *slog.Logger
}

// Manager executes transactions. Only the authority constructs one.
type Manager struct {
	wallet    Wallet
	catalog   Catalog
	inventory inventory.Store
	approver  Approver
	notifier  notification.Notifier
	settings  *config.Settings
	logger    *slog.Logger

	vendorMu    sync.Mutex
	vendorLocks map[string]*sync.Mutex

	consumedMu sync.Mutex
	consumed   map[string]time.Time

	now func() time.Time
}

// NewManager wires a manager from its collaborators.
func NewManager(d Deps) *Manager {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		wallet:      d.Wallet,
		catalog:     d.Catalog,
		inventory:   d.Inventory,
		approver:    d.Approver,
		notifier:    d.Notifier,
		settings:    d.Settings,
		logger:      logger,
		vendorLocks: make(map[string]*sync.Mutex),
		consumed:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// consume marks id as processed, failing if it already was.
func (m *Manager) consume(id string) error {
	m.consumedMu.Lock()
	defer m.consumedMu.Unlock()

	now := m.now()
	for k, at := range m.consumed {
		if now.Sub(at) > consumedTTL {
			delete(m.consumed, k)
		}
	}
	if _, seen := m.consumed[id]; seen {
		return ErrDuplicateRequest
	}
	m.consumed[id] = now
	return nil
}

func (m *Manager) lockVendor(id string) func() {
	m.vendorMu.Lock()
	mu, ok := m.vendorLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		m.vendorLocks[id] = mu
	}
	m.vendorMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// admit checks the request shape and consumes its id.
func (m *Manager) admit(req *Request) error {
	if req.ActorID == "" || len(req.Items) == 0 {
		return fmt.Errorf("%w: actor and at least one item are required", ErrInvalidRequest)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequesterID == "" {
		req.RequesterID = req.ActorID
	}
	return m.consume(req.ID)
}

func (m *Manager) transition(req Request, kind Kind, state State) {
	m.logger.Debug("transaction state",
		slog.String("request_id", req.ID),
		slog.String("kind", string(kind)),
		slog.String("state", string(state)),
	)
}

// fail builds a failed result.
func (m *Manager) fail(req Request, kind Kind, msg string, lines []LineOutcome) Result {
	m.transition(req, kind, StateFailed)
	m.logger.Info("transaction failed",
		slog.String("request_id", req.ID),
		slog.String("kind", string(kind)),
		slog.String("actor_id", req.ActorID),
		slog.String("reason", msg),
	)
	return Result{RequestID: req.ID, Kind: kind, State: StateFailed, Message: msg, Lines: lines}
}

// guard converts a panic in fn into a generic failure result.
func (m *Manager) guard(req Request, kind Kind, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("transaction panicked",
				slog.String("request_id", req.ID),
				slog.String("kind", string(kind)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = Result{
				RequestID: req.ID,
				Kind:      kind,
				State:     StateFailed,
				Message:   "An unexpected error occurred while processing the transaction.",
			}
		}
	}()
	return fn()
}

// settlementFailed logs the accepted inconsistency window: inventory and
// stock already changed but the wallet did not.
func (m *Manager) settlementFailed(req Request, kind Kind, amount decimal.Decimal, err error) {
	m.logger.Error("settlement failed after inventory mutation",
		slog.Bool("inconsistent", true),
		slog.String("request_id", req.ID),
		slog.String("kind", string(kind)),
		slog.String("actor_id", req.ActorID),
		slog.String("amount", amount.String()),
		slog.Any("error", err),
	)
}

// notify sends the single result event for a request.
func (m *Manager) notify(ctx context.Context, req Request, res Result) {
	if m.notifier == nil {
		return
	}
	kind := resultEventType(res.Kind, res.Success)
	// Deliver even if the request context was cancelled mid-flight.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.notifier.Send(sendCtx, notification.Message{
		Kind:        kind,
		Destination: req.RequesterID,
		RequestID:   req.ID,
		Payload:     res,
	}); err != nil {
		m.logger.Warn("result notification failed", slog.String("request_id", req.ID), slog.Any("error", err))
	}
}

func resultEventType(kind Kind, success bool) string {
	switch {
	case kind == KindPurchase && success:
		return channel.TypePurchaseCompleted
	case kind == KindPurchase:
		return channel.TypePurchaseFailed
	case success:
		return channel.TypeSellCompleted
	default:
		return channel.TypeSellFailed
	}
}

func approvalLines(lines []LineOutcome) []approval.Line {
	out := make([]approval.Line, 0, len(lines))
	for _, l := range lines {
		if l.Status == LinePending {
			out = append(out, approval.Line{Name: l.Name, Quantity: l.Quantity, Price: l.Price})
		}
	}
	return out
}
