package transaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gm-shop/gm_shop/internal/channel"
)

// withdrawnTTL is how long a withdrawal is remembered for a request that
// has not arrived yet.
const withdrawnTTL = 10 * time.Minute

type requestKey struct {
	requesterID string
	requestID   string
}

type inflight struct {
	requesterID string
	cancel      context.CancelFunc
}

// Dispatcher runs on the authority. It consumes purchase and sell request
// events from the bus and executes each on its own goroutine, so a request
// waiting on GM approval never holds up the others. A request withdrawn by
// its requester has its context cancelled, which declines a pending
// approval.
type Dispatcher struct {
	bus     channel.Bus
	manager *Manager
	logger  *slog.Logger

	ready     chan struct{}
	mu        sync.Mutex
	stopped   bool
	inflight  map[string]inflight
	withdrawn map[requestKey]time.Time
	wg        sync.WaitGroup
}

// NewDispatcher builds a dispatcher over bus.
func NewDispatcher(bus channel.Bus, manager *Manager, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		bus:       bus,
		manager:   manager,
		logger:    logger,
		ready:     make(chan struct{}),
		inflight:  make(map[string]inflight),
		withdrawn: make(map[requestKey]time.Time),
	}
}

// Ready is closed once the dispatcher is subscribed and accepting requests.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Run processes requests until ctx ends, then waits for in-flight requests.
// Cancelling ctx also declines any request still awaiting approval.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.manager == nil {
		return ErrNotAuthority
	}
	sub, err := d.bus.Subscribe(func(_ context.Context, evt channel.Event) {
		d.handle(ctx, evt)
	})
	if err != nil {
		return err
	}
	close(d.ready)
	d.logger.Info("transaction dispatcher started")

	<-ctx.Done()
	_ = sub.Unsubscribe()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("transaction dispatcher stopped")
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, evt channel.Event) {
	var run func(context.Context, Request) (Result, error)
	switch evt.Type {
	case channel.TypePurchaseRequest:
		run = d.manager.Purchase
	case channel.TypeSellRequest:
		run = d.manager.Sell
	case channel.TypeRequestWithdrawn:
		d.withdraw(evt)
		return
	default:
		return
	}

	req, err := decodeRequest(evt.Payload)
	if err != nil {
		d.logger.Warn("dropping malformed request", slog.String("type", evt.Type), slog.Any("error", err))
		return
	}
	// The envelope is authoritative for who is waiting on which result.
	req.ID = evt.RequestID
	req.RequesterID = evt.UserID

	d.mu.Lock()
	if d.stopped || ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	key := requestKey{requesterID: req.RequesterID, requestID: req.ID}
	if _, gone := d.withdrawn[key]; gone {
		delete(d.withdrawn, key)
		d.mu.Unlock()
		d.logger.Info("dropping withdrawn request", slog.String("request_id", req.ID))
		return
	}
	if _, busy := d.inflight[req.ID]; busy {
		d.mu.Unlock()
		d.logger.Info("dropping duplicate request", slog.String("request_id", req.ID))
		return
	}
	reqCtx, cancel := context.WithCancel(ctx)
	d.inflight[req.ID] = inflight{requesterID: req.RequesterID, cancel: cancel}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inflight, req.ID)
			d.mu.Unlock()
			cancel()
		}()
		if _, err := run(reqCtx, req); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrDuplicateRequest) {
				level = slog.LevelInfo
			}
			d.logger.Log(ctx, level, "request rejected",
				slog.String("type", evt.Type),
				slog.String("request_id", evt.RequestID),
				slog.Any("error", err),
			)
		}
	}()
}

// withdraw cancels the named request if it is running, or remembers the
// withdrawal if the request itself has not been seen yet.
func (d *Dispatcher) withdraw(evt channel.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if running, ok := d.inflight[evt.RequestID]; ok {
		if running.requesterID != evt.UserID {
			return
		}
		running.cancel()
		d.logger.Info("request withdrawn", slog.String("request_id", evt.RequestID))
		return
	}

	now := time.Now()
	for key, at := range d.withdrawn {
		if now.Sub(at) > withdrawnTTL {
			delete(d.withdrawn, key)
		}
	}
	d.withdrawn[requestKey{requesterID: evt.UserID, requestID: evt.RequestID}] = now
}
