package channel

import (
	"context"
	"errors"
	"sync"
	"time"
)

// withdrawTimeout bounds publishing the withdrawal of an abandoned request.
const withdrawTimeout = 5 * time.Second

// ErrRequestInFlight is returned when a request id is already awaiting its result.
var ErrRequestInFlight = errors.New("request already in flight")

type waiter struct {
	userID string
	result chan Event
}

// Requester forwards request events and waits for the matching result.
// Results addressed to another user, or to a request this process is not
// waiting on, are ignored.
type Requester struct {
	bus Bus
	sub Subscription

	mu      sync.Mutex
	waiters map[string]waiter
}

// NewRequester subscribes to the bus for result events.
func NewRequester(bus Bus) (*Requester, error) {
	r := &Requester{bus: bus, waiters: make(map[string]waiter)}
	sub, err := bus.Subscribe(r.deliver)
	if err != nil {
		return nil, err
	}
	r.sub = sub
	return r, nil
}

func (r *Requester) deliver(_ context.Context, evt Event) {
	if !evt.IsResult() {
		return
	}
	r.mu.Lock()
	w, ok := r.waiters[evt.RequestID]
	if ok && w.userID == evt.UserID {
		delete(r.waiters, evt.RequestID)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		w.result <- evt
	}
}

// Request publishes evt and blocks until its result arrives or ctx ends.
// evt must carry both a user id and a request id. When ctx ends first the
// request is withdrawn so the authority does not act on it later.
func (r *Requester) Request(ctx context.Context, evt Event) (Event, error) {
	if evt.UserID == "" || evt.RequestID == "" {
		return Event{}, errors.New("request event needs user id and request id")
	}

	w := waiter{userID: evt.UserID, result: make(chan Event, 1)}
	r.mu.Lock()
	if _, busy := r.waiters[evt.RequestID]; busy {
		r.mu.Unlock()
		return Event{}, ErrRequestInFlight
	}
	r.waiters[evt.RequestID] = w
	r.mu.Unlock()

	// cleanup reports false when deliver already claimed the waiter.
	cleanup := func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, waiting := r.waiters[evt.RequestID]; !waiting {
			return false
		}
		delete(r.waiters, evt.RequestID)
		return true
	}

	if err := r.bus.Publish(ctx, evt); err != nil {
		cleanup()
		return Event{}, err
	}

	select {
	case res := <-w.result:
		return res, nil
	case <-ctx.Done():
		if !cleanup() {
			return <-w.result, nil
		}
		r.withdraw(evt)
		return Event{}, ctx.Err()
	}
}

func (r *Requester) withdraw(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), withdrawTimeout)
	defer cancel()
	_ = r.bus.Publish(ctx, Event{
		Type:      TypeRequestWithdrawn,
		UserID:    evt.UserID,
		RequestID: evt.RequestID,
		SentAt:    time.Now().UTC(),
	})
}

// Close stops listening for results.
func (r *Requester) Close() error {
	return r.sub.Unsubscribe()
}
