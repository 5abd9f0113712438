package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bus := NewRedisBus(client, "", nil)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func buses(t *testing.T) map[string]Bus {
	return map[string]Bus{
		"memory": NewMemoryBus(),
		"redis":  newRedisBus(t),
	}
}

func TestBusFanOut(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			got := make(chan Event, 2)
			for i := 0; i < 2; i++ {
				sub, err := bus.Subscribe(func(_ context.Context, evt Event) { got <- evt })
				if err != nil {
					t.Fatalf("subscribe: %v", err)
				}
				defer sub.Unsubscribe()
			}

			evt, err := NewEvent(TypeVendorUpdated, "", "", map[string]string{"vendorId": "v1"})
			if err != nil {
				t.Fatalf("new event: %v", err)
			}
			if err := bus.Publish(context.Background(), evt); err != nil {
				t.Fatalf("publish: %v", err)
			}

			for i := 0; i < 2; i++ {
				select {
				case e := <-got:
					var payload map[string]string
					if err := e.Decode(&payload); err != nil || payload["vendorId"] != "v1" {
						t.Fatalf("unexpected payload %v err=%v", payload, err)
					}
				case <-time.After(2 * time.Second):
					t.Fatalf("subscriber %d did not receive event", i)
				}
			}
		})
	}
}

// answer replies to every request event with a result addressed to replyUser.
func answer(t *testing.T, bus Bus, replyUser string) {
	t.Helper()
	sub, err := bus.Subscribe(func(ctx context.Context, evt Event) {
		if evt.Type != TypePurchaseRequest {
			return
		}
		res, _ := NewEvent(TypePurchaseCompleted, replyUser, evt.RequestID, map[string]bool{"success": true})
		_ = bus.Publish(ctx, res)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
}

func TestRequesterReceivesMatchingResult(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			answer(t, bus, "player-1")
			req, err := NewRequester(bus)
			if err != nil {
				t.Fatalf("requester: %v", err)
			}
			defer req.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			evt, _ := NewEvent(TypePurchaseRequest, "player-1", "req-1", nil)
			res, err := req.Request(ctx, evt)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if res.Type != TypePurchaseCompleted || res.RequestID != "req-1" {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestRequesterIgnoresOtherUsers(t *testing.T) {
	bus := NewMemoryBus()
	answer(t, bus, "someone-else")
	req, err := NewRequester(bus)
	if err != nil {
		t.Fatalf("requester: %v", err)
	}
	defer req.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	evt, _ := NewEvent(TypePurchaseRequest, "player-1", "req-1", nil)
	if _, err := req.Request(ctx, evt); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRequesterWithdrawsAbandonedRequest(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			withdrawn := make(chan Event, 1)
			sub, err := bus.Subscribe(func(_ context.Context, evt Event) {
				if evt.Type == TypeRequestWithdrawn {
					withdrawn <- evt
				}
			})
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer sub.Unsubscribe()

			req, err := NewRequester(bus)
			if err != nil {
				t.Fatalf("requester: %v", err)
			}
			defer req.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			evt, _ := NewEvent(TypeSellRequest, "player-1", "req-7", nil)
			if _, err := req.Request(ctx, evt); !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected deadline exceeded, got %v", err)
			}

			select {
			case got := <-withdrawn:
				if got.UserID != "player-1" || got.RequestID != "req-7" {
					t.Fatalf("unexpected withdrawal %+v", got)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("no withdrawal published")
			}
		})
	}
}

func TestRequesterRequiresIdentity(t *testing.T) {
	req, err := NewRequester(NewMemoryBus())
	if err != nil {
		t.Fatalf("requester: %v", err)
	}
	evt, _ := NewEvent(TypePurchaseRequest, "", "req-1", nil)
	if _, err := req.Request(context.Background(), evt); err == nil {
		t.Fatalf("expected error for missing user id")
	}
}

func TestClosedBusRejectsPublish(t *testing.T) {
	bus := NewMemoryBus()
	_ = bus.Close()
	if err := bus.Publish(context.Background(), Event{Type: TypeVendorDeleted}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}
