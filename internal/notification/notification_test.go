package notification

import (
	"context"
	"testing"
	"time"

	"github.com/gm-shop/gm_shop/internal/channel"
	"github.com/gm-shop/gm_shop/internal/logging"
)

func TestBusNotifierPublishesEnvelope(t *testing.T) {
	bus := channel.NewMemoryBus()
	got := make(chan channel.Event, 1)
	if _, err := bus.Subscribe(func(_ context.Context, evt channel.Event) { got <- evt }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewBusNotifier(bus, logging.Discard())
	err := n.Send(context.Background(), Message{
		Kind:        channel.TypeSellCompleted,
		Destination: "player-1",
		RequestID:   "req-9",
		Payload:     map[string]int{"itemsProcessed": 2},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case evt := <-got:
		if evt.Type != channel.TypeSellCompleted || evt.UserID != "player-1" || evt.RequestID != "req-9" {
			t.Fatalf("unexpected envelope %+v", evt)
		}
		var payload map[string]int
		if err := evt.Decode(&payload); err != nil || payload["itemsProcessed"] != 2 {
			t.Fatalf("unexpected payload %v err=%v", payload, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: channel.TypeVendorUpdated}); err != nil {
		t.Fatalf("nil notifier should be a no-op: %v", err)
	}
}
