// Package channel is the bidirectional message channel between requesters
// and the authority. Every message is an Event envelope; request events are
// acted on only by the authority and result events are filtered by user id.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event types carried on the channel.
const (
	TypeVendorUpdated     = "vendorUpdated"
	TypeVendorDeleted     = "vendorDeleted"
	TypeItemPurchased     = "itemPurchased"
	TypePurchaseRequest   = "playerPurchaseRequest"
	TypeSellRequest       = "playerSellRequest"
	TypeRequestWithdrawn  = "playerRequestWithdrawn"
	TypePurchaseCompleted = "purchaseCompleted"
	TypePurchaseFailed    = "purchaseFailed"
	TypeSellCompleted     = "sellCompleted"
	TypeSellFailed        = "sellFailed"
)

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Event is the envelope for every message on the channel.
type Event struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SentAt    time.Time       `json:"sentAt"`
}

// NewEvent encodes payload into an envelope.
func NewEvent(eventType, userID, requestID string, payload any) (Event, error) {
	evt := Event{Type: eventType, UserID: userID, RequestID: requestID, SentAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		evt.Payload = raw
	}
	return evt, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("event has no payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// IsResult reports whether the event answers a purchase or sell request.
func (e Event) IsResult() bool {
	switch e.Type {
	case TypePurchaseCompleted, TypePurchaseFailed, TypeSellCompleted, TypeSellFailed:
		return true
	}
	return false
}

// Handler receives delivered events.
type Handler func(ctx context.Context, evt Event)

// Subscription is an active handler registration.
type Subscription interface {
	Unsubscribe() error
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Bus publishes events to every subscriber.
type Bus interface {
	Publisher
	Subscribe(handler Handler) (Subscription, error)
	Close() error
}
