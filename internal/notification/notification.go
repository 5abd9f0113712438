package notification

import (
	"context"
	"log/slog"

	"github.com/gm-shop/gm_shop/internal/channel"
)

// Message describes a notification payload. Kind is a channel event type;
// an empty Destination broadcasts to every participant.
type Message struct {
	Kind        string
	Destination string
	RequestID   string
	Payload     any
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It is used when no
// message channel is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "request_id", message.RequestID)
	return nil
}

// BusNotifier publishes notifications as channel events.
type BusNotifier struct {
	publisher channel.Publisher
	logger    *slog.Logger
}

// NewBusNotifier constructs a notifier on top of a channel publisher.
func NewBusNotifier(publisher channel.Publisher, logger *slog.Logger) *BusNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusNotifier{publisher: publisher, logger: logger}
}

// Send encodes the message into an event envelope and publishes it.
func (n *BusNotifier) Send(ctx context.Context, message Message) error {
	evt, err := channel.NewEvent(message.Kind, message.Destination, message.RequestID, message.Payload)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, evt); err != nil {
		n.logger.Warn("notification publish failed", "kind", message.Kind, "error", err)
		return err
	}
	n.logger.Debug("notification published", "kind", message.Kind, "destination", message.Destination)
	return nil
}
