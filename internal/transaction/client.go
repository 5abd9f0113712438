package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gm-shop/gm_shop/internal/channel"
)

// Client is how a requester submits transactions. On the authority it runs
// them in place; elsewhere it forwards them over the channel and waits for
// the result event addressed to the requester.
type Client struct {
	manager   *Manager
	requester *channel.Requester
	timeout   time.Duration
}

// NewLocalClient builds a client for the authority process.
func NewLocalClient(manager *Manager) *Client {
	return &Client{manager: manager}
}

// NewRemoteClient builds a client that forwards to the authority.
func NewRemoteClient(requester *channel.Requester, timeout time.Duration) *Client {
	return &Client{requester: requester, timeout: timeout}
}

// Purchase submits a purchase request.
func (c *Client) Purchase(ctx context.Context, req Request) (Result, error) {
	if c.manager != nil {
		return c.manager.Purchase(ctx, req)
	}
	return c.forward(ctx, channel.TypePurchaseRequest, req)
}

// Sell submits a sell request.
func (c *Client) Sell(ctx context.Context, req Request) (Result, error) {
	if c.manager != nil {
		return c.manager.Sell(ctx, req)
	}
	return c.forward(ctx, channel.TypeSellRequest, req)
}

func (c *Client) forward(ctx context.Context, eventType string, req Request) (Result, error) {
	if c.requester == nil {
		return Result{}, ErrNotAuthority
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequesterID == "" {
		return Result{}, fmt.Errorf("%w: requester id is required", ErrInvalidRequest)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	evt, err := channel.NewEvent(eventType, req.RequesterID, req.ID, req)
	if err != nil {
		return Result{}, err
	}
	reply, err := c.requester.Request(ctx, evt)
	if err != nil {
		return Result{}, fmt.Errorf("waiting for %s result: %w", eventType, err)
	}
	var res Result
	if err := reply.Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode %s result: %w", eventType, err)
	}
	return res, nil
}
