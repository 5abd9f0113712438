// Package approval holds purchase and sell requests suspended on a GM
// decision. Each pending approval resolves exactly once: by an explicit
// decision, by dismissal, by the waiter's context ending, or by shutdown.
// Everything other than an explicit approval counts as a decline.
package approval

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnknownApproval is returned when resolving an approval that is not pending.
var ErrUnknownApproval = errors.New("approval not pending")

// Kind names the transaction waiting on a decision.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSell     Kind = "sell"
)

// Line is one item shown to the approver.
type Line struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Prompt is what the approver sees. DefaultPercentage is set for sells.
type Prompt struct {
	ID                string          `json:"id"`
	Kind              Kind            `json:"kind"`
	RequestID         string          `json:"requestId"`
	RequesterID       string          `json:"requesterId"`
	ActorID           string          `json:"actorId"`
	VendorID          string          `json:"vendorId,omitempty"`
	Items             []Line          `json:"items"`
	Total             decimal.Decimal `json:"total"`
	DefaultPercentage *int            `json:"defaultPercentage,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Decision is the approver's answer. Percentage only matters for sells.
type Decision struct {
	Approved   bool `json:"approved"`
	Percentage *int `json:"percentage,omitempty"`
}

type pending struct {
	prompt Prompt
	once   sync.Once
	done   chan Decision
}

func (p *pending) resolve(d Decision) {
	p.once.Do(func() {
		p.done <- d
	})
}

// Registry tracks pending approvals by id.
type Registry struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	closed  bool
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger, pending: make(map[string]*pending)}
}

// Await registers prompt and blocks until it is resolved. Only the calling
// request is suspended; other requests keep flowing.
func (r *Registry) Await(ctx context.Context, prompt Prompt) Decision {
	if prompt.ID == "" {
		prompt.ID = uuid.NewString()
	}
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now().UTC()
	}
	p := &pending{prompt: prompt, done: make(chan Decision, 1)}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Decision{}
	}
	r.pending[prompt.ID] = p
	r.mu.Unlock()

	r.logger.Info("approval requested",
		slog.String("approval_id", prompt.ID),
		slog.String("kind", string(prompt.Kind)),
		slog.String("request_id", prompt.RequestID),
		slog.String("total", prompt.Total.String()),
	)

	select {
	case d := <-p.done:
		return normalize(prompt, d)
	case <-ctx.Done():
		r.complete(prompt.ID, Decision{})
		return normalize(prompt, <-p.done)
	}
}

// Resolve records an explicit decision.
func (r *Registry) Resolve(id string, d Decision) error {
	if !r.complete(id, d) {
		return ErrUnknownApproval
	}
	r.logger.Info("approval resolved", slog.String("approval_id", id), slog.Bool("approved", d.Approved))
	return nil
}

// Dismiss closes a prompt without a choice, which declines it.
func (r *Registry) Dismiss(id string) error {
	if !r.complete(id, Decision{}) {
		return ErrUnknownApproval
	}
	r.logger.Info("approval dismissed", slog.String("approval_id", id))
	return nil
}

// Pending lists open prompts, oldest first.
func (r *Registry) Pending() []Prompt {
	r.mu.Lock()
	out := make([]Prompt, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p.prompt)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close declines every pending approval and refuses new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	open := r.pending
	r.pending = make(map[string]*pending)
	r.mu.Unlock()

	for _, p := range open {
		p.resolve(Decision{})
	}
}

func (r *Registry) complete(id string, d Decision) bool {
	r.mu.Lock()
	p, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	p.resolve(d)
	return true
}

func normalize(prompt Prompt, d Decision) Decision {
	if !d.Approved {
		return Decision{}
	}
	if prompt.Kind != KindSell {
		return Decision{Approved: true}
	}
	pct := 100
	if prompt.DefaultPercentage != nil {
		pct = *prompt.DefaultPercentage
	}
	if d.Percentage != nil {
		pct = *d.Percentage
	}
	pct = ClampPercentage(pct)
	return Decision{Approved: true, Percentage: &pct}
}

// ClampPercentage bounds a payout percentage to 0..100.
func ClampPercentage(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
