// Package transaction runs purchase and sell requests on the authority:
// validation, the optional GM approval gate, per-item application against
// inventory and vendor stock, settlement on the actor's wallet, and the
// result event back to the requester.
package transaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/inventory"
)

var (
	// ErrDuplicateRequest is returned when a request id was already consumed.
	ErrDuplicateRequest = errors.New("request already processed")

	// ErrNotAuthority is returned when this process cannot execute or forward a request.
	ErrNotAuthority = errors.New("process is not the transaction authority")

	// ErrInvalidRequest is returned for a request without an actor or items.
	ErrInvalidRequest = errors.New("invalid transaction request")
)

// Kind distinguishes purchases from sells.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindSell     Kind = "sell"
)

// State is a request's position in the processing state machine.
type State string

const (
	StateReceived         State = "received"
	StateValidated        State = "validated"
	StateAwaitingApproval State = "awaiting_approval"
	StateApplying         State = "applying"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// Quantity is a requested unit count. Decoding is lenient: numbers and
// numeric strings are accepted and anything else decodes as zero, which
// the manager later coerces to one.
type Quantity int

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	text := strings.Trim(string(raw), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		*q = 0
		return nil
	}
	*q = Quantity(int(f))
	return nil
}

// coerce returns a positive quantity and whether the input had to change.
func (q Quantity) coerce() (int, bool) {
	if q < 1 {
		return 1, true
	}
	return int(q), false
}

// Line is one requested item. For purchases ID is the vendor item id; for
// sells it is the seller's inventory item id. Price, Name and UUID are
// informational; authoritative values come from the catalog or inventory.
type Line struct {
	ID       string          `json:"id"`
	Quantity Quantity        `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Name     string          `json:"name"`
	UUID     string          `json:"uuid"`
}

// Request is a purchase or sell intent. It is consumed exactly once.
type Request struct {
	ID          string `json:"requestId"`
	RequesterID string `json:"requesterId"`
	ActorID     string `json:"actorId"`
	VendorID    string `json:"vendorId,omitempty"`
	Items       []Line `json:"items"`
}

// Line outcome statuses.
const (
	LineApplied = "applied"
	LineInvalid = "invalid"
	LineSkipped = "skipped"
	LinePending = "pending"
)

// LineOutcome reports what happened to one requested line.
type LineOutcome struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Coerced  bool            `json:"coerced,omitempty"`
	Status   string          `json:"status"`
	Reason   string          `json:"reason,omitempty"`

	// held is the seller's item template, kept so a refused sale can put
	// removed units back.
	held inventory.ItemRef
}

// Data is the small payload sent with every result.
type Data struct {
	ItemsProcessed int             `json:"itemsProcessed"`
	Cost           decimal.Decimal `json:"cost"`
	NewBalance     decimal.Decimal `json:"newBalance"`
}

// Result is the single outcome of a request.
type Result struct {
	RequestID string        `json:"requestId"`
	Kind      Kind          `json:"kind"`
	Success   bool          `json:"success"`
	State     State         `json:"state"`
	Message   string        `json:"message"`
	Data      Data          `json:"data"`
	Lines     []LineOutcome `json:"lines,omitempty"`
}

func decodeRequest(payload json.RawMessage) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}
