package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/vendor"
)

// Purchase buys items from a vendor for req.ActorID. Business failures are
// reported in the Result; the error is only set when the request is
// rejected outright (malformed or already consumed), in which case no
// result event is sent.
func (m *Manager) Purchase(ctx context.Context, req Request) (Result, error) {
	if err := m.admit(&req); err != nil {
		return Result{}, err
	}
	res := m.guard(req, KindPurchase, func() Result { return m.purchase(ctx, req) })
	m.notify(ctx, req, res)
	return res, nil
}

func (m *Manager) purchase(ctx context.Context, req Request) Result {
	m.transition(req, KindPurchase, StateReceived)

	v, err := m.catalog.Get(ctx, req.VendorID)
	if err != nil {
		if errors.Is(err, vendor.ErrVendorNotFound) {
			return m.fail(req, KindPurchase, "Vendor not found.", nil)
		}
		return m.fail(req, KindPurchase, "Could not load the vendor.", nil)
	}
	if !v.Active {
		return m.fail(req, KindPurchase, fmt.Sprintf("%s is not trading right now.", v.Name), nil)
	}

	lines, quoted := validatePurchase(v, req.Items)
	valid := countPending(lines)
	if valid == 0 {
		return m.fail(req, KindPurchase, "None of the requested items are available.", lines)
	}
	total := quoted.Ceil()
	m.transition(req, KindPurchase, StateValidated)

	balance, err := m.wallet.Balance(ctx, req.ActorID)
	if err != nil {
		m.logger.Warn("balance read failed", slog.String("request_id", req.ID), slog.Any("error", err))
		return m.fail(req, KindPurchase, "Could not read the buyer's balance.", lines)
	}
	if balance.LessThan(total) {
		return m.fail(req, KindPurchase, fmt.Sprintf("Insufficient funds: %s needed, %s available.",
			m.wallet.Format(total), m.wallet.Format(balance)), lines)
	}

	if m.settings.Get().RequireGMApproval {
		m.transition(req, KindPurchase, StateAwaitingApproval)
		decision := m.approver.Await(ctx, approval.Prompt{
			Kind:        approval.KindPurchase,
			RequestID:   req.ID,
			RequesterID: req.RequesterID,
			ActorID:     req.ActorID,
			VendorID:    req.VendorID,
			Items:       approvalLines(lines),
			Total:       total,
		})
		if !decision.Approved {
			return m.fail(req, KindPurchase, "The GM declined the purchase.", lines)
		}
	}

	if ctx.Err() != nil {
		return m.fail(req, KindPurchase, "The purchase was withdrawn before it was applied.", lines)
	}
	// Once applying starts the request runs to completion even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)
	m.transition(req, KindPurchase, StateApplying)
	processed, cost := m.applyPurchase(ctx, req, lines)
	if processed == 0 {
		return m.fail(req, KindPurchase, "No items could be added to the inventory.", lines)
	}

	cost = cost.Ceil()
	newBalance, err := m.wallet.AddBalance(ctx, req.ActorID, cost.Neg())
	if err != nil {
		m.settlementFailed(req, KindPurchase, cost, err)
		return m.fail(req, KindPurchase, "Payment failed after the items were delivered. Please contact the GM.", lines)
	}

	m.transition(req, KindPurchase, StateCompleted)
	m.logger.Info("purchase completed",
		slog.String("request_id", req.ID),
		slog.String("actor_id", req.ActorID),
		slog.String("vendor_id", req.VendorID),
		slog.Int("items", processed),
		slog.String("cost", cost.String()),
	)
	return Result{
		RequestID: req.ID,
		Kind:      KindPurchase,
		Success:   true,
		State:     StateCompleted,
		Message:   fmt.Sprintf("Purchased %d item(s) for %s.", processed, m.wallet.Format(cost)),
		Data:      Data{ItemsProcessed: processed, Cost: cost, NewBalance: newBalance},
		Lines:     lines,
	}
}

// validatePurchase resolves every requested line against the vendor and
// returns the outcomes plus the unrounded quoted total of the valid ones.
func validatePurchase(v vendor.Vendor, items []Line) ([]LineOutcome, decimal.Decimal) {
	lines := make([]LineOutcome, 0, len(items))
	total := decimal.Zero
	for _, in := range items {
		qty, coerced := in.Quantity.coerce()
		out := LineOutcome{ID: in.ID, Name: in.Name, Quantity: qty, Coerced: coerced}

		it, ok := v.Item(in.ID)
		switch {
		case !ok:
			out.Status, out.Reason = LineInvalid, "item is no longer sold here"
		case !it.InStock(qty):
			out.Status, out.Reason = LineInvalid, fmt.Sprintf("only %d in stock", *it.Quantity)
		default:
			out.Name, out.Price, out.Status = it.Name, it.Price, LinePending
			total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
		lines = append(lines, out)
	}
	return lines, total
}

// applyPurchase adds each pending line to the buyer's inventory and takes it
// out of stock. A line that fails is skipped and left out of the totals.
// The vendor lock makes the stock re-check and decrement atomic with
// respect to other purchases from the same vendor.
func (m *Manager) applyPurchase(ctx context.Context, req Request, lines []LineOutcome) (int, decimal.Decimal) {
	unlock := m.lockVendor(req.VendorID)
	defer unlock()

	processed := 0
	cost := decimal.Zero

	v, err := m.catalog.Get(ctx, req.VendorID)
	if err != nil {
		for i := range lines {
			if lines[i].Status == LinePending {
				lines[i].Status, lines[i].Reason = LineSkipped, "vendor unavailable"
			}
		}
		return 0, cost
	}

	for i := range lines {
		l := &lines[i]
		if l.Status != LinePending {
			continue
		}
		it, ok := v.Item(l.ID)
		if !ok || !it.InStock(l.Quantity) {
			l.Status, l.Reason = LineSkipped, "sold out before the purchase was applied"
			continue
		}

		if _, err := m.inventory.Add(ctx, req.ActorID, it.Ref(), l.Quantity); err != nil {
			m.logger.Warn("inventory add failed",
				slog.String("request_id", req.ID),
				slog.String("item_id", l.ID),
				slog.Any("error", err),
			)
			l.Status, l.Reason = LineSkipped, "could not be added to the inventory"
			continue
		}

		if !it.Unlimited() {
			updated, err := m.catalog.UpdateItemQuantity(ctx, req.VendorID, it.ID, -l.Quantity)
			if err != nil {
				m.logger.Error("stock decrement failed",
					slog.String("request_id", req.ID),
					slog.String("item_id", it.ID),
					slog.Any("error", err),
				)
			} else {
				v = updated
			}
		}

		l.Status = LineApplied
		processed += l.Quantity
		cost = cost.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return processed, cost
}

func countPending(lines []LineOutcome) int {
	n := 0
	for _, l := range lines {
		if l.Status == LinePending {
			n++
		}
	}
	return n
}
