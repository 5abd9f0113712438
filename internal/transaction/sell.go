package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/approval"
	"github.com/gm-shop/gm_shop/internal/inventory"
	"github.com/gm-shop/gm_shop/internal/ledger"
)

var (
	hundred   = decimal.NewFromInt(100)
	minPayout = decimal.NewFromInt(1)
)

// Sell removes items from req.ActorID's inventory and pays out a
// percentage of their value. Errors follow the same contract as Purchase.
func (m *Manager) Sell(ctx context.Context, req Request) (Result, error) {
	if err := m.admit(&req); err != nil {
		return Result{}, err
	}
	res := m.guard(req, KindSell, func() Result { return m.sell(ctx, req) })
	m.notify(ctx, req, res)
	return res, nil
}

func (m *Manager) sell(ctx context.Context, req Request) Result {
	m.transition(req, KindSell, StateReceived)

	lines, value := m.validateSell(ctx, req)
	if countPending(lines) == 0 {
		return m.fail(req, KindSell, "None of the items can be sold.", lines)
	}
	m.transition(req, KindSell, StateValidated)

	shop := m.settings.Get()
	pct := approval.ClampPercentage(shop.AutoSellPercentage)
	if shop.RequireGMApproval {
		m.transition(req, KindSell, StateAwaitingApproval)
		decision := m.approver.Await(ctx, approval.Prompt{
			Kind:              approval.KindSell,
			RequestID:         req.ID,
			RequesterID:       req.RequesterID,
			ActorID:           req.ActorID,
			Items:             approvalLines(lines),
			Total:             value,
			DefaultPercentage: &pct,
		})
		if !decision.Approved {
			return m.fail(req, KindSell, "The GM declined the sale.", lines)
		}
		if decision.Percentage != nil {
			pct = *decision.Percentage
		}
	}

	characterMode := m.wallet.Mode() == ledger.ModeCharacter
	if characterMode && payout(value, pct).LessThan(minPayout) {
		return m.fail(req, KindSell, fmt.Sprintf("The sale is worth less than %s and was refused.", m.wallet.Format(minPayout)), lines)
	}

	if ctx.Err() != nil {
		return m.fail(req, KindSell, "The sale was withdrawn before it was applied.", lines)
	}
	ctx = context.WithoutCancel(ctx)
	m.transition(req, KindSell, StateApplying)
	processed, sold := m.applySell(ctx, req, lines)
	if processed == 0 {
		return m.fail(req, KindSell, "No items could be removed from the inventory.", lines)
	}

	amount := payout(sold, pct)
	if characterMode {
		// Skipped removals can shrink the payout below the minimum.
		if amount.LessThan(minPayout) {
			m.restoreSold(ctx, req, lines)
			return m.fail(req, KindSell, fmt.Sprintf("The sale is worth less than %s and was refused.", m.wallet.Format(minPayout)), lines)
		}
		amount = amount.Ceil()
	}
	newBalance, err := m.wallet.AddBalance(ctx, req.ActorID, amount)
	if err != nil {
		m.settlementFailed(req, KindSell, amount, err)
		return m.fail(req, KindSell, "Payment failed after the items were removed. Please contact the GM.", lines)
	}

	m.transition(req, KindSell, StateCompleted)
	m.logger.Info("sale completed",
		slog.String("request_id", req.ID),
		slog.String("actor_id", req.ActorID),
		slog.Int("items", processed),
		slog.Int("percentage", pct),
		slog.String("payout", amount.String()),
	)
	return Result{
		RequestID: req.ID,
		Kind:      KindSell,
		Success:   true,
		State:     StateCompleted,
		Message:   fmt.Sprintf("Sold %d item(s) for %s.", processed, m.wallet.Format(amount)),
		Data:      Data{ItemsProcessed: processed, Cost: amount, NewBalance: newBalance},
		Lines:     lines,
	}
}

func payout(value decimal.Decimal, pct int) decimal.Decimal {
	return value.Mul(decimal.NewFromInt(int64(pct))).Div(hundred)
}

// validateSell prices every line from the seller's own inventory.
func (m *Manager) validateSell(ctx context.Context, req Request) ([]LineOutcome, decimal.Decimal) {
	lines := make([]LineOutcome, 0, len(req.Items))
	total := decimal.Zero
	for _, in := range req.Items {
		qty, coerced := in.Quantity.coerce()
		out := LineOutcome{ID: in.ID, Name: in.Name, Quantity: qty, Coerced: coerced}

		item, err := m.inventory.Get(ctx, req.ActorID, in.ID)
		switch {
		case errors.Is(err, inventory.ErrItemNotFound):
			out.Status, out.Reason = LineInvalid, "item is not in the inventory"
		case err != nil:
			out.Status, out.Reason = LineInvalid, "inventory unavailable"
		case inventory.IsCoin(item.UUID):
			out.Status, out.Reason = LineInvalid, "coins cannot be sold"
		case item.Count < qty:
			out.Status, out.Reason = LineInvalid, fmt.Sprintf("only %d held", item.Count)
		default:
			out.Name, out.Price, out.Status = item.Name, item.Price, LinePending
			out.held = inventory.ItemRef{UUID: item.UUID, Name: item.Name, Price: item.Price, Weight: item.Weight}
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
		lines = append(lines, out)
	}
	return lines, total
}

// applySell removes each pending line. Failed removals are skipped and
// left out of the sold value.
func (m *Manager) applySell(ctx context.Context, req Request, lines []LineOutcome) (int, decimal.Decimal) {
	processed := 0
	sold := decimal.Zero
	for i := range lines {
		l := &lines[i]
		if l.Status != LinePending {
			continue
		}
		if _, err := m.inventory.Remove(ctx, req.ActorID, l.ID, l.Quantity); err != nil {
			m.logger.Warn("inventory remove failed",
				slog.String("request_id", req.ID),
				slog.String("item_id", l.ID),
				slog.Any("error", err),
			)
			l.Status, l.Reason = LineSkipped, "could not be removed from the inventory"
			continue
		}
		l.Status = LineApplied
		processed += l.Quantity
		sold = sold.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return processed, sold
}

// restoreSold returns the units of every applied line to the seller.
func (m *Manager) restoreSold(ctx context.Context, req Request, lines []LineOutcome) {
	for i := range lines {
		l := &lines[i]
		if l.Status != LineApplied {
			continue
		}
		if _, err := m.inventory.Add(ctx, req.ActorID, l.held, l.Quantity); err != nil {
			m.logger.Error("could not return unsold items",
				slog.String("request_id", req.ID),
				slog.String("item_id", l.ID),
				slog.Int("quantity", l.Quantity),
				slog.Any("error", err),
			)
			l.Status, l.Reason = LineSkipped, "removed but could not be returned"
			continue
		}
		l.Status, l.Reason = LineSkipped, "returned to the inventory"
	}
}
