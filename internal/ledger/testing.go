package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets a holder balance and fails the test on error.
func SeedBalance(t testing.TB, l *Ledger, holderID string, amount int64) {
	t.Helper()
	if err := l.SetBalance(context.Background(), holderID, decimal.NewFromInt(amount)); err != nil {
		t.Fatalf("seed balance %s: %v", holderID, err)
	}
}
