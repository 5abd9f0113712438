// Package kvstore is the host key-value settings storage consumed by the
// ledger (module-mode wallets) and the settings API.
package kvstore

import "context"

// Store reads and writes opaque string values by key.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
