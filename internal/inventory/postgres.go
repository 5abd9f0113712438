package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore keeps inventory lines in the inventory_items table. Amounts
// travel as text so numeric precision is preserved end to end.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds an inventory backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const itemColumns = `id, holder_id, uuid, name, count, price::text, weight::text`

// Add inserts or merges an item line keyed by (holder_id, uuid).
func (s *PostgresStore) Add(ctx context.Context, holderID string, ref ItemRef, qty int) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if strings.TrimSpace(ref.UUID) == "" {
		return Item{}, fmt.Errorf("add item: missing template uuid")
	}
	row := s.db.QueryRow(ctx, `INSERT INTO inventory_items (id, holder_id, uuid, name, count, price, weight)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)
        ON CONFLICT (holder_id, uuid) DO UPDATE SET count = inventory_items.count + EXCLUDED.count
        RETURNING `+itemColumns, uuid.New(), holderID, ref.UUID, ref.Name, qty, ref.Price.String(), ref.Weight.String())
	return scanItem(row)
}

// Get fetches one item line.
func (s *PostgresStore) Get(ctx context.Context, holderID, itemID string) (Item, error) {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return Item{}, ErrItemNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE holder_id = $1 AND id = $2`, holderID, id)
	return scanItem(row)
}

// Remove decrements an item line and deletes it once it reaches zero.
func (s *PostgresStore) Remove(ctx context.Context, holderID, itemID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	id, err := uuid.Parse(itemID)
	if err != nil {
		return 0, ErrItemNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var count int
	if err := tx.QueryRow(ctx, `SELECT count FROM inventory_items WHERE holder_id = $1 AND id = $2 FOR UPDATE`, holderID, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, err
	}
	if count < qty {
		return count, ErrInsufficientCount
	}

	remaining := count - qty
	if remaining == 0 {
		_, err = tx.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	} else {
		_, err = tx.Exec(ctx, `UPDATE inventory_items SET count = $1 WHERE id = $2`, remaining, id)
	}
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

// List returns the holder's non-coin items.
func (s *PostgresStore) List(ctx context.Context, holderID string) ([]Item, error) {
	rows, err := s.db.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items
        WHERE holder_id = $1 AND uuid NOT LIKE 'coin:%' ORDER BY name, id`, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CoinCounts returns coin item counts keyed by denomination name.
func (s *PostgresStore) CoinCounts(ctx context.Context, holderID string) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT uuid, count FROM inventory_items WHERE holder_id = $1 AND uuid LIKE 'coin:%'`, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var ref string
		var count int64
		if err := rows.Scan(&ref, &count); err != nil {
			return nil, err
		}
		counts[strings.TrimPrefix(ref, coinPrefix)] = count
	}
	return counts, rows.Err()
}

// SetCoinCount upserts a coin line with an absolute count.
func (s *PostgresStore) SetCoinCount(ctx context.Context, holderID string, coin ItemRef, count int64) error {
	if count < 0 {
		return ErrInvalidQuantity
	}
	_, err := s.db.Exec(ctx, `INSERT INTO inventory_items (id, holder_id, uuid, name, count, price, weight)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric)
        ON CONFLICT (holder_id, uuid) DO UPDATE SET count = EXCLUDED.count`,
		uuid.New(), holderID, coin.UUID, coin.Name, count, coin.Price.String(), coin.Weight.String())
	return err
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it     Item
		id     uuid.UUID
		price  string
		weight string
	)
	if err := row.Scan(&id, &it.HolderID, &it.UUID, &it.Name, &it.Count, &price, &weight); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	var err error
	if it.Price, err = decimal.NewFromString(price); err != nil {
		return Item{}, fmt.Errorf("item %s price: %w", id, err)
	}
	if it.Weight, err = decimal.NewFromString(weight); err != nil {
		return Item{}, fmt.Errorf("item %s weight: %w", id, err)
	}
	it.ID = id.String()
	return it, nil
}
