package cogs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tijara-apps/tijara/internal/platform/db"
)

// ErrNotFound indicates no record for (shop, orderID).
var ErrNotFound = errors.New("cogs: record not found")

const uniqueViolation = "23505"

// Repository is the persistence contract for OrderCOGS records.
type Repository interface {
	Get(ctx context.Context, shop, orderID string) (OrderCOGS, error)
	// CreateIfAbsent inserts the record with its items atomically. When a
	// concurrent writer won the (shop, order_id) slot, the existing record
	// is returned with created=false.
	CreateIfAbsent(ctx context.Context, record OrderCOGS) (OrderCOGS, bool, error)
	ListWindow(ctx context.Context, shop string, since, until time.Time) ([]OrderCOGS, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, shop, orderID string) (OrderCOGS, error) {
	const query = `
		SELECT id, shop, order_id, order_name, total_revenue, total_cost, profit, created_at
		FROM order_cogs
		WHERE shop = $1 AND order_id = $2`

	var record OrderCOGS
	err := r.pool.QueryRow(ctx, query, shop, orderID).Scan(
		&record.ID, &record.Shop, &record.OrderID, &record.OrderName,
		&record.TotalRevenue, &record.TotalCost, &record.Profit, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OrderCOGS{}, ErrNotFound
		}
		return OrderCOGS{}, err
	}

	items, err := r.loadItems(ctx, record.ID)
	if err != nil {
		return OrderCOGS{}, err
	}
	record.Items = items
	return record, nil
}

func (r *repository) CreateIfAbsent(ctx context.Context, record OrderCOGS) (OrderCOGS, bool, error) {
	created := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
			INSERT INTO order_cogs (shop, order_id, order_name, total_revenue, total_cost, profit, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (shop, order_id) DO NOTHING
			RETURNING id`

		err := tx.QueryRow(ctx, insert,
			record.Shop, record.OrderID, record.OrderName,
			record.TotalRevenue, record.TotalCost, record.Profit, record.CreatedAt,
		).Scan(&record.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
				// Another request already recorded this order.
				return nil
			}
			return err
		}

		for _, item := range record.Items {
			const insertItem = `
				INSERT INTO order_cogs_items
					(order_cogs_id, product_id, variant_id, title, quantity, unit_cost, price, total_cost, total_revenue, profit)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
			if _, err := tx.Exec(ctx, insertItem,
				record.ID, item.ProductID, item.VariantID, item.Title, item.Quantity,
				item.UnitCost, item.Price, item.TotalCost, item.TotalRevenue, item.Profit); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return OrderCOGS{}, false, err
	}
	if created {
		return record, true, nil
	}

	existing, err := r.Get(ctx, record.Shop, record.OrderID)
	if err != nil {
		return OrderCOGS{}, false, err
	}
	return existing, false, nil
}

func (r *repository) ListWindow(ctx context.Context, shop string, since, until time.Time) ([]OrderCOGS, error) {
	const query = `
		SELECT id, shop, order_id, order_name, total_revenue, total_cost, profit, created_at
		FROM order_cogs
		WHERE shop = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, shop, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OrderCOGS
	for rows.Next() {
		var record OrderCOGS
		if err := rows.Scan(&record.ID, &record.Shop, &record.OrderID, &record.OrderName,
			&record.TotalRevenue, &record.TotalCost, &record.Profit, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		items, err := r.loadItems(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Items = items
	}
	return records, nil
}

func (r *repository) loadItems(ctx context.Context, recordID int64) ([]OrderItem, error) {
	const query = `
		SELECT product_id, variant_id, title, quantity, unit_cost, price, total_cost, total_revenue, profit
		FROM order_cogs_items
		WHERE order_cogs_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Title, &item.Quantity,
			&item.UnitCost, &item.Price, &item.TotalCost, &item.TotalRevenue, &item.Profit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
