package alerts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository evaluates low-stock thresholds against current quants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LowStock returns active products whose summed on-hand quantity is below
// their alert threshold. A nil warehouseID evaluates across all warehouses.
func (r *Repository) LowStock(ctx context.Context, warehouseID *int64) ([]LowStockItem, error) {
	if r == nil {
		return nil, errors.New("alerts repository not initialised")
	}
	query := `SELECT p.id, p.sku, p.name, p.low_stock_alert, COALESCE(SUM(q.quantity), 0) AS on_hand
FROM products p
LEFT JOIN stock_quants q ON q.product_id = p.id`
	args := []any{}
	if warehouseID != nil {
		query += ` AND q.location_id IN (SELECT id FROM locations WHERE warehouse_id = $1)`
		args = append(args, *warehouseID)
	}
	query += `
WHERE p.is_active AND p.low_stock_alert > 0
GROUP BY p.id, p.sku, p.name, p.low_stock_alert
HAVING COALESCE(SUM(q.quantity), 0) < p.low_stock_alert
ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LowStockItem{}
	for rows.Next() {
		var item LowStockItem
		if err := rows.Scan(&item.ProductID, &item.SKU, &item.Name, &item.Threshold, &item.OnHand); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
