package warehouses

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockmaster/stockmaster/internal/masterdata/shared"
	"github.com/stockmaster/stockmaster/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	CreateWithDefaultLocation(ctx context.Context, warehouse Warehouse, locationCode string) (Warehouse, error)
	Update(ctx context.Context, id int64, warehouse Warehouse) error
	Delete(ctx context.Context, id int64) error

	ListLocations(ctx context.Context, warehouseID int64) ([]Location, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	CreateLocation(ctx context.Context, location Location) (Location, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	query := `SELECT id, code, name, address, is_active, created_at, updated_at FROM warehouses WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM warehouses WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	where := ""
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += where + ` ORDER BY code ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Warehouse
	for rows.Next() {
		var wh Warehouse
		if err := rows.Scan(&wh.ID, &wh.Code, &wh.Name, &wh.Address, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, wh)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	var wh Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, address, is_active, created_at, updated_at FROM warehouses WHERE id = $1`, id).
		Scan(&wh.ID, &wh.Code, &wh.Name, &wh.Address, &wh.IsActive, &wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, shared.ErrNotFound
		}
		return Warehouse{}, err
	}
	return wh, nil
}

// CreateWithDefaultLocation inserts the warehouse and its default location in
// one transaction so a warehouse never exists without a place to put stock.
func (r *repository) CreateWithDefaultLocation(ctx context.Context, warehouse Warehouse, locationCode string) (Warehouse, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO warehouses (code, name, address, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			warehouse.Code, warehouse.Name, warehouse.Address, warehouse.IsActive, now, now).Scan(&warehouse.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO locations (warehouse_id, code, name, is_default, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, $4, $5)`, warehouse.ID, locationCode, "Default", now, now)
		return err
	})
	if err != nil {
		return Warehouse{}, mapPgErr(err)
	}
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now
	return warehouse, nil
}

func (r *repository) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	tag, err := r.pool.Exec(ctx, `UPDATE warehouses SET code = $1, name = $2, address = $3, is_active = $4, updated_at = $5 WHERE id = $6`,
		warehouse.Code, warehouse.Name, warehouse.Address, warehouse.IsActive, time.Now(), id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a warehouse. Locations holding stock records block the
// delete through FK RESTRICT.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListLocations(ctx context.Context, warehouseID int64) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, warehouse_id, code, name, is_default, created_at, updated_at
FROM locations WHERE warehouse_id = $1 ORDER BY code ASC`, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.WarehouseID, &loc.Code, &loc.Name, &loc.IsDefault, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, loc)
	}
	return items, rows.Err()
}

func (r *repository) GetLocation(ctx context.Context, id int64) (Location, error) {
	var loc Location
	err := r.pool.QueryRow(ctx, `SELECT id, warehouse_id, code, name, is_default, created_at, updated_at FROM locations WHERE id = $1`, id).
		Scan(&loc.ID, &loc.WarehouseID, &loc.Code, &loc.Name, &loc.IsDefault, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, shared.ErrNotFound
		}
		return Location{}, err
	}
	return loc, nil
}

func (r *repository) CreateLocation(ctx context.Context, location Location) (Location, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx, `INSERT INTO locations (warehouse_id, code, name, is_default, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		location.WarehouseID, location.Code, location.Name, location.IsDefault, now, now).Scan(&location.ID)
	if err != nil {
		return Location{}, mapPgErr(err)
	}
	location.CreatedAt = now
	location.UpdatedAt = now
	return location, nil
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return shared.ErrInUse
		}
	}
	return err
}
