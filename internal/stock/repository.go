package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization and deadlock failures surface as ErrConcurrentUpdateConflict
// so the caller can retry the whole unit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return mapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func mapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConcurrentUpdateConflict, pgErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReferencedEntityMissing, pgErr.ConstraintName)
		}
	}
	return err
}

const documentColumns = `id, doc_type, status, reference, contact_name, delivery_address,
source_location_id, destination_location_id, scheduled_date, validated_at, created_by, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.DocType, &doc.Status, &doc.Reference, &doc.ContactName, &doc.DeliveryAddress,
		&doc.SourceLocationID, &doc.DestinationLocationID, &doc.ScheduledDate, &doc.ValidatedAt,
		&doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	return doc, err
}

// GetDocument loads one document with its lines.
func (r *Repository) GetDocument(ctx context.Context, id int64) (Document, error) {
	if r == nil {
		return Document{}, errors.New("stock repository not initialised")
	}
	doc, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM stock_documents WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	doc.Lines, err = r.linesFor(ctx, r.pool, id)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) linesFor(ctx context.Context, q queryer, docID int64) ([]MoveLine, error) {
	rows, err := q.Query(ctx, `SELECT id, document_id, product_id, quantity FROM stock_move_lines WHERE document_id=$1 ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []MoveLine{}
	for rows.Next() {
		var line MoveLine
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListDocuments lists document headers matching the filter, newest first.
func (r *Repository) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	query := `SELECT ` + documentColumns + ` FROM stock_documents`
	conditions := []string{}
	args := []any{}
	argCount := 1
	if filter.DocType != "" {
		conditions = append(conditions, "doc_type=$"+strconv.Itoa(argCount))
		args = append(args, string(filter.DocType))
		argCount++
	}
	if filter.Status != "" {
		conditions = append(conditions, "status=$"+strconv.Itoa(argCount))
		args = append(args, string(filter.Status))
		argCount++
	}
	if filter.WarehouseID != 0 {
		conditions = append(conditions, `(source_location_id IN (SELECT id FROM locations WHERE warehouse_id=$`+strconv.Itoa(argCount)+`)
OR destination_location_id IN (SELECT id FROM locations WHERE warehouse_id=$`+strconv.Itoa(argCount)+`))`)
		args = append(args, filter.WarehouseID)
		argCount++
	}
	if filter.CreatedBy != 0 {
		conditions = append(conditions, "created_by=$"+strconv.Itoa(argCount))
		args = append(args, filter.CreatedBy)
		argCount++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT $" + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	if filter.Offset > 0 {
		query += " OFFSET $" + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// AvailableQuantity reads the on-hand quantity for a product at a location.
// A missing quant row reads as zero.
func (r *Repository) AvailableQuantity(ctx context.Context, productID, locationID int64) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, errors.New("stock repository not initialised")
	}
	var qty decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM stock_quants WHERE product_id=$1 AND location_id=$2`, productID, locationID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return qty, nil
}

// ListQuants lists on-hand rows matching the filter.
func (r *Repository) ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	query := `SELECT q.id, q.product_id, q.location_id, q.quantity, q.updated_at FROM stock_quants q`
	conditions := []string{}
	args := []any{}
	argCount := 1
	if filter.WarehouseID != 0 {
		query += ` JOIN locations l ON l.id = q.location_id`
		conditions = append(conditions, "l.warehouse_id=$"+strconv.Itoa(argCount))
		args = append(args, filter.WarehouseID)
		argCount++
	}
	if filter.ProductID != 0 {
		conditions = append(conditions, "q.product_id=$"+strconv.Itoa(argCount))
		args = append(args, filter.ProductID)
		argCount++
	}
	if filter.LocationID != 0 {
		conditions = append(conditions, "q.location_id=$"+strconv.Itoa(argCount))
		args = append(args, filter.LocationID)
		argCount++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " ORDER BY q.product_id, q.location_id LIMIT $" + strconv.Itoa(argCount)
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	quants := []Quant{}
	for rows.Next() {
		var q Quant
		if err := rows.Scan(&q.ID, &q.ProductID, &q.LocationID, &q.Quantity, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quants = append(quants, q)
	}
	return quants, rows.Err()
}

// LedgerHistory queries the movement log joined with product and document
// context, newest first.
func (r *Repository) LedgerHistory(ctx context.Context, filter LedgerFilter) ([]LedgerView, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	query := `SELECT e.id, e.document_id, e.product_id, e.source_location_id, e.destination_location_id, e.quantity_delta, e.created_at,
p.sku, p.name, COALESCE(d.doc_type, ''), COALESCE(d.reference, ''), COALESCE(d.contact_name, '')
FROM stock_ledger_entries e
JOIN products p ON p.id = e.product_id
LEFT JOIN stock_documents d ON d.id = e.document_id`
	conditions := []string{}
	args := []any{}
	argCount := 1
	if filter.ProductID != 0 {
		conditions = append(conditions, "e.product_id=$"+strconv.Itoa(argCount))
		args = append(args, filter.ProductID)
		argCount++
	}
	if filter.LocationID != 0 {
		conditions = append(conditions, "(e.source_location_id=$"+strconv.Itoa(argCount)+" OR e.destination_location_id=$"+strconv.Itoa(argCount)+")")
		args = append(args, filter.LocationID)
		argCount++
	}
	if filter.DocType != "" {
		conditions = append(conditions, "d.doc_type=$"+strconv.Itoa(argCount))
		args = append(args, string(filter.DocType))
		argCount++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "e.created_at >= $"+strconv.Itoa(argCount))
		args = append(args, filter.From)
		argCount++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "e.created_at <= $"+strconv.Itoa(argCount))
		args = append(args, filter.To)
		argCount++
	}
	if filter.Reference != "" {
		conditions = append(conditions, "d.reference ILIKE $"+strconv.Itoa(argCount))
		args = append(args, "%"+filter.Reference+"%")
		argCount++
	}
	if filter.Contact != "" {
		conditions = append(conditions, "d.contact_name ILIKE $"+strconv.Itoa(argCount))
		args = append(args, "%"+filter.Contact+"%")
		argCount++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " ORDER BY e.id DESC LIMIT $" + strconv.Itoa(argCount)
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	views := []LedgerView{}
	for rows.Next() {
		var v LedgerView
		var docType string
		if err := rows.Scan(&v.Entry.ID, &v.Entry.DocumentID, &v.Entry.ProductID, &v.Entry.SourceLocationID,
			&v.Entry.DestinationLocationID, &v.Entry.QuantityDelta, &v.Entry.CreatedAt,
			&v.ProductSKU, &v.ProductName, &docType, &v.Reference, &v.ContactName); err != nil {
			return nil, err
		}
		v.DocType = DocType(docType)
		views = append(views, v)
	}
	return views, rows.Err()
}

// UpdateStatusIfOpen stores a status change only while the document is still
// in an open status. It reports whether a row changed.
func (r *Repository) UpdateStatusIfOpen(ctx context.Context, id int64, status Status) (bool, error) {
	if r == nil {
		return false, errors.New("stock repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE stock_documents SET status=$2, updated_at=NOW()
WHERE id=$1 AND status IN ('draft','waiting','ready')`, id, string(status))
	if err != nil {
		return false, mapPgErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteDocument removes a document; lines cascade, ledger entries keep their
// rows with document_id set NULL by the schema.
func (r *Repository) DeleteDocument(ctx context.Context, id int64) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM stock_documents WHERE id=$1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ListDueInternalTransfers returns ids of internal transfers in Ready whose
// scheduled date is on or before the given time.
func (r *Repository) ListDueInternalTransfers(ctx context.Context, due time.Time) ([]int64, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM stock_documents
WHERE doc_type='internal' AND status='ready' AND scheduled_date IS NOT NULL AND scheduled_date <= $1
ORDER BY scheduled_date, id`, due)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepository) InsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_documents
(doc_type, status, reference, contact_name, delivery_address, source_location_id, destination_location_id, scheduled_date, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		string(doc.DocType), string(doc.Status), doc.Reference, doc.ContactName, doc.DeliveryAddress,
		doc.SourceLocationID, doc.DestinationLocationID, doc.ScheduledDate, doc.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, docID int64, lines []MoveLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_move_lines (document_id, product_id, quantity)
VALUES ($1,$2,$3)`, docID, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, docID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM stock_move_lines WHERE document_id=$1`, docID)
	return err
}

func (r *txRepository) UpdateHeader(ctx context.Context, doc Document) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_documents
SET reference=$2, contact_name=$3, delivery_address=$4, source_location_id=$5, destination_location_id=$6, scheduled_date=$7, updated_at=NOW()
WHERE id=$1`,
		doc.ID, doc.Reference, doc.ContactName, doc.DeliveryAddress, doc.SourceLocationID, doc.DestinationLocationID, doc.ScheduledDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// GetDocumentForUpdate locks the document row for the validation transaction
// and loads its lines.
func (r *txRepository) GetDocumentForUpdate(ctx context.Context, id int64) (Document, error) {
	doc, err := scanDocument(r.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM stock_documents WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, document_id, product_id, quantity FROM stock_move_lines WHERE document_id=$1 ORDER BY id`, id)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line MoveLine
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ProductID, &line.Quantity); err != nil {
			return Document{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, rows.Err()
}

// AdjustQuant adds the delta to the quant row, creating it when absent, and
// returns the new quantity. The quantity may go negative.
func (r *txRepository) AdjustQuant(ctx context.Context, productID, locationID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_quants (product_id, location_id, quantity, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity = stock_quants.quantity + EXCLUDED.quantity, updated_at=NOW()
RETURNING quantity`, productID, locationID, delta).Scan(&qty)
	return qty, err
}

func (r *txRepository) AppendLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_ledger_entries
(document_id, product_id, source_location_id, destination_location_id, quantity_delta, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`,
		entry.DocumentID, entry.ProductID, entry.SourceLocationID, entry.DestinationLocationID, entry.QuantityDelta)
	return err
}

func (r *txRepository) MarkValidated(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_documents SET status='done', validated_at=$2, updated_at=NOW() WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
