package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rsaleh/gearroom/internal/metrics"
	"github.com/rsaleh/gearroom/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so the ledger primitives can
// run standalone or inside a larger storage transaction (checkout, return,
// deletion). Multi-step flows must use the *Tx variants inside one
// transaction; the read and the write of an availability mutation must never
// be split across transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateEquipment creates an equipment item with all units available.
func CreateEquipment(ctx context.Context, db *sql.DB, name, category string, totalQty int) (*model.Equipment, error) {
	if totalQty < 0 {
		return nil, fmt.Errorf("%w: total quantity must not be negative", ErrInvalidQuantity)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO equipment (name, category, total_qty, available_qty) VALUES (?, ?, ?, ?)`,
		name, category, totalQty, totalQty,
	)
	if err != nil {
		return nil, fmt.Errorf("creating equipment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting equipment id: %w", err)
	}

	return GetEquipment(ctx, db, id)
}

// GetEquipment returns an equipment item by ID, or ErrNotFound.
func GetEquipment(ctx context.Context, db *sql.DB, id int64) (*model.Equipment, error) {
	return getEquipment(ctx, db, id)
}

func getEquipment(ctx context.Context, q dbtx, id int64) (*model.Equipment, error) {
	e := &model.Equipment{}
	var category, imageMime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, name, category, total_qty, available_qty, image_mime, created_at, updated_at, deleted_at
		 FROM equipment WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &category, &e.TotalQty, &e.AvailableQty, &imageMime,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("equipment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting equipment: %w", err)
	}
	e.Category = category.String
	e.ImageMime = imageMime.String
	return e, nil
}

// ListEquipment returns all non-deleted equipment, optionally filtered by
// category.
func ListEquipment(ctx context.Context, db *sql.DB, category string) ([]model.Equipment, error) {
	query := `SELECT id, name, category, total_qty, available_qty, image_mime, created_at, updated_at, deleted_at
	          FROM equipment WHERE deleted_at IS NULL`
	var args []any

	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		var e model.Equipment
		var cat, imageMime sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &cat, &e.TotalQty, &e.AvailableQty, &imageMime,
			&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		e.Category = cat.String
		e.ImageMime = imageMime.String
		items = append(items, e)
	}
	return items, rows.Err()
}

// UpdateEquipment updates an equipment item's metadata and capacity.
// A change to total_qty shifts available_qty by the same delta (adding units
// makes them loanable, removing units takes them from the loanable pool
// first), clamped to the [0, total_qty] invariant.
func UpdateEquipment(ctx context.Context, db *sql.DB, id int64, name, category string, totalQty int) error {
	if totalQty < 0 {
		return fmt.Errorf("%w: total quantity must not be negative", ErrInvalidQuantity)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var curTotal, curAvailable int
	err = tx.QueryRowContext(ctx,
		`SELECT total_qty, available_qty FROM equipment WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&curTotal, &curAvailable)
	if err == sql.ErrNoRows {
		return fmt.Errorf("equipment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking equipment: %w", err)
	}

	available := clamp(curAvailable+(totalQty-curTotal), 0, totalQty)

	_, err = tx.ExecContext(ctx,
		`UPDATE equipment SET name = ?, category = ?, total_qty = ?, available_qty = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		name, category, totalQty, available, id,
	)
	if err != nil {
		return fmt.Errorf("updating equipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing equipment update: %w", err)
	}
	return nil
}

// DeleteEquipment soft-deletes an equipment item. Equipment that is still out
// on an open transaction cannot be deleted.
func DeleteEquipment(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking equipment: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("equipment %d: %w", id, ErrNotFound)
	}

	var outstanding int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 WHERE ti.equipment_id = ? AND t.status = ? AND ti.settled_at IS NULL`,
		id, model.StatusOpen,
	).Scan(&outstanding)
	if err != nil {
		return fmt.Errorf("checking outstanding checkouts: %w", err)
	}
	if outstanding > 0 {
		return fmt.Errorf("equipment %d is out on %d open checkout line(s): %w",
			id, outstanding, ErrNotAllSettled)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE equipment SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting equipment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing equipment deletion: %w", err)
	}
	return nil
}

// UpdateEquipmentImage stores the equipment photo.
func UpdateEquipmentImage(ctx context.Context, db *sql.DB, id int64, data []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE equipment SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("updating equipment image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("equipment %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetEquipmentImage returns the stored photo and its MIME type.
func GetEquipmentImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM equipment WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows || (err == nil && len(data) == 0) {
		return nil, "", fmt.Errorf("equipment %d image: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting equipment image: %w", err)
	}
	return data, mime.String, nil
}

// DecrementAvailable atomically reduces an equipment item's available
// quantity, failing with ErrInsufficientStock if qty exceeds what is
// available.
func DecrementAvailable(ctx context.Context, db *sql.DB, equipmentID int64, qty int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := decrementAvailable(ctx, tx, equipmentID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing decrement: %w", err)
	}
	return nil
}

// IncrementAvailable atomically raises an equipment item's available
// quantity, clamped so it never exceeds total_qty. A clamp is logged and
// counted: it means some flow tried to restock more than was ever out, which
// is a reconciliation signal, not a normal event.
func IncrementAvailable(ctx context.Context, db *sql.DB, equipmentID int64, qty int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := incrementAvailable(ctx, tx, equipmentID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing increment: %w", err)
	}
	return nil
}

// SetAvailable overwrites an equipment item's available quantity, clamped to
// [0, total_qty]. Reserved for the reconciliation engine.
func SetAvailable(ctx context.Context, db *sql.DB, equipmentID int64, qty int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setAvailable(ctx, tx, equipmentID, qty); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing availability overwrite: %w", err)
	}
	return nil
}

func decrementAvailable(ctx context.Context, q dbtx, equipmentID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrement must be positive, got %d", ErrInvalidQuantity, qty)
	}

	var available int
	err := q.QueryRowContext(ctx,
		`SELECT available_qty FROM equipment WHERE id = ? AND deleted_at IS NULL`,
		equipmentID,
	).Scan(&available)
	if err == sql.ErrNoRows {
		return fmt.Errorf("equipment %d: %w", equipmentID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking available quantity: %w", err)
	}

	if qty > available {
		return &InsufficientStockError{EquipmentID: equipmentID, Available: available, Requested: qty}
	}

	_, err = q.ExecContext(ctx,
		`UPDATE equipment SET available_qty = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		available-qty, equipmentID,
	)
	if err != nil {
		return fmt.Errorf("decrementing availability: %w", err)
	}
	return nil
}

func incrementAvailable(ctx context.Context, q dbtx, equipmentID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: increment must be positive, got %d", ErrInvalidQuantity, qty)
	}

	var available, total int
	err := q.QueryRowContext(ctx,
		`SELECT available_qty, total_qty FROM equipment WHERE id = ?`,
		equipmentID,
	).Scan(&available, &total)
	if err == sql.ErrNoRows {
		return fmt.Errorf("equipment %d: %w", equipmentID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking available quantity: %w", err)
	}

	newAvailable := available + qty
	if newAvailable > total {
		slog.Warn("restock clamped to total quantity",
			"equipment_id", equipmentID, "available", available,
			"increment", qty, "total", total)
		metrics.RestockClampsTotal.Inc()
		newAvailable = total
	}

	_, err = q.ExecContext(ctx,
		`UPDATE equipment SET available_qty = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newAvailable, equipmentID,
	)
	if err != nil {
		return fmt.Errorf("incrementing availability: %w", err)
	}
	return nil
}

func setAvailable(ctx context.Context, q dbtx, equipmentID int64, qty int) error {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT total_qty FROM equipment WHERE id = ?`, equipmentID,
	).Scan(&total)
	if err == sql.ErrNoRows {
		return fmt.Errorf("equipment %d: %w", equipmentID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking total quantity: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE equipment SET available_qty = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		clamp(qty, 0, total), equipmentID,
	)
	if err != nil {
		return fmt.Errorf("overwriting availability: %w", err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
