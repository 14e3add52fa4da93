package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rsaleh/gearroom/internal/metrics"
	"github.com/rsaleh/gearroom/internal/model"
)

// CheckoutLine is one requested equipment line at checkout.
type CheckoutLine struct {
	EquipmentID int64 `json:"equipment_id"`
	Qty         int   `json:"qty"`
}

// CheckoutParams holds everything needed to create a checkout.
type CheckoutParams struct {
	ProjectName  string
	ProjectOwner string
	UserID       int64
	AssistantIDs []int64
	CheckoutTime time.Time
	ShootTime    *time.Time
	Lines        []CheckoutLine
}

// CreateCheckout creates an open transaction with its line items and reserves
// stock for every line. The whole operation runs in a single storage
// transaction: if any line exceeds the available quantity, nothing is
// persisted and no availability changes.
func CreateCheckout(ctx context.Context, db *sql.DB, p CheckoutParams) (*model.Transaction, error) {
	if len(p.Lines) == 0 {
		return nil, ErrEmptyCheckout
	}
	if p.ProjectName == "" {
		return nil, fmt.Errorf("project name is required")
	}
	for _, line := range p.Lines {
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: line quantity must be positive, got %d", ErrInvalidQuantity, line.Qty)
		}
	}

	checkoutTime := p.CheckoutTime
	if checkoutTime.IsZero() {
		checkoutTime = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, project_name, project_owner, user_id, status, checkout_time, shoot_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.ProjectName, p.ProjectOwner, p.UserID, model.StatusOpen, checkoutTime, p.ShootTime,
	)
	if err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	for _, assistantID := range p.AssistantIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_assistants (transaction_id, user_id) VALUES (?, ?)`,
			id, assistantID,
		)
		if err != nil {
			return nil, fmt.Errorf("adding assistant: %w", err)
		}
	}

	for _, line := range p.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, equipment_id, qty) VALUES (?, ?, ?)`,
			id, line.EquipmentID, line.Qty,
		)
		if err != nil {
			return nil, fmt.Errorf("adding line item: %w", err)
		}

		if err := decrementAvailable(ctx, tx, line.EquipmentID, line.Qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing checkout: %w", err)
	}

	metrics.CheckoutsTotal.Inc()
	return GetTransaction(ctx, db, id)
}

// GetTransaction returns a transaction with its line items and assistants, or
// ErrNotFound.
func GetTransaction(ctx context.Context, db *sql.DB, id string) (*model.Transaction, error) {
	t := &model.Transaction{}
	var projectOwner sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT t.id, t.project_name, t.project_owner, t.user_id, t.status,
		        t.checkout_time, t.shoot_time, t.return_time, t.created_at, u.username
		 FROM transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.id = ?`, id,
	).Scan(&t.ID, &t.ProjectName, &projectOwner, &t.UserID, &t.Status,
		&t.CheckoutTime, &t.ShootTime, &t.ReturnTime, &t.CreatedAt, &t.Username)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	t.ProjectOwner = projectOwner.String

	t.Items, err = listTransactionItems(ctx, db, id)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT user_id FROM transaction_assistants WHERE transaction_id = ? ORDER BY user_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assistants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scanning assistant: %w", err)
		}
		t.AssistantIDs = append(t.AssistantIDs, userID)
	}
	return t, rows.Err()
}

// ListTransactions returns transactions newest first, optionally filtered by
// status and/or owning user. Line items are not populated.
func ListTransactions(ctx context.Context, db *sql.DB, status string, userID int64) ([]model.Transaction, error) {
	query := `SELECT t.id, t.project_name, t.project_owner, t.user_id, t.status,
	                 t.checkout_time, t.shoot_time, t.return_time, t.created_at, u.username
	          FROM transactions t
	          JOIN users u ON u.id = t.user_id
	          WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND t.status = ?`
		args = append(args, status)
	}
	if userID > 0 {
		query += ` AND (t.user_id = ? OR EXISTS (
		               SELECT 1 FROM transaction_assistants ta
		               WHERE ta.transaction_id = t.id AND ta.user_id = ?))`
		args = append(args, userID, userID)
	}
	query += ` ORDER BY t.checkout_time DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var projectOwner sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectName, &projectOwner, &t.UserID, &t.Status,
			&t.CheckoutTime, &t.ShootTime, &t.ReturnTime, &t.CreatedAt, &t.Username); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.ProjectOwner = projectOwner.String
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func listTransactionItems(ctx context.Context, q dbtx, transactionID string) ([]model.TransactionItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ti.id, ti.transaction_id, ti.equipment_id, ti.qty, ti.returned_qty,
		        ti.damaged, ti.damage_notes, ti.lost, ti.lost_notes, ti.admin_verified,
		        ti.settled_at, e.name
		 FROM transaction_items ti
		 JOIN equipment e ON e.id = ti.equipment_id
		 WHERE ti.transaction_id = ?
		 ORDER BY ti.id`, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	var items []model.TransactionItem
	for rows.Next() {
		var it model.TransactionItem
		var damageNotes, lostNotes sql.NullString
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.EquipmentID, &it.Qty, &it.ReturnedQty,
			&it.Damaged, &damageNotes, &it.Lost, &lostNotes, &it.AdminVerified,
			&it.SettledAt, &it.EquipmentName); err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}
		it.DamageNotes = damageNotes.String
		it.LostNotes = lostNotes.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// DeleteTransaction removes a transaction and its line items, first restoring
// the stock that was never returned (qty minus returned_qty per line).
// Already-returned units were restocked at settlement and are not restored
// again. Runs in one storage transaction.
func DeleteTransaction(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking transaction: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	items, err := listTransactionItems(ctx, tx, id)
	if err != nil {
		return err
	}

	for _, it := range items {
		if unreturned := it.UnreturnedQty(); unreturned > 0 {
			if err := incrementAvailable(ctx, tx, it.EquipmentID, unreturned); err != nil {
				return err
			}
		}
	}

	// Line items and assistants cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction deletion: %w", err)
	}
	return nil
}

// CloseTransaction transitions a transaction from open to closed. Every line
// item must have a settlement record. When requireVerified is set (the
// standard, supervisor-driven closure), every item must additionally be
// admin-verified; the quick-close path used by the return flow passes false.
func CloseTransaction(ctx context.Context, db *sql.DB, id string, returnTime time.Time, requireVerified bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := closeTransaction(ctx, tx, id, returnTime, requireVerified); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing closure: %w", err)
	}
	return nil
}

func closeTransaction(ctx context.Context, q dbtx, id string, returnTime time.Time, requireVerified bool) error {
	var status string
	err := q.QueryRowContext(ctx,
		`SELECT status FROM transactions WHERE id = ?`, id,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking transaction status: %w", err)
	}
	if status == model.StatusClosed {
		return fmt.Errorf("transaction %s: %w", id, ErrAlreadyClosed)
	}

	var unsettled int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_items WHERE transaction_id = ? AND settled_at IS NULL`, id,
	).Scan(&unsettled)
	if err != nil {
		return fmt.Errorf("checking settlements: %w", err)
	}
	if unsettled > 0 {
		return fmt.Errorf("transaction %s has %d unsettled item(s): %w", id, unsettled, ErrNotAllSettled)
	}

	if requireVerified {
		ok, err := canClose(ctx, q, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("transaction %s: %w", id, ErrNotVerified)
		}
	}

	if returnTime.IsZero() {
		returnTime = time.Now().UTC()
	}

	_, err = q.ExecContext(ctx,
		`UPDATE transactions SET status = ?, return_time = ? WHERE id = ?`,
		model.StatusClosed, returnTime, id,
	)
	if err != nil {
		return fmt.Errorf("closing transaction: %w", err)
	}
	return nil
}
