package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsaleh/gearroom/internal/model"
)

// VerifyItem marks a line item as physically checked by an administrator.
// Verifying an already-verified item is a no-op.
func VerifyItem(ctx context.Context, db *sql.DB, itemID int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE transaction_items SET admin_verified = 1 WHERE id = ?`, itemID,
	)
	if err != nil {
		return fmt.Errorf("verifying line item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("line item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// CanClose reports whether every line item of the transaction has been
// admin-verified.
func CanClose(ctx context.Context, db *sql.DB, transactionID string) (bool, error) {
	return canClose(ctx, db, transactionID)
}

func canClose(ctx context.Context, q dbtx, transactionID string) (bool, error) {
	var unverified int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_items WHERE transaction_id = ? AND admin_verified = 0`,
		transactionID,
	).Scan(&unverified)
	if err != nil {
		return false, fmt.Errorf("checking verification: %w", err)
	}
	return unverified == 0, nil
}

// ListPendingVerification returns open transactions that still have
// unverified line items, with their items populated.
func ListPendingVerification(ctx context.Context, db *sql.DB) ([]model.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT t.id
		 FROM transactions t
		 JOIN transaction_items ti ON ti.transaction_id = t.id
		 WHERE t.status = ? AND ti.admin_verified = 0
		 ORDER BY t.id`, model.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending verification: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pending []model.Transaction
	for _, id := range ids {
		t, err := GetTransaction(ctx, db, id)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *t)
	}
	return pending, nil
}
