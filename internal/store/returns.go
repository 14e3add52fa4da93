package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rsaleh/gearroom/internal/model"
)

// ItemSettlement records the outcome of returning one line item.
type ItemSettlement struct {
	ItemID      int64  `json:"item_id"`
	ReturnedQty int    `json:"returned_qty"`
	Damaged     bool   `json:"damaged"`
	DamageNotes string `json:"damage_notes"`
	Lost        bool   `json:"lost"`
	LostNotes   string `json:"lost_notes"`
}

// SettleItem records the return outcome for a single line item and restocks
// the returned quantity. A lost item restocks nothing regardless of the
// numeric returned quantity, loss takes precedence. An item can be settled
// exactly once; re-settlement fails with ErrAlreadySettled.
//
// Settling does not close the parent transaction; closure is a separate step
// so damage and loss notes can be reviewed first.
func SettleItem(ctx context.Context, db *sql.DB, s ItemSettlement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := settleItem(ctx, tx, s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settlement: %w", err)
	}
	return nil
}

func settleItem(ctx context.Context, q dbtx, s ItemSettlement) error {
	var equipmentID int64
	var qty int
	var settledAt *time.Time
	var txStatus string
	err := q.QueryRowContext(ctx,
		`SELECT ti.equipment_id, ti.qty, ti.settled_at, t.status
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 WHERE ti.id = ?`, s.ItemID,
	).Scan(&equipmentID, &qty, &settledAt, &txStatus)
	if err == sql.ErrNoRows {
		return fmt.Errorf("line item %d: %w", s.ItemID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking line item: %w", err)
	}

	if txStatus == model.StatusClosed {
		return fmt.Errorf("line item %d: %w", s.ItemID, ErrAlreadyClosed)
	}
	if settledAt != nil {
		return fmt.Errorf("line item %d: %w", s.ItemID, ErrAlreadySettled)
	}
	if s.ReturnedQty < 0 || s.ReturnedQty > qty {
		return fmt.Errorf("%w: returned %d of %d checked out", ErrInvalidQuantity, s.ReturnedQty, qty)
	}

	restock := s.ReturnedQty
	if s.Lost {
		restock = 0
	}
	if restock > 0 {
		if err := incrementAvailable(ctx, q, equipmentID, restock); err != nil {
			return err
		}
	}

	_, err = q.ExecContext(ctx,
		`UPDATE transaction_items
		 SET returned_qty = ?, damaged = ?, damage_notes = ?, lost = ?, lost_notes = ?,
		     settled_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		s.ReturnedQty, s.Damaged, s.DamageNotes, s.Lost, s.LostNotes, s.ItemID,
	)
	if err != nil {
		return fmt.Errorf("recording settlement: %w", err)
	}
	return nil
}

// SettleAndClose settles a batch of line items and closes the transaction, all
// in one storage transaction. If any single settlement fails, nothing is
// applied; no stock adjustment survives a partial batch. Every unsettled
// item of the transaction must be covered, otherwise the closure fails with
// ErrNotAllSettled and the batch rolls back.
//
// This is the quick-close path: it does not require admin verification.
func SettleAndClose(ctx context.Context, db *sql.DB, transactionID string, settlements []ItemSettlement, returnTime time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range settlements {
		var owner string
		err := tx.QueryRowContext(ctx,
			`SELECT transaction_id FROM transaction_items WHERE id = ?`, s.ItemID,
		).Scan(&owner)
		if err == sql.ErrNoRows {
			return fmt.Errorf("line item %d: %w", s.ItemID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking line item ownership: %w", err)
		}
		if owner != transactionID {
			return fmt.Errorf("line item %d does not belong to transaction %s: %w",
				s.ItemID, transactionID, ErrNotFound)
		}

		if err := settleItem(ctx, tx, s); err != nil {
			return err
		}
	}

	if err := closeTransaction(ctx, tx, transactionID, returnTime, false); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing return: %w", err)
	}
	return nil
}
