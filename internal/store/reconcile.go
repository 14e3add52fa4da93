package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rsaleh/gearroom/internal/metrics"
	"github.com/rsaleh/gearroom/internal/model"
)

// Correction records one equipment row whose availability was rewritten.
type Correction struct {
	EquipmentID int64 `json:"equipment_id"`
	Before      int   `json:"before"`
	After       int   `json:"after"`
}

// ReconcileReport summarizes a reconciliation run.
type ReconcileReport struct {
	Method      string       `json:"method"`
	Examined    int          `json:"examined"`
	Corrections []Correction `json:"corrections"`
}

// ReconcileAll recomputes available_qty for every equipment row from the set
// of currently open transactions:
//
//	available = clamp(total − Σ max(qty − returned_qty, 0), 0, total)
//
// summed over open-transaction line items referencing the equipment.
// Equipment with nothing outstanding goes back to total_qty.
//
// The whole run happens inside one storage transaction: if the outstanding
// sum or any rewrite fails, no equipment row is touched. Running it twice
// with no intervening mutations yields the same result. This is the safety
// net for drift left behind by crashed or timed-out callers.
func ReconcileAll(ctx context.Context, db *sql.DB) (*ReconcileReport, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	outstanding, err := outstandingByEquipment(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, total_qty, available_qty FROM equipment`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}

	type eqRow struct {
		id               int64
		total, available int
	}
	var equipment []eqRow
	for rows.Next() {
		var e eqRow
		if err := rows.Scan(&e.id, &e.total, &e.available); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		equipment = append(equipment, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}

	report := &ReconcileReport{Method: "manual", Examined: len(equipment)}
	for _, e := range equipment {
		want := clamp(e.total-outstanding[e.id], 0, e.total)
		if want == e.available {
			continue
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE equipment SET available_qty = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			want, e.id,
		)
		if err != nil {
			return nil, fmt.Errorf("rewriting availability for equipment %d: %w", e.id, err)
		}
		report.Corrections = append(report.Corrections, Correction{
			EquipmentID: e.id, Before: e.available, After: want,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reconciliation: %w", err)
	}

	metrics.ReconcileRunsTotal.Inc()
	for _, c := range report.Corrections {
		metrics.DriftCorrectionsTotal.Inc()
		slog.Warn("reconciliation corrected drift",
			"equipment_id", c.EquipmentID, "before", c.Before, "after", c.After)
	}

	return report, nil
}

// outstandingByEquipment sums unreturned quantities across open-transaction
// line items, grouped by equipment. Settled lines count qty − returned_qty
// (floored at zero); unsettled lines count in full.
func outstandingByEquipment(ctx context.Context, q dbtx) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ti.equipment_id, SUM(MAX(ti.qty - COALESCE(ti.returned_qty, 0), 0))
		 FROM transaction_items ti
		 JOIN transactions t ON t.id = ti.transaction_id
		 WHERE t.status = ?
		 GROUP BY ti.equipment_id`, model.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("summing outstanding quantities: %w", err)
	}
	defer rows.Close()

	outstanding := make(map[int64]int)
	for rows.Next() {
		var equipmentID int64
		var qty int
		if err := rows.Scan(&equipmentID, &qty); err != nil {
			return nil, fmt.Errorf("scanning outstanding quantity: %w", err)
		}
		outstanding[equipmentID] = qty
	}
	return outstanding, rows.Err()
}
