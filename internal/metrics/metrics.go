// Package metrics exposes the service's Prometheus collectors.
//
// The ledger invariants are enforced in code; these counters exist so that the
// conditions that historically masked bugs (clamped restocks, reconciliation
// drift corrections) show up on a dashboard instead of disappearing silently.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutsTotal counts successfully created checkouts.
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gearroom_checkouts_total",
		Help: "Number of checkouts created.",
	})

	// RestockClampsTotal counts restocks that were clamped to total_qty.
	// A non-zero rate means some flow is over-restocking and the ledger
	// should be reconciled.
	RestockClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gearroom_restock_clamps_total",
		Help: "Number of availability increments clamped to total_qty.",
	})

	// ReconcileRunsTotal counts reconciliation runs.
	ReconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gearroom_reconcile_runs_total",
		Help: "Number of inventory reconciliation runs.",
	})

	// DriftCorrectionsTotal counts equipment rows whose available_qty had
	// drifted and was rewritten by reconciliation.
	DriftCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gearroom_drift_corrections_total",
		Help: "Number of equipment rows corrected during reconciliation.",
	})
)
