package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/rsaleh/gearroom/internal/store"
)

// ReconcileHandler handles the inventory reconciliation endpoint.
type ReconcileHandler struct {
	DB *sql.DB
}

// Reconcile handles POST /api/admin/reconcile: recomputes every equipment
// item's availability from the open transactions.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := store.ReconcileAll(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to reconcile inventory")
		return
	}

	slog.Info("inventory reconciled", "examined", report.Examined,
		"corrected", len(report.Corrections), "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, report)
}
