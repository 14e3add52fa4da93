package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rsaleh/gearroom/internal/model"
	"github.com/rsaleh/gearroom/internal/store"
)

// ReturnsHandler handles return settlement and verification endpoints.
type ReturnsHandler struct {
	DB *sql.DB
}

type settleRequest struct {
	ReturnedQty int    `json:"returned_qty"`
	Damaged     bool   `json:"damaged"`
	DamageNotes string `json:"damage_notes"`
	Lost        bool   `json:"lost"`
	LostNotes   string `json:"lost_notes"`
}

type returnRequest struct {
	ReturnTime *time.Time             `json:"return_time"`
	Items      []store.ItemSettlement `json:"items"`
}

// SettleItem handles POST /api/items/{id}/settle. It records the return outcome
// for a single line item without closing the transaction, so damage and loss
// notes can be reviewed before closure.
func (h *ReturnsHandler) SettleItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settlement := store.ItemSettlement{
		ItemID:      itemID,
		ReturnedQty: req.ReturnedQty,
		Damaged:     req.Damaged,
		DamageNotes: req.DamageNotes,
		Lost:        req.Lost,
		LostNotes:   req.LostNotes,
	}
	if err := store.SettleItem(r.Context(), h.DB, settlement); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item settled", "item", itemID, "returned", req.ReturnedQty,
		"damaged", req.Damaged, "lost", req.Lost, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item settled"})
}

// Return handles POST /api/checkouts/{id}/return, the employee-facing batch
// path: settles every item and quick-closes the transaction in one atomic
// step, without the admin verification gate.
func (h *ReturnsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "items are required")
		return
	}
	returnTime := time.Now().UTC()
	if req.ReturnTime != nil {
		returnTime = *req.ReturnTime
	}

	if err := store.SettleAndClose(r.Context(), h.DB, id, req.Items, returnTime); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("checkout returned", "transaction", id, "items", len(req.Items),
		"by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "checkout returned"})
}

// VerifyItem handles POST /api/items/{id}/verify. Idempotent.
func (h *ReturnsHandler) VerifyItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.VerifyItem(r.Context(), h.DB, itemID); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item verified", "item", itemID, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item verified"})
}

// PendingVerification handles GET /api/verification/pending.
func (h *ReturnsHandler) PendingVerification(w http.ResponseWriter, r *http.Request) {
	pending, err := store.ListPendingVerification(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list pending verification")
		return
	}
	if pending == nil {
		pending = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, pending)
}
