package api

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rsaleh/gearroom/internal/model"
	"github.com/rsaleh/gearroom/internal/store"
)

// CheckoutsHandler handles checkout transaction endpoints.
type CheckoutsHandler struct {
	DB *sql.DB
}

type createCheckoutRequest struct {
	ProjectName  string               `json:"project_name"`
	ProjectOwner string               `json:"project_owner"`
	CheckoutTime *time.Time           `json:"checkout_time"`
	ShootTime    *time.Time           `json:"shoot_time"`
	AssistantIDs []int64              `json:"assistant_ids"`
	Items        []store.CheckoutLine `json:"items"`
}

type closeRequest struct {
	ReturnTime *time.Time `json:"return_time"`
}

// Create handles POST /api/checkouts.
func (h *CheckoutsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectName == "" {
		jsonError(w, http.StatusBadRequest, "project_name is required")
		return
	}

	claims := GetClaims(r.Context())
	params := store.CheckoutParams{
		ProjectName:  req.ProjectName,
		ProjectOwner: req.ProjectOwner,
		UserID:       claims.UserID,
		AssistantIDs: req.AssistantIDs,
		ShootTime:    req.ShootTime,
		Lines:        req.Items,
	}
	if req.CheckoutTime != nil {
		params.CheckoutTime = *req.CheckoutTime
	}

	transaction, err := store.CreateCheckout(r.Context(), h.DB, params)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("checkout created", "transaction", transaction.ID,
		"project", transaction.ProjectName, "user", claims.Username,
		"items", len(transaction.Items))
	jsonResponse(w, http.StatusCreated, transaction)
}

// List handles GET /api/checkouts. Employees only see transactions they own
// or assist on; supervisors and admins see everything.
func (h *CheckoutsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var userID int64
	if !model.RoleAtLeast(claims.Role, model.RoleSupervisor) {
		userID = claims.UserID
	}

	transactions, err := store.ListTransactions(r.Context(), h.DB, r.URL.Query().Get("status"), userID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list checkouts")
		return
	}
	if transactions == nil {
		transactions = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, transactions)
}

// Get handles GET /api/checkouts/{id}.
func (h *CheckoutsHandler) Get(w http.ResponseWriter, r *http.Request) {
	transaction, err := store.GetTransaction(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}

	if !h.mayAccess(r, transaction) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	jsonResponse(w, http.StatusOK, transaction)
}

// Close handles POST /api/checkouts/{id}/close, the standard closure path,
// gated on every line item being settled and admin-verified.
func (h *CheckoutsHandler) Close(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Body is optional; an empty POST closes with the current time.
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	returnTime := time.Now().UTC()
	if req.ReturnTime != nil {
		returnTime = *req.ReturnTime
	}

	if err := store.CloseTransaction(r.Context(), h.DB, id, returnTime, true); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("checkout closed", "transaction", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "checkout closed"})
}

// Delete handles DELETE /api/checkouts/{id}. Unreturned stock goes back to
// the shelf before the transaction is removed.
func (h *CheckoutsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := store.DeleteTransaction(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("checkout deleted", "transaction", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "checkout deleted"})
}

// mayAccess reports whether the caller may see the transaction: supervisors
// and admins always, employees only on their own or assisted checkouts.
func (h *CheckoutsHandler) mayAccess(r *http.Request, t *model.Transaction) bool {
	claims := GetClaims(r.Context())
	if claims == nil {
		return false
	}
	if model.RoleAtLeast(claims.Role, model.RoleSupervisor) {
		return true
	}
	if t.UserID == claims.UserID {
		return true
	}
	for _, id := range t.AssistantIDs {
		if id == claims.UserID {
			return true
		}
	}
	return false
}
