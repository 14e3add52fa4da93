package api

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsaleh/gearroom/internal/auth"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	equipmentHandler := &EquipmentHandler{DB: db}
	checkoutsHandler := &CheckoutsHandler{DB: db}
	returnsHandler := &ReturnsHandler{DB: db}
	reconcileHandler := &ReconcileHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	route := func(pattern string, action auth.Action, handler http.HandlerFunc) {
		mux.Handle(pattern, authMW(RequireAction(action)(handler)))
	}

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Authenticated, no specific action.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// User administration (admin only).
	route("GET /api/users", auth.ActionUserManage, usersHandler.List)
	route("POST /api/users", auth.ActionUserManage, usersHandler.Create)
	route("PUT /api/users/{id}/role", auth.ActionUserManage, usersHandler.UpdateRole)
	route("DELETE /api/users/{id}", auth.ActionUserManage, usersHandler.Delete)

	// Equipment: read (all roles), write (admin).
	route("GET /api/equipment", auth.ActionEquipmentRead, equipmentHandler.List)
	route("GET /api/equipment/{id}", auth.ActionEquipmentRead, equipmentHandler.Get)
	route("GET /api/equipment/{id}/image", auth.ActionEquipmentRead, equipmentHandler.GetImage)
	route("POST /api/equipment", auth.ActionEquipmentWrite, equipmentHandler.Create)
	route("PUT /api/equipment/{id}", auth.ActionEquipmentWrite, equipmentHandler.Update)
	route("DELETE /api/equipment/{id}", auth.ActionEquipmentWrite, equipmentHandler.Delete)
	route("PUT /api/equipment/{id}/image", auth.ActionEquipmentWrite, equipmentHandler.UploadImage)

	// Checkout lifecycle.
	route("POST /api/checkouts", auth.ActionCheckoutCreate, checkoutsHandler.Create)
	route("GET /api/checkouts", auth.ActionCheckoutRead, checkoutsHandler.List)
	route("GET /api/checkouts/{id}", auth.ActionCheckoutRead, checkoutsHandler.Get)
	route("POST /api/checkouts/{id}/close", auth.ActionCheckoutClose, checkoutsHandler.Close)
	route("DELETE /api/checkouts/{id}", auth.ActionCheckoutDelete, checkoutsHandler.Delete)

	// Returns and verification.
	route("POST /api/checkouts/{id}/return", auth.ActionItemSettle, returnsHandler.Return)
	route("POST /api/items/{id}/settle", auth.ActionItemSettle, returnsHandler.SettleItem)
	route("POST /api/items/{id}/verify", auth.ActionItemVerify, returnsHandler.VerifyItem)
	route("GET /api/verification/pending", auth.ActionItemVerify, returnsHandler.PendingVerification)

	// Inventory reconciliation (admin only).
	route("POST /api/admin/reconcile", auth.ActionInventoryReconcile, reconcileHandler.Reconcile)

	return mux
}
