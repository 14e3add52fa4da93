package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rsaleh/gearroom/internal/imaging"
	"github.com/rsaleh/gearroom/internal/model"
	"github.com/rsaleh/gearroom/internal/store"
)

// EquipmentHandler handles equipment endpoints.
type EquipmentHandler struct {
	DB *sql.DB
}

type equipmentRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	TotalQty int    `json:"total_qty"`
}

// maxImageUpload caps equipment photo uploads.
const maxImageUpload = 10 << 20 // 10 MiB

// List handles GET /api/equipment.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListEquipment(r.Context(), h.DB, r.URL.Query().Get("category"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list equipment")
		return
	}
	if items == nil {
		items = []model.Equipment{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.TotalQty < 0 {
		jsonError(w, http.StatusBadRequest, "name is required and total_qty must not be negative")
		return
	}

	equipment, err := store.CreateEquipment(r.Context(), h.DB, req.Name, req.Category, req.TotalQty)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("equipment created", "equipment", equipment.Name, "total", equipment.TotalQty,
		"by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusCreated, equipment)
}

// Get handles GET /api/equipment/{id}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, equipment)
}

// Update handles PUT /api/equipment/{id}.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.TotalQty < 0 {
		jsonError(w, http.StatusBadRequest, "name is required and total_qty must not be negative")
		return
	}

	if err := store.UpdateEquipment(r.Context(), h.DB, id, req.Name, req.Category, req.TotalQty); err != nil {
		storeError(w, err)
		return
	}

	equipment, err := store.GetEquipment(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, equipment)
}

// Delete handles DELETE /api/equipment/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	if err := store.DeleteEquipment(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("equipment deleted", "equipment_id", id, "by", GetClaims(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "equipment deleted"})
}

// UploadImage handles PUT /api/equipment/{id}/image.
func (h *EquipmentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, maxImageUpload))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.UpdateEquipmentImage(r.Context(), h.DB, id, result.Data, result.MIME); err != nil {
		storeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image updated"})
}

// GetImage handles GET /api/equipment/{id}/image.
func (h *EquipmentHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	data, mime, err := store.GetEquipmentImage(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
