package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"aromastock/internal/costing"
	applog "aromastock/internal/log"
	"aromastock/models"
)

type materialResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	PackAmount    float64   `json:"pack_amount"`
	PricePerUnit  string    `json:"price_per_unit"`
	MinStock      float64   `json:"min_stock"`
	BelowMinStock bool      `json:"below_min_stock"`
	Retired       bool      `json:"retired"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type materialRequest struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	PackAmount float64 `json:"pack_amount"`
	MinStock   float64 `json:"min_stock"`
}

// MaterialResource handles REST-style interactions for material records.
func MaterialResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "material request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "material request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/materials")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listMaterials(w, r, userID)
		case http.MethodPost:
			createMaterial(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "low-stock" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		lowStockMaterials(w, r, userID)
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid material identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	materialID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showMaterial(w, r, materialID, userID)
	case http.MethodPut:
		updateMaterial(w, r, materialID, userID)
	case http.MethodDelete:
		retireMaterial(w, r, materialID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listMaterials(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var results []models.Material
	err := database.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		applog.Error(ctx, "failed to list materials", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load materials")
		return
	}

	responses := make([]materialResponse, 0, len(results))
	for i := range results {
		responses = append(responses, projectMaterial(&results[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func lowStockMaterials(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var results []models.Material
	err := database.WithContext(ctx).
		Where("owner_id = ? AND quantity <= min_stock", userID).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		applog.Error(ctx, "failed to load low stock report", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load low stock report")
		return
	}

	responses := make([]materialResponse, 0, len(results))
	for i := range results {
		responses = append(responses, projectMaterial(&results[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func createMaterial(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload materialRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid material payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Quantity < 0 || payload.Price < 0 || payload.MinStock < 0 {
		writeJSONError(w, http.StatusBadRequest, "quantity, price and min_stock must not be negative")
		return
	}

	material := models.Material{
		Name:       name,
		Unit:       defaultUnit(payload.Unit),
		Quantity:   payload.Quantity,
		Price:      payload.Price,
		PackAmount: payload.PackAmount,
		MinStock:   payload.MinStock,
		OwnerID:    userID,
	}
	if material.PackAmount <= 0 {
		material.PackAmount = 1
	}

	if err := database.WithContext(ctx).Create(&material).Error; err != nil {
		applog.Error(ctx, "failed to create material", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create material")
		return
	}

	writeJSON(w, http.StatusCreated, projectMaterial(&material))
}

func showMaterial(w http.ResponseWriter, r *http.Request, materialID, userID uint) {
	ctx := r.Context()
	var material models.Material
	err := database.WithContext(ctx).Unscoped().
		Where("id = ? AND owner_id = ?", materialID, userID).
		First(&material).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "material not found", "id", materialID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load material", "error", err, "id", materialID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load material")
		return
	}

	writeJSON(w, http.StatusOK, projectMaterial(&material))
}

func updateMaterial(w http.ResponseWriter, r *http.Request, materialID, userID uint) {
	ctx := r.Context()
	var material models.Material
	err := database.WithContext(ctx).
		Where("id = ? AND owner_id = ?", materialID, userID).
		First(&material).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "update denied: material not found or retired", "id", materialID, "user", userID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load material for update", "error", err, "id", materialID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load material")
		return
	}

	var payload materialRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid material update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Quantity < 0 || payload.Price < 0 || payload.MinStock < 0 {
		writeJSONError(w, http.StatusBadRequest, "quantity, price and min_stock must not be negative")
		return
	}
	packAmount := payload.PackAmount
	if packAmount <= 0 {
		packAmount = 1
	}

	updates := map[string]any{
		"name":        name,
		"unit":        defaultUnit(payload.Unit),
		"quantity":    payload.Quantity,
		"price":       payload.Price,
		"pack_amount": packAmount,
		"min_stock":   payload.MinStock,
	}

	if err := database.WithContext(ctx).Model(&material).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update material", "error", err, "id", materialID)
		writeJSONError(w, http.StatusInternalServerError, "unable to update material")
		return
	}

	writeJSON(w, http.StatusOK, projectMaterial(&material))
}

// retireMaterial soft-deletes the material. Recipes and production history
// keep their references; the material just stops being selectable and is
// treated as unavailable during resolution.
func retireMaterial(w http.ResponseWriter, r *http.Request, materialID, userID uint) {
	ctx := r.Context()
	var material models.Material
	err := database.WithContext(ctx).
		Where("id = ? AND owner_id = ?", materialID, userID).
		First(&material).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "retire denied: material not found or already retired", "id", materialID, "user", userID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load material for retirement", "error", err, "id", materialID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load material")
		return
	}

	if err := database.WithContext(ctx).Delete(&material).Error; err != nil {
		applog.Error(ctx, "failed to retire material", "error", err, "id", materialID)
		writeJSONError(w, http.StatusInternalServerError, "unable to retire material")
		return
	}

	if auditor != nil {
		auditor.LogEvent(ctx, userID, "Material retired", material.Name+" was retired from the catalog.", models.SeverityWarning, map[string]any{
			"material_id": material.ID,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

func projectMaterial(material *models.Material) materialResponse {
	return materialResponse{
		ID:            material.ID,
		Name:          material.Name,
		Unit:          material.Unit,
		Quantity:      material.Quantity,
		Price:         material.Price,
		PackAmount:    material.PackAmount,
		PricePerUnit:  costing.PricePerUnit(material).String(),
		MinStock:      material.MinStock,
		BelowMinStock: material.BelowMinStock(),
		Retired:       material.Retired(),
		CreatedAt:     material.CreatedAt,
		UpdatedAt:     material.UpdatedAt,
	}
}

func defaultUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if trimmed == "" {
		return "ml"
	}
	return trimmed
}
