package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"aromastock/internal/costing"
	applog "aromastock/internal/log"
	"aromastock/internal/production"
	"aromastock/internal/resolver"
	"aromastock/models"
)

type productionRequest struct {
	RecipeID uint    `json:"recipe_id"`
	Quantity float64 `json:"quantity"`
	UnitSize float64 `json:"unit_size"`
}

type productionResponse struct {
	BatchID uint                `json:"batch_id"`
	Preview *production.Preview `json:"preview"`
}

type batchResponse struct {
	ID          uint                          `json:"id"`
	RecipeID    uint                          `json:"recipe_id"`
	RecipeName  string                        `json:"recipe_name"`
	Quantity    float64                       `json:"quantity"`
	Unit        string                        `json:"unit"`
	TotalCost   string                        `json:"total_cost"`
	Ingredients []models.ProductionIngredient `json:"ingredients"`
	CreatedAt   time.Time                     `json:"created_at"`
}

// ProductionResource handles batch previews, confirmations and history.
func ProductionResource(w http.ResponseWriter, r *http.Request) {
	if executor == nil || repository == nil {
		applog.Debug(r.Context(), "production request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "production request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/production")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			listBatches(w, r, userID)
		case http.MethodPost:
			confirmProduction(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "preview":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		previewProduction(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func decodeProductionRequest(w http.ResponseWriter, r *http.Request) (productionRequest, bool) {
	var payload productionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid production payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return payload, false
	}
	if payload.RecipeID == 0 {
		writeJSONError(w, http.StatusBadRequest, "recipe_id is required")
		return payload, false
	}
	if payload.Quantity <= 0 {
		writeJSONError(w, http.StatusBadRequest, "quantity must be positive")
		return payload, false
	}
	if payload.UnitSize < 0 {
		writeJSONError(w, http.StatusBadRequest, "unit_size must not be negative")
		return payload, false
	}
	return payload, true
}

// previewProduction resolves and prices a batch without touching stock.
func previewProduction(w http.ResponseWriter, r *http.Request, userID uint) {
	payload, ok := decodeProductionRequest(w, r)
	if !ok {
		return
	}

	preview, err := executor.Preview(r.Context(), userID, payload.RecipeID, payload.Quantity, payload.UnitSize)
	if err != nil {
		writeProductionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// confirmProduction runs the batch: the advisory gate refuses infeasible
// requests outright, and a commit-time stock conflict comes back as a
// retryable conflict with the fresh preview attached.
func confirmProduction(w http.ResponseWriter, r *http.Request, userID uint) {
	payload, ok := decodeProductionRequest(w, r)
	if !ok {
		return
	}

	batchID, preview, err := executor.Produce(r.Context(), userID, payload.RecipeID, payload.Quantity, payload.UnitSize)
	if err != nil {
		switch {
		case errors.Is(err, production.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   "insufficient stock",
				"preview": preview,
			})
		case errors.Is(err, production.ErrStaleStock):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   "stock changed, please retry",
				"preview": preview,
			})
		default:
			writeProductionError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, productionResponse{BatchID: batchID, Preview: preview})
}

// listBatches reports production history with each batch's effective cost:
// snapshot prices where captured, current material prices otherwise.
func listBatches(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()

	batches, err := repository.ListBatches(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load production history", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load production history")
		return
	}

	materials, err := repository.ListMaterials(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load materials for history costing", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load production history")
		return
	}
	current := make(map[uint]*models.Material, len(materials))
	for i := range materials {
		current[materials[i].ID] = &materials[i]
	}

	responses := make([]batchResponse, 0, len(batches))
	for i := range batches {
		batch := &batches[i]
		responses = append(responses, batchResponse{
			ID:          batch.ID,
			RecipeID:    batch.RecipeID,
			RecipeName:  batch.RecipeName,
			Quantity:    batch.Quantity,
			Unit:        batch.Unit,
			TotalCost:   costing.HistoricalCost(batch, current).String(),
			Ingredients: batch.Ingredients,
			CreatedAt:   batch.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

func writeProductionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, resolver.ErrRecipeNotFound):
		http.NotFound(w, r)
	case errors.Is(err, resolver.ErrCircularReference), errors.Is(err, resolver.ErrEmptyRecipe):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		applog.Error(r.Context(), "production request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to process production request")
	}
}
