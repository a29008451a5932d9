package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"aromastock/internal/audit"
	"aromastock/internal/formula"
	applog "aromastock/internal/log"
	"aromastock/internal/resolver"
	"aromastock/models"
)

type recipeLineRequest struct {
	MaterialID  *uint   `json:"material_id,omitempty"`
	SubRecipeID *uint   `json:"sub_recipe_id,omitempty"`
	Mode        string  `json:"mode"`
	Value       float64 `json:"value"`
	Category    string  `json:"category,omitempty"`
}

type wizardShareRequest struct {
	MaterialID   uint    `json:"material_id"`
	PercentShare float64 `json:"percent_share"`
}

type wizardRequest struct {
	BibitPercent    float64              `json:"bibit_percent"`
	FixativePercent float64              `json:"fixative_percent"`
	AlcoholPercent  float64              `json:"alcohol_percent"`
	FixativeID      uint                 `json:"fixative_id"`
	AlcoholID       uint                 `json:"alcohol_id"`
	BibitMaterials  []wizardShareRequest `json:"bibit_materials"`
}

type recipeRequest struct {
	Name           string              `json:"name"`
	Method         string              `json:"method"`
	Unit           string              `json:"unit"`
	OutputQuantity float64             `json:"output_quantity"`
	Lines          []recipeLineRequest `json:"lines,omitempty"`
	Wizard         *wizardRequest      `json:"wizard,omitempty"`
}

type recipeIngredientResponse struct {
	MaterialID  *uint   `json:"material_id,omitempty"`
	SubRecipeID *uint   `json:"sub_recipe_id,omitempty"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Category    string  `json:"category"`
}

type recipeResponse struct {
	ID             uint                       `json:"id"`
	Name           string                     `json:"name"`
	Method         string                     `json:"method"`
	Unit           string                     `json:"unit"`
	OutputQuantity float64                    `json:"output_quantity"`
	Ingredients    []recipeIngredientResponse `json:"ingredients"`
	Wizard         *wizardRequest             `json:"wizard,omitempty"`
	Changes        []audit.Change             `json:"changes,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// RecipeResource handles REST-style interactions for recipes, including the
// resolution preview endpoint under /{id}/resolve.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if repository == nil {
		applog.Debug(r.Context(), "recipe request without database")
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "recipe request missing authenticated user")
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/recipes")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r, userID)
		case http.MethodPost:
			saveRecipe(w, r, 0, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) > 1 && segments[1] == "resolve" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resolveRecipe(w, r, recipeID, userID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID, userID)
	case http.MethodPut:
		saveRecipe(w, r, recipeID, userID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	recipes, err := repository.ListRecipes(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to list recipes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipes")
		return
	}

	responses := make([]recipeResponse, 0, len(recipes))
	for i := range recipes {
		responses = append(responses, projectRecipe(&recipes[i], nil))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()
	recipe, err := repository.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "recipe not found", "id", recipeID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	writeJSON(w, http.StatusOK, projectRecipe(recipe, nil))
}

// resolveRecipe expands the recipe at a target batch size and returns the
// flattened requirement list with availability, grouping and shortages.
func resolveRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	target, err := parseQuantityParam(r, "target", 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	policy := subPolicy
	if raw := strings.TrimSpace(r.URL.Query().Get("policy")); raw != "" {
		switch resolver.SubRecipePolicy(raw) {
		case resolver.SubRecipeOpaque, resolver.SubRecipeDeplete:
			policy = resolver.SubRecipePolicy(raw)
		default:
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown sub-recipe policy %q", raw))
			return
		}
	}

	materials, err := repository.ListMaterials(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load materials for resolution", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to resolve recipe")
		return
	}
	recipes, err := repository.ListRecipes(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load recipes for resolution", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to resolve recipe")
		return
	}

	cat := resolver.NewCatalog(materials, recipes)
	if target <= 0 {
		if recipe, ok := cat.Recipe(recipeID); ok {
			target = recipe.OutputQuantity
		}
	}

	result, err := resolver.Resolve(cat, recipeID, target, policy)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrRecipeNotFound):
			http.NotFound(w, r)
		case errors.Is(err, resolver.ErrCircularReference), errors.Is(err, resolver.ErrEmptyRecipe):
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			applog.Error(ctx, "failed to resolve recipe", "error", err, "id", recipeID)
			writeJSONError(w, http.StatusInternalServerError, "unable to resolve recipe")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*resolver.Result
		Shortages []resolver.Shortage `json:"shortages,omitempty"`
	}{Result: result, Shortages: resolver.Shortages(result)})
}

// saveRecipe is the shared create/update path: normalize the submitted
// draft into absolute ingredient quantities, diff against the stored
// formula, persist, and record an activity entry when something changed.
func saveRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()

	var payload recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	method := strings.TrimSpace(payload.Method)
	if method == "" {
		method = models.MethodManual
	}
	if method != models.MethodManual && method != models.MethodWizard {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown method %q", payload.Method))
		return
	}
	outputQuantity := payload.OutputQuantity
	if outputQuantity <= 0 {
		outputQuantity = models.DefaultOutputQuantity
	}

	materials, err := repository.ListMaterials(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load materials for recipe save", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to save recipe")
		return
	}
	recipes, err := repository.ListRecipes(ctx, userID)
	if err != nil {
		applog.Error(ctx, "failed to load recipes for recipe save", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to save recipe")
		return
	}
	cat := resolver.NewCatalog(materials, recipes)

	var previous *models.Recipe
	if recipeID != 0 {
		previous, err = repository.GetRecipe(ctx, userID, recipeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				applog.Debug(ctx, "update denied: recipe not found or not owned", "id", recipeID, "user", userID)
				http.NotFound(w, r)
				return
			}
			applog.Error(ctx, "failed to load recipe for update", "error", err, "id", recipeID)
			writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
			return
		}
	}

	recipe := &models.Recipe{
		Name:           name,
		Method:         method,
		Unit:           defaultUnit(payload.Unit),
		OutputQuantity: outputQuantity,
		OwnerID:        userID,
	}
	if previous != nil {
		recipe.Model = previous.Model
	}

	var ingredients []models.RecipeIngredient
	switch method {
	case models.MethodWizard:
		ingredients, err = buildWizardIngredients(recipe, payload.Wizard, cat, outputQuantity)
	default:
		ingredients, err = buildManualIngredients(recipe, payload.Lines, cat, outputQuantity, recipeID)
	}
	if err != nil {
		var verr *formula.ValidationError
		if errors.As(err, &verr) {
			writeJSONError(w, http.StatusUnprocessableEntity, verr.Error())
		} else {
			writeJSONError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	changes := diffAgainstStored(previous, recipe, ingredients, cat)

	if err := repository.ReplaceRecipe(ctx, recipe, ingredients); err != nil {
		applog.Error(ctx, "failed to persist recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to save recipe")
		return
	}

	recordRecipeActivity(ctx, userID, recipe, previous == nil, changes)

	status := http.StatusOK
	if previous == nil {
		status = http.StatusCreated
	}

	saved, err := repository.GetRecipe(ctx, userID, recipe.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload recipe after save", "error", err, "id", recipe.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load saved recipe")
		return
	}
	writeJSON(w, status, projectRecipe(saved, changes))
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()
	recipe, err := repository.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "delete denied: recipe not found or not owned", "id", recipeID, "user", userID)
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe for delete", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	if err := database.WithContext(ctx).Delete(recipe).Error; err != nil {
		applog.Error(ctx, "failed to delete recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe")
		return
	}

	if auditor != nil {
		auditor.LogEvent(ctx, userID, "Recipe deleted", recipe.Name+" was deleted.", models.SeverityWarning, map[string]any{
			"recipe_id": recipe.ID,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// buildManualIngredients normalizes a mixed quantity/percentage draft. The
// recipe's output quantity becomes the implied batch total so stored
// quantities always sum back to it.
func buildManualIngredients(recipe *models.Recipe, lines []recipeLineRequest, cat *resolver.Catalog, outputQuantity float64, selfID uint) ([]models.RecipeIngredient, error) {
	draft := make([]formula.Line, 0, len(lines))
	for i, line := range lines {
		entry := formula.Line{
			MaterialID:  line.MaterialID,
			SubRecipeID: line.SubRecipeID,
			Mode:        strings.ToUpper(strings.TrimSpace(line.Mode)),
			Value:       line.Value,
			Category:    strings.TrimSpace(line.Category),
		}

		if entry.MaterialID != nil && *entry.MaterialID != 0 {
			material, ok := cat.Material(*entry.MaterialID)
			if !ok {
				return nil, fmt.Errorf("entry %d references unknown material %d", i+1, *entry.MaterialID)
			}
			if material.Retired() {
				return nil, fmt.Errorf("entry %d references retired material %q", i+1, material.Name)
			}
			if entry.Category == "" {
				entry.Category = formula.InferCategory(material.Name)
			}
		}
		if entry.SubRecipeID != nil && *entry.SubRecipeID != 0 {
			if selfID != 0 && *entry.SubRecipeID == selfID {
				return nil, fmt.Errorf("entry %d links the recipe to itself", i+1)
			}
			if _, ok := cat.Recipe(*entry.SubRecipeID); !ok {
				return nil, fmt.Errorf("entry %d references unknown recipe %d", i+1, *entry.SubRecipeID)
			}
			if entry.Category == "" {
				entry.Category = models.CategoryGeneral
			}
		}

		draft = append(draft, entry)
	}

	resolved, total, err := formula.Normalize(draft, outputQuantity)
	if err != nil {
		return nil, err
	}
	recipe.OutputQuantity = total
	recipe.Wizard = nil

	ingredients := make([]models.RecipeIngredient, 0, len(resolved))
	for _, line := range resolved {
		ingredients = append(ingredients, models.RecipeIngredient{
			MaterialID:  line.MaterialID,
			SubRecipeID: line.SubRecipeID,
			Quantity:    line.Quantity,
			Category:    line.Category,
		})
	}
	return ingredients, nil
}

func buildWizardIngredients(recipe *models.Recipe, payload *wizardRequest, cat *resolver.Catalog, outputQuantity float64) ([]models.RecipeIngredient, error) {
	if payload == nil {
		return nil, errors.New("wizard recipes require a wizard block")
	}

	spec := formula.WizardSpec{
		BibitPercent:    payload.BibitPercent,
		FixativePercent: payload.FixativePercent,
		AlcoholPercent:  payload.AlcoholPercent,
		FixativeID:      payload.FixativeID,
		AlcoholID:       payload.AlcoholID,
	}
	for _, share := range payload.BibitMaterials {
		spec.BibitMaterials = append(spec.BibitMaterials, formula.BibitShare{
			MaterialID:   share.MaterialID,
			PercentShare: share.PercentShare,
		})
	}

	resolved, err := formula.NormalizeWizard(spec, outputQuantity)
	if err != nil {
		return nil, err
	}
	for _, line := range resolved {
		if line.MaterialID == nil {
			continue
		}
		material, ok := cat.Material(*line.MaterialID)
		if !ok {
			return nil, fmt.Errorf("wizard references unknown material %d", *line.MaterialID)
		}
		if material.Retired() {
			return nil, fmt.Errorf("wizard references retired material %q", material.Name)
		}
	}

	wizard := &models.RecipeWizard{
		BibitPercent:    payload.BibitPercent,
		FixativePercent: payload.FixativePercent,
		AlcoholPercent:  payload.AlcoholPercent,
	}
	if payload.FixativeID != 0 {
		id := payload.FixativeID
		wizard.FixativeID = &id
	}
	if payload.AlcoholID != 0 {
		id := payload.AlcoholID
		wizard.AlcoholID = &id
	}
	for _, share := range payload.BibitMaterials {
		wizard.BibitMaterials = append(wizard.BibitMaterials, models.WizardBibitMaterial{
			MaterialID:   share.MaterialID,
			PercentShare: share.PercentShare,
		})
	}
	recipe.Wizard = wizard

	ingredients := make([]models.RecipeIngredient, 0, len(resolved))
	for _, line := range resolved {
		ingredients = append(ingredients, models.RecipeIngredient{
			MaterialID:  line.MaterialID,
			SubRecipeID: line.SubRecipeID,
			Quantity:    line.Quantity,
			Category:    line.Category,
		})
	}
	return ingredients, nil
}

// diffAgainstStored compares the stored formula with the incoming one,
// preferring the wizard metadata diff when both sides carry it.
func diffAgainstStored(previous, next *models.Recipe, ingredients []models.RecipeIngredient, cat *resolver.Catalog) []audit.Change {
	if previous == nil {
		return nil
	}

	names := audit.Namer{
		Materials: make(map[uint]string),
		Recipes:   make(map[uint]string),
	}
	collect := func(list []models.RecipeIngredient) {
		for _, ingredient := range list {
			if ingredient.MaterialID != nil {
				if material, ok := cat.Material(*ingredient.MaterialID); ok {
					names.Materials[*ingredient.MaterialID] = material.Name
				}
			}
			if ingredient.SubRecipeID != nil {
				if recipe, ok := cat.Recipe(*ingredient.SubRecipeID); ok {
					names.Recipes[*ingredient.SubRecipeID] = recipe.Name
				}
			}
		}
	}
	collect(previous.Ingredients)
	collect(ingredients)
	if previous.Wizard != nil || next.Wizard != nil {
		for _, wizard := range []*models.RecipeWizard{previous.Wizard, next.Wizard} {
			if wizard == nil {
				continue
			}
			for _, share := range wizard.BibitMaterials {
				if material, ok := cat.Material(share.MaterialID); ok {
					names.Materials[share.MaterialID] = material.Name
				}
			}
		}
	}

	if previous.Wizard != nil && next.Wizard != nil {
		return audit.DiffWizard(previous.Wizard, next.Wizard, names)
	}
	return audit.DiffManual(previous.Ingredients, ingredients, next.OutputQuantity, names)
}

func recordRecipeActivity(ctx context.Context, userID uint, recipe *models.Recipe, created bool, changes []audit.Change) {
	if auditor == nil {
		return
	}
	switch {
	case created:
		auditor.LogEvent(ctx, userID, "Recipe created", recipe.Name+" was created.", models.SeverityInfo, map[string]any{
			"recipe_id": recipe.ID,
			"method":    recipe.Method,
		})
	case len(changes) > 0:
		auditor.LogEvent(ctx, userID, "Recipe updated", audit.Summary(changes), models.SeverityInfo, map[string]any{
			"recipe_id": recipe.ID,
			"changes":   changes,
		})
	}
}

func projectRecipe(recipe *models.Recipe, changes []audit.Change) recipeResponse {
	resp := recipeResponse{
		ID:             recipe.ID,
		Name:           recipe.Name,
		Method:         recipe.Method,
		Unit:           recipe.Unit,
		OutputQuantity: recipe.OutputQuantity,
		Changes:        changes,
		CreatedAt:      recipe.CreatedAt,
		UpdatedAt:      recipe.UpdatedAt,
	}

	for _, ingredient := range recipe.Ingredients {
		entry := recipeIngredientResponse{
			MaterialID:  ingredient.MaterialID,
			SubRecipeID: ingredient.SubRecipeID,
			Quantity:    ingredient.Quantity,
			Category:    ingredient.Category,
		}
		if ingredient.Material != nil {
			entry.Name = ingredient.Material.Name
		} else if ingredient.SubRecipe != nil {
			entry.Name = ingredient.SubRecipe.Name
		}
		resp.Ingredients = append(resp.Ingredients, entry)
	}

	if recipe.Wizard != nil {
		wizard := &wizardRequest{
			BibitPercent:    recipe.Wizard.BibitPercent,
			FixativePercent: recipe.Wizard.FixativePercent,
			AlcoholPercent:  recipe.Wizard.AlcoholPercent,
		}
		if recipe.Wizard.FixativeID != nil {
			wizard.FixativeID = *recipe.Wizard.FixativeID
		}
		if recipe.Wizard.AlcoholID != nil {
			wizard.AlcoholID = *recipe.Wizard.AlcoholID
		}
		for _, share := range recipe.Wizard.BibitMaterials {
			wizard.BibitMaterials = append(wizard.BibitMaterials, wizardShareRequest{
				MaterialID:   share.MaterialID,
				PercentShare: share.PercentShare,
			})
		}
		resp.Wizard = wizard
	}

	return resp
}

func parseQuantityParam(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return value, nil
}
