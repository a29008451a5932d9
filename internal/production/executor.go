package production

import (
	"context"
	"fmt"

	applog "aromastock/internal/log"
	"aromastock/internal/costing"
	"aromastock/internal/resolver"
)

// Executor orchestrates a production run: resolve the recipe at the
// confirmed batch size, gate on the advisory availability check, then
// delegate the authoritative stock deduction to the store's atomic commit.
type Executor struct {
	store  Store
	events EventLogger
	policy resolver.SubRecipePolicy
}

// NewExecutor builds an Executor. events may be nil.
func NewExecutor(store Store, events EventLogger, policy resolver.SubRecipePolicy) *Executor {
	if policy == "" {
		policy = resolver.SubRecipeOpaque
	}
	return &Executor{store: store, events: events, policy: policy}
}

// Preview is the feasibility view shown before confirmation.
type Preview struct {
	Resolution *resolver.Result    `json:"resolution"`
	Cost       costing.Estimate    `json:"cost"`
	Shortages  []resolver.Shortage `json:"shortages,omitempty"`
}

// Preview resolves and prices a batch without committing anything.
func (e *Executor) Preview(ctx context.Context, ownerID, recipeID uint, target, unitSize float64) (*Preview, error) {
	materials, err := e.store.ListMaterials(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	recipes, err := e.store.ListRecipes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}

	cat := resolver.NewCatalog(materials, recipes)
	result, err := resolver.Resolve(cat, recipeID, target, e.policy)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Resolution: result,
		Cost:       costing.Price(result, cat, unitSize),
		Shortages:  resolver.Shortages(result),
	}, nil
}

// Produce validates the batch and hands the stock deduction to the store.
// The advisory check here only refuses obviously infeasible batches; the
// commit re-validates atomically and may still reject with ErrStaleStock.
// On success a stock-movement event is logged, best-effort.
func (e *Executor) Produce(ctx context.Context, ownerID, recipeID uint, target, unitSize float64) (uint, *Preview, error) {
	preview, err := e.Preview(ctx, ownerID, recipeID, target, unitSize)
	if err != nil {
		return 0, nil, err
	}
	if !preview.Resolution.FullyAvailable {
		return 0, preview, fmt.Errorf("%w: %d ingredient(s) short", ErrInsufficientStock, len(preview.Shortages))
	}

	commit := Commit{
		OwnerID:    ownerID,
		RecipeID:   preview.Resolution.RecipeID,
		RecipeName: preview.Resolution.RecipeName,
		Quantity:   target,
		Unit:       preview.Resolution.Unit,
		TotalCost:  preview.Cost.TotalCost,
	}
	for _, line := range preview.Cost.Lines {
		if line.MaterialID == 0 {
			// Opaque sub-recipe lines are non-depleting labels.
			continue
		}
		commit.Lines = append(commit.Lines, CommitLine{
			MaterialID:   line.MaterialID,
			MaterialName: line.Name,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			PricePerUnit: line.PricePerUnit,
		})
	}

	batchID, err := e.store.CommitProduction(ctx, commit)
	if err != nil {
		return 0, preview, err
	}

	applog.Info(ctx, "production committed",
		"batchID", batchID,
		"recipeID", commit.RecipeID,
		"quantity", commit.Quantity,
	)

	if e.events != nil {
		e.events.LogEvent(ctx, ownerID,
			"Production recorded",
			fmt.Sprintf("Produced %.2f %s of %s.", commit.Quantity, commit.Unit, commit.RecipeName),
			"info",
			map[string]any{
				"batch_id":    batchID,
				"recipe_id":   commit.RecipeID,
				"quantity":    commit.Quantity,
				"total_cost":  commit.TotalCost,
				"ingredients": commit.Lines,
			},
		)
	}

	return batchID, preview, nil
}
