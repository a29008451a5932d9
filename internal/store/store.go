package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"aromastock/internal/production"
	"aromastock/models"
)

// Store is the GORM-backed persistence layer behind the production engine.
type Store struct {
	db *gorm.DB
}

// New wraps a database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListMaterials returns the owner's materials, retired ones included:
// resolution needs them to mark historical references as unavailable.
// Callers building selection lists filter on DeletedAt themselves.
func (s *Store) ListMaterials(ctx context.Context, ownerID uint) ([]models.Material, error) {
	var materials []models.Material
	err := s.db.WithContext(ctx).
		Unscoped().
		Where("owner_id = ?", ownerID).
		Order("name asc").
		Find(&materials).Error
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListRecipes returns the owner's recipes with their full ingredient edges
// and wizard metadata. Material preloads are unscoped so retired materials
// stay visible on historical formulas instead of vanishing.
func (s *Store) ListRecipes(ctx context.Context, ownerID uint) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredients").
		Preload("Ingredients.Material", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Wizard").
		Preload("Wizard.BibitMaterials").
		Where("owner_id = ?", ownerID).
		Order("name asc").
		Find(&recipes).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// GetRecipe loads one recipe with its edges, scoped to the owner.
func (s *Store) GetRecipe(ctx context.Context, ownerID, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredients").
		Preload("Ingredients.Material", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Wizard").
		Preload("Wizard.BibitMaterials").
		Where("owner_id = ?", ownerID).
		First(&recipe, recipeID).Error
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ReplaceRecipe persists the recipe header and swaps its ingredient set
// wholesale: the previous edges are removed and the new ones inserted in one
// transaction. Ingredient rows have no identity across edits.
func (s *Store) ReplaceRecipe(ctx context.Context, recipe *models.Recipe, ingredients []models.RecipeIngredient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := *recipe
		header.Ingredients = nil
		wizard := header.Wizard
		header.Wizard = nil

		if err := tx.Save(&header).Error; err != nil {
			return fmt.Errorf("save recipe: %w", err)
		}
		recipe.ID = header.ID

		if err := tx.Unscoped().Where("recipe_id = ?", header.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear ingredients: %w", err)
		}
		for i := range ingredients {
			ingredients[i].ID = 0
			ingredients[i].RecipeID = header.ID
			if err := tx.Create(&ingredients[i]).Error; err != nil {
				return fmt.Errorf("insert ingredient: %w", err)
			}
		}

		var previous models.RecipeWizard
		err := tx.Where("recipe_id = ?", header.ID).First(&previous).Error
		switch {
		case err == nil:
			if err := tx.Unscoped().Where("wizard_id = ?", previous.ID).Delete(&models.WizardBibitMaterial{}).Error; err != nil {
				return fmt.Errorf("clear wizard shares: %w", err)
			}
			if err := tx.Unscoped().Delete(&previous).Error; err != nil {
				return fmt.Errorf("clear wizard: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("load wizard: %w", err)
		}

		if wizard != nil {
			wizard.ID = 0
			wizard.RecipeID = header.ID
			for i := range wizard.BibitMaterials {
				wizard.BibitMaterials[i].ID = 0
				wizard.BibitMaterials[i].WizardID = 0
			}
			if err := tx.Create(wizard).Error; err != nil {
				return fmt.Errorf("insert wizard: %w", err)
			}
		}

		return nil
	})
}

// CommitProduction re-validates and decrements stock for every flattened
// line and inserts the immutable history record, all in one transaction.
// The decrement is guarded: an update on "quantity >= required" that
// matches no row means stock moved since the advisory check, and the whole
// commit rolls back with ErrStaleStock.
func (s *Store) CommitProduction(ctx context.Context, commit production.Commit) (uint, error) {
	batch := models.ProductionBatch{
		RecipeID:   commit.RecipeID,
		RecipeName: commit.RecipeName,
		Quantity:   commit.Quantity,
		Unit:       commit.Unit,
		TotalCost:  commit.TotalCost,
		OwnerID:    commit.OwnerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range commit.Lines {
			result := tx.Model(&models.Material{}).
				Where("id = ? AND owner_id = ? AND quantity >= ?", line.MaterialID, commit.OwnerID, line.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Quantity))
			if result.Error != nil {
				return fmt.Errorf("deduct %s: %w", line.MaterialName, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", production.ErrStaleStock, line.MaterialName)
			}
		}

		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for _, line := range commit.Lines {
			snapshot := models.ProductionIngredient{
				BatchID:      batch.ID,
				MaterialID:   line.MaterialID,
				MaterialName: line.MaterialName,
				Quantity:     line.Quantity,
				Unit:         line.Unit,
				PricePerUnit: decimalSnapshot(line),
			}
			if err := tx.Create(&snapshot).Error; err != nil {
				return fmt.Errorf("insert snapshot line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return batch.ID, nil
}

func decimalSnapshot(line production.CommitLine) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: line.PricePerUnit, Valid: true}
}

// ListBatches returns the owner's production history, newest first.
func (s *Store) ListBatches(ctx context.Context, ownerID uint) ([]models.ProductionBatch, error) {
	var batches []models.ProductionBatch
	err := s.db.WithContext(ctx).
		Preload("Ingredients").
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}
