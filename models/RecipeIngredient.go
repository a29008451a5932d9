package models

import (
	"gorm.io/gorm"
)

// Ingredient categories. Assigned once at authoring time and persisted on
// the ingredient edge rather than re-inferred on every resolution.
const (
	CategoryBibit    = "bibit"
	CategoryFixative = "fixative"
	CategorySolvent  = "solvent"
	CategoryGeneral  = "general"
)

// RecipeIngredient is an edge in the composition graph.
type RecipeIngredient struct {
	gorm.Model
	RecipeID uint    `gorm:"not null;index" json:"recipe_id"` // owning recipe
	Quantity float64 `gorm:"not null" json:"quantity"`        // absolute, scaled to the owner's output quantity
	Category string  `gorm:"not null;default:general" json:"category"`

	// --- Ingredient Link ---
	// Exactly one of these is non-null: a leaf material or a nested recipe.
	MaterialID  *uint `json:"material_id,omitempty"`
	SubRecipeID *uint `json:"sub_recipe_id,omitempty"`

	Material  *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	SubRecipe *Recipe   `gorm:"foreignKey:SubRecipeID" json:"sub_recipe,omitempty"`
}
