package models

import (
	"gorm.io/gorm"
)

// Recipe authoring methods.
const (
	MethodManual = "manual"
	MethodWizard = "wizard"
)

// DefaultOutputQuantity is the canonical batch size every stored formula is
// normalized to. Ingredient quantities are always absolute amounts at this
// size, never live percentages.
const DefaultOutputQuantity = 100.0

type Recipe struct {
	gorm.Model
	Name           string             `gorm:"not null" json:"name"`
	Method         string             `gorm:"not null;default:manual" json:"method"`
	OutputQuantity float64            `gorm:"not null;default:100" json:"output_quantity"`
	Unit           string             `gorm:"not null;default:ml" json:"unit"`
	OwnerID        uint               `gorm:"not null;index" json:"owner_id"`
	Owner          *User              `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Ingredients    []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
	Wizard         *RecipeWizard      `gorm:"foreignKey:RecipeID" json:"wizard,omitempty"`
}

// RecipeWizard holds the method-specific metadata for wizard recipes: the
// three category percentages plus the fixative and solvent selections.
type RecipeWizard struct {
	gorm.Model
	RecipeID        uint                  `gorm:"not null;uniqueIndex" json:"recipe_id"`
	BibitPercent    float64               `gorm:"not null" json:"bibit_percent"`
	FixativePercent float64               `gorm:"not null" json:"fixative_percent"`
	AlcoholPercent  float64               `gorm:"not null" json:"alcohol_percent"`
	FixativeID      *uint                 `json:"fixative_id,omitempty"`
	AlcoholID       *uint                 `json:"alcohol_id,omitempty"`
	BibitMaterials  []WizardBibitMaterial `gorm:"foreignKey:WizardID" json:"bibit_materials"`
}

// WizardBibitMaterial is one concentrate's share of the wizard bibit block.
type WizardBibitMaterial struct {
	gorm.Model
	WizardID     uint    `gorm:"not null;index" json:"wizard_id"`
	MaterialID   uint    `gorm:"not null" json:"material_id"`
	PercentShare float64 `gorm:"not null" json:"percent_share"`
}
