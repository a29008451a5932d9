package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionBatch is one confirmed production run. It is created exactly
// once per run and immutable afterwards except for deletion. The ingredient
// snapshot freezes the resolved requirement list so later edits to recipes
// or material prices do not rewrite historical reports.
type ProductionBatch struct {
	gorm.Model
	RecipeID    uint                   `gorm:"not null;index" json:"recipe_id"`
	RecipeName  string                 `gorm:"not null" json:"recipe_name"`
	Quantity    float64                `gorm:"not null" json:"quantity"`
	Unit        string                 `gorm:"not null;default:ml" json:"unit"`
	TotalCost   decimal.Decimal        `gorm:"type:decimal(20,8)" json:"total_cost"`
	OwnerID     uint                   `gorm:"not null;index" json:"owner_id"`
	Ingredients []ProductionIngredient `gorm:"foreignKey:BatchID" json:"ingredients"`
}

// ProductionIngredient is one line of a batch's frozen ingredient snapshot.
// PricePerUnit is optional: older records predate price capture and fall
// back to the material's current price when reported.
type ProductionIngredient struct {
	gorm.Model
	BatchID      uint                `gorm:"not null;index" json:"batch_id"`
	MaterialID   uint                `gorm:"not null" json:"material_id"`
	MaterialName string              `gorm:"not null" json:"material_name"`
	Quantity     float64             `gorm:"not null" json:"quantity"`
	Unit         string              `gorm:"not null;default:ml" json:"unit"`
	PricePerUnit decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"price_per_unit"`
}
