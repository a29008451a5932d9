package costing

import (
	"github.com/shopspring/decimal"

	"aromastock/internal/resolver"
	"aromastock/models"
)

// Line prices one resolved requirement. Opaque sub-recipe lines and missing
// references carry no price and cost zero.
type Line struct {
	MaterialID   uint            `json:"material_id,omitempty"`
	SubRecipeID  uint            `json:"sub_recipe_id,omitempty"`
	Name         string          `json:"name"`
	Quantity     float64         `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Cost         decimal.Decimal `json:"cost"`
}

// Estimate is the priced view of a resolved batch.
type Estimate struct {
	Lines             []Line          `json:"lines"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	OutputUnits       int64           `json:"output_units"`
	CostPerOutputUnit decimal.Decimal `json:"cost_per_output_unit"`
}

// PricePerUnit derives the per-unit price from pack pricing. A pack amount
// under one means the recorded price is already per unit.
func PricePerUnit(material *models.Material) decimal.Decimal {
	price := decimal.NewFromFloat(material.Price)
	if material.PackAmount > 1 {
		return price.Div(decimal.NewFromFloat(material.PackAmount))
	}
	return price
}

// Price computes the cost of a resolved batch using current catalog prices.
// unitSize is the secondary packaging size; when positive, the estimate also
// reports how many whole output units fit in the batch and the cost of each.
func Price(result *resolver.Result, cat *resolver.Catalog, unitSize float64) Estimate {
	estimate := Estimate{
		Lines:     make([]Line, 0, len(result.Ingredients)),
		TotalCost: decimal.Zero,
	}

	for _, leaf := range result.Ingredients {
		line := Line{
			MaterialID:  leaf.MaterialID,
			SubRecipeID: leaf.SubRecipeID,
			Name:        leaf.Name,
			Quantity:    leaf.Quantity,
			Unit:        leaf.Unit,
		}
		if leaf.MaterialID != 0 && !leaf.Missing {
			if material, ok := cat.Material(leaf.MaterialID); ok {
				line.PricePerUnit = PricePerUnit(material)
				line.Cost = line.PricePerUnit.Mul(decimal.NewFromFloat(leaf.Quantity))
			}
		}
		estimate.TotalCost = estimate.TotalCost.Add(line.Cost)
		estimate.Lines = append(estimate.Lines, line)
	}

	if unitSize > 0 {
		units := decimal.NewFromFloat(result.TargetQuantity).
			Div(decimal.NewFromFloat(unitSize)).
			Floor().
			IntPart()
		estimate.OutputUnits = units
		if units > 0 {
			estimate.CostPerOutputUnit = estimate.TotalCost.Div(decimal.NewFromInt(units))
		}
	}

	return estimate
}

// HistoricalCost prices a production snapshot. Prices frozen at production
// time win over current catalog prices so later edits never rewrite past
// reports; lines without a captured price fall back to the material's
// current price, an intentional approximation.
func HistoricalCost(batch *models.ProductionBatch, current map[uint]*models.Material) decimal.Decimal {
	total := decimal.Zero
	for _, line := range batch.Ingredients {
		perUnit := decimal.Zero
		if line.PricePerUnit.Valid {
			perUnit = line.PricePerUnit.Decimal
		} else if material, ok := current[line.MaterialID]; ok {
			perUnit = PricePerUnit(material)
		}
		total = total.Add(perUnit.Mul(decimal.NewFromFloat(line.Quantity)))
	}
	return total
}
