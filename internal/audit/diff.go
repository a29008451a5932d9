package audit

import (
	"fmt"
	"math"
	"strings"

	"aromastock/models"
)

// changeThreshold is the smallest percentage movement recorded as a change.
const changeThreshold = 0.01

// Change is one entry of a formula diff. Values are percentages: category
// or share percentages for wizard recipes, percent-of-canonical-output for
// manual ones. An added entry has OldValue 0, a removed entry NewValue 0.
type Change struct {
	Subject  string  `json:"subject"`
	OldValue float64 `json:"old_value"`
	NewValue float64 `json:"new_value"`
}

// Namer resolves record ids to display names for diff subjects.
type Namer struct {
	Materials map[uint]string
	Recipes   map[uint]string
}

func (n Namer) material(id uint) string {
	if name, ok := n.Materials[id]; ok {
		return name
	}
	return fmt.Sprintf("material #%d", id)
}

func (n Namer) recipe(id uint) string {
	if name, ok := n.Recipes[id]; ok {
		return name
	}
	return fmt.Sprintf("recipe #%d", id)
}

// DiffWizard compares two wizard formulas: the three category percentages by
// plain inequality, then the bibit composition keyed by material.
func DiffWizard(old, new *models.RecipeWizard, names Namer) []Change {
	var changes []Change

	categories := []struct {
		subject  string
		oldValue float64
		newValue float64
	}{
		{"Bibit %", old.BibitPercent, new.BibitPercent},
		{"Fixative %", old.FixativePercent, new.FixativePercent},
		{"Alcohol %", old.AlcoholPercent, new.AlcoholPercent},
	}
	for _, category := range categories {
		if category.oldValue != category.newValue {
			changes = append(changes, Change{Subject: category.subject, OldValue: category.oldValue, NewValue: category.newValue})
		}
	}

	oldShares := make(map[uint]float64, len(old.BibitMaterials))
	for _, share := range old.BibitMaterials {
		oldShares[share.MaterialID] = share.PercentShare
	}
	newShares := make(map[uint]float64, len(new.BibitMaterials))
	for _, share := range new.BibitMaterials {
		newShares[share.MaterialID] = share.PercentShare
	}

	for _, share := range old.BibitMaterials {
		newValue, kept := newShares[share.MaterialID]
		if !kept {
			changes = append(changes, Change{Subject: names.material(share.MaterialID), OldValue: share.PercentShare})
			continue
		}
		if math.Abs(share.PercentShare-newValue) > changeThreshold {
			changes = append(changes, Change{Subject: names.material(share.MaterialID), OldValue: share.PercentShare, NewValue: newValue})
		}
	}
	for _, share := range new.BibitMaterials {
		if _, existed := oldShares[share.MaterialID]; !existed {
			changes = append(changes, Change{Subject: names.material(share.MaterialID), NewValue: share.PercentShare})
		}
	}

	return changes
}

// DiffManual compares two manual ingredient sets keyed by their stable
// material or sub-recipe link. Quantities are expressed as a percentage of
// the canonical output quantity for readability.
func DiffManual(old, new []models.RecipeIngredient, outputQuantity float64, names Namer) []Change {
	if outputQuantity <= 0 {
		outputQuantity = models.DefaultOutputQuantity
	}

	percentOf := func(quantity float64) float64 {
		return quantity / outputQuantity * 100
	}

	oldByKey := ingredientPercentages(old, percentOf)
	newByKey := ingredientPercentages(new, percentOf)

	var changes []Change
	seen := make(map[string]bool)
	for _, ingredient := range old {
		key := ingredientKey(ingredient)
		if seen[key] {
			continue
		}
		seen[key] = true
		oldValue := oldByKey[key]
		newValue, kept := newByKey[key]
		if !kept {
			changes = append(changes, Change{Subject: ingredientSubject(ingredient, names), OldValue: oldValue})
			continue
		}
		if math.Abs(oldValue-newValue) > changeThreshold {
			changes = append(changes, Change{Subject: ingredientSubject(ingredient, names), OldValue: oldValue, NewValue: newValue})
		}
	}
	for _, ingredient := range new {
		key := ingredientKey(ingredient)
		if seen[key] {
			continue
		}
		seen[key] = true
		changes = append(changes, Change{Subject: ingredientSubject(ingredient, names), NewValue: newByKey[key]})
	}

	return changes
}

func ingredientPercentages(ingredients []models.RecipeIngredient, percentOf func(float64) float64) map[string]float64 {
	byKey := make(map[string]float64, len(ingredients))
	for _, ingredient := range ingredients {
		byKey[ingredientKey(ingredient)] += percentOf(ingredient.Quantity)
	}
	return byKey
}

func ingredientKey(ingredient models.RecipeIngredient) string {
	if ingredient.MaterialID != nil && *ingredient.MaterialID != 0 {
		return fmt.Sprintf("material:%d", *ingredient.MaterialID)
	}
	if ingredient.SubRecipeID != nil && *ingredient.SubRecipeID != 0 {
		return fmt.Sprintf("recipe:%d", *ingredient.SubRecipeID)
	}
	return "unlinked"
}

func ingredientSubject(ingredient models.RecipeIngredient, names Namer) string {
	if ingredient.MaterialID != nil && *ingredient.MaterialID != 0 {
		return names.material(*ingredient.MaterialID)
	}
	if ingredient.SubRecipeID != nil && *ingredient.SubRecipeID != 0 {
		return names.recipe(*ingredient.SubRecipeID)
	}
	return "unlinked ingredient"
}

// Summary renders a change list as a single human-readable line.
func Summary(changes []Change) string {
	parts := make([]string, 0, len(changes))
	for _, change := range changes {
		parts = append(parts, fmt.Sprintf("%s: %.2f%% -> %.2f%%", change.Subject, change.OldValue, change.NewValue))
	}
	return strings.Join(parts, "; ")
}
