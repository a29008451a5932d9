package formula

// Entry modes for manual authoring: an absolute quantity in batch units, or
// a percentage share of the as-yet-unknown total batch size.
const (
	ModeQuantity = "QTY"
	ModePercent  = "PCT"
)

// Line is one authored ingredient entry before normalization. Exactly one
// of MaterialID/SubRecipeID is set, matching the stored ingredient edge.
type Line struct {
	MaterialID  *uint   `json:"material_id,omitempty"`
	SubRecipeID *uint   `json:"sub_recipe_id,omitempty"`
	Mode        string  `json:"mode"`
	Value       float64 `json:"value"`
	Category    string  `json:"category,omitempty"`
}

// Resolved is a normalized ingredient line carrying an absolute quantity in
// the recipe's unit space.
type Resolved struct {
	MaterialID  *uint   `json:"material_id,omitempty"`
	SubRecipeID *uint   `json:"sub_recipe_id,omitempty"`
	Quantity    float64 `json:"quantity"`
	Category    string  `json:"category"`
}

// Normalize converts a mixed fixed-quantity/percentage draft into absolute
// per-batch quantities. Percentage entries are shares of the implied total
// batch size: with sumFixed worth of fixed entries and p as the summed
// percentage fraction, the total solves to sumFixed / (1 - p). A formula
// whose percentages reach 100% has no finite total and is rejected. When
// every entry is a percentage the canonical output quantity is used as the
// total. Returns the resolved lines and the implied total batch size.
func Normalize(lines []Line, outputQuantity float64) ([]Resolved, float64, error) {
	if len(lines) == 0 {
		return nil, 0, validationErrorf("ingredients", "at least one ingredient is required")
	}
	if outputQuantity <= 0 {
		return nil, 0, validationErrorf("output_quantity", "output quantity must be positive")
	}

	var sumFixed, sumPercent float64
	for i, line := range lines {
		if err := validateLine(i, line); err != nil {
			return nil, 0, err
		}
		switch line.Mode {
		case ModeQuantity:
			sumFixed += line.Value
		case ModePercent:
			sumPercent += line.Value
		}
	}

	pctFraction := sumPercent / 100
	if pctFraction >= 1 {
		return nil, 0, validationErrorf("ingredients",
			"percentage shares total %.2f%%; they must stay under 100%% of the batch", sumPercent)
	}

	total := sumFixed
	if pctFraction > 0 {
		if sumFixed == 0 {
			total = outputQuantity
		} else {
			total = sumFixed / (1 - pctFraction)
		}
	}

	resolved := make([]Resolved, 0, len(lines))
	for _, line := range lines {
		quantity := line.Value
		if line.Mode == ModePercent {
			quantity = total * line.Value / 100
		}
		resolved = append(resolved, Resolved{
			MaterialID:  line.MaterialID,
			SubRecipeID: line.SubRecipeID,
			Quantity:    quantity,
			Category:    line.Category,
		})
	}

	return resolved, total, nil
}

func validateLine(index int, line Line) error {
	hasMaterial := line.MaterialID != nil && *line.MaterialID != 0
	hasSubRecipe := line.SubRecipeID != nil && *line.SubRecipeID != 0

	if hasMaterial && hasSubRecipe {
		return validationErrorf("ingredients", "entry %d links both a material and a recipe", index+1)
	}
	if !hasMaterial && !hasSubRecipe {
		return validationErrorf("ingredients", "entry %d links neither a material nor a recipe", index+1)
	}
	if line.Mode != ModeQuantity && line.Mode != ModePercent {
		return validationErrorf("ingredients", "entry %d has unknown mode %q", index+1, line.Mode)
	}
	if line.Value <= 0 {
		return validationErrorf("ingredients", "entry %d must have a positive value", index+1)
	}
	return nil
}
