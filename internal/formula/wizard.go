package formula

import (
	"math"

	"aromastock/models"
)

// percentTolerance is the slack allowed when category or share percentages
// are required to sum to 100.
const percentTolerance = 0.1

// BibitShare is one concentrate's share of the wizard bibit block.
type BibitShare struct {
	MaterialID   uint
	PercentShare float64
}

// WizardSpec is the three-category authoring form: a bibit block split
// across one or more concentrates, plus single fixative and solvent picks.
type WizardSpec struct {
	BibitPercent    float64
	FixativePercent float64
	AlcoholPercent  float64
	FixativeID      uint
	AlcoholID       uint
	BibitMaterials  []BibitShare
}

// Validate checks the wizard invariants: the three category percentages sum
// to 100, the bibit shares sum to 100, and at least one bibit concentrate is
// selected. Violations name the offending total.
func (s WizardSpec) Validate() error {
	categoryTotal := s.BibitPercent + s.FixativePercent + s.AlcoholPercent
	if math.Abs(categoryTotal-100) > percentTolerance {
		return validationErrorf("percentages",
			"bibit, fixative and alcohol percentages sum to %.2f%%, expected 100%%", categoryTotal)
	}

	if len(s.BibitMaterials) == 0 {
		return validationErrorf("bibit_materials", "select at least one bibit material")
	}

	shareTotal := 0.0
	for _, share := range s.BibitMaterials {
		if share.MaterialID == 0 {
			return validationErrorf("bibit_materials", "every bibit entry must reference a material")
		}
		if share.PercentShare <= 0 {
			return validationErrorf("bibit_materials", "every bibit share must be positive")
		}
		shareTotal += share.PercentShare
	}
	if math.Abs(shareTotal-100) > percentTolerance {
		return validationErrorf("bibit_materials",
			"bibit shares sum to %.2f%%, expected 100%%", shareTotal)
	}

	if s.FixativePercent > 0 && s.FixativeID == 0 {
		return validationErrorf("fixative", "a fixative material is required when its percentage is set")
	}
	if s.AlcoholPercent > 0 && s.AlcoholID == 0 {
		return validationErrorf("alcohol", "a solvent material is required when its percentage is set")
	}

	return nil
}

// NormalizeWizard expands a validated wizard spec into absolute ingredient
// quantities at the canonical output size: the bibit block takes its
// category percentage of the batch and is split by share, fixative and
// solvent take theirs directly.
func NormalizeWizard(spec WizardSpec, outputQuantity float64) ([]Resolved, error) {
	if outputQuantity <= 0 {
		return nil, validationErrorf("output_quantity", "output quantity must be positive")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	bibitTotal := outputQuantity * spec.BibitPercent / 100
	resolved := make([]Resolved, 0, len(spec.BibitMaterials)+2)
	for _, share := range spec.BibitMaterials {
		id := share.MaterialID
		resolved = append(resolved, Resolved{
			MaterialID: &id,
			Quantity:   bibitTotal * share.PercentShare / 100,
			Category:   models.CategoryBibit,
		})
	}

	if spec.FixativePercent > 0 {
		id := spec.FixativeID
		resolved = append(resolved, Resolved{
			MaterialID: &id,
			Quantity:   outputQuantity * spec.FixativePercent / 100,
			Category:   models.CategoryFixative,
		})
	}

	if spec.AlcoholPercent > 0 {
		id := spec.AlcoholID
		resolved = append(resolved, Resolved{
			MaterialID: &id,
			Quantity:   outputQuantity * spec.AlcoholPercent / 100,
			Category:   models.CategorySolvent,
		})
	}

	return resolved, nil
}
