package resolver

import (
	"errors"
	"fmt"
	"math"

	"aromastock/models"
)

// SubRecipePolicy controls how nested recipes participate in stock checks.
type SubRecipePolicy string

const (
	// SubRecipeOpaque keeps a nested recipe as a single non-depleting line:
	// its own materials are neither checked nor deducted.
	SubRecipeOpaque SubRecipePolicy = "opaque"
	// SubRecipeDeplete expands nested recipes into their base materials so
	// availability and deduction reach all the way down.
	SubRecipeDeplete SubRecipePolicy = "deplete"
)

var (
	ErrRecipeNotFound    = errors.New("resolver: recipe not found")
	ErrCircularReference = errors.New("resolver: circular recipe reference")
	ErrEmptyRecipe       = errors.New("resolver: recipe has no ingredients")
)

// Catalog is the in-memory material and recipe set a resolution runs over.
type Catalog struct {
	materials map[uint]*models.Material
	recipes   map[uint]*models.Recipe
}

// NewCatalog indexes the owner's materials and recipes for resolution.
func NewCatalog(materials []models.Material, recipes []models.Recipe) *Catalog {
	cat := &Catalog{
		materials: make(map[uint]*models.Material, len(materials)),
		recipes:   make(map[uint]*models.Recipe, len(recipes)),
	}
	for i := range materials {
		cat.materials[materials[i].ID] = &materials[i]
	}
	for i := range recipes {
		cat.recipes[recipes[i].ID] = &recipes[i]
	}
	return cat
}

// Material looks up a material by id.
func (c *Catalog) Material(id uint) (*models.Material, bool) {
	m, ok := c.materials[id]
	return m, ok
}

// Recipe looks up a recipe by id.
func (c *Catalog) Recipe(id uint) (*models.Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// Requirement is one line of a resolved batch: a base material, an opaque
// sub-recipe, or a dangling reference rendered as permanently unavailable.
type Requirement struct {
	MaterialID      uint    `json:"material_id,omitempty"`
	SubRecipeID     uint    `json:"sub_recipe_id,omitempty"`
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	Category        string  `json:"category"`
	Quantity        float64 `json:"quantity"`
	Stock           float64 `json:"stock"`
	Shortfall       float64 `json:"shortfall"`
	Enough          bool    `json:"enough"`
	Retired         bool    `json:"retired"`
	Missing         bool    `json:"missing"`
	Percentage      float64 `json:"percentage"`
	InnerPercentage float64 `json:"inner_percentage"`
}

// CategoryGroup is the per-category view of a resolution, with each line's
// share recomputed against the category subtotal.
type CategoryGroup struct {
	Category    string        `json:"category"`
	Subtotal    float64       `json:"subtotal"`
	Percentage  float64       `json:"percentage"`
	Ingredients []Requirement `json:"ingredients"`
}

// Result is the flattened outcome of resolving one recipe at a target size.
type Result struct {
	RecipeID       uint            `json:"recipe_id"`
	RecipeName     string          `json:"recipe_name"`
	Unit           string          `json:"unit"`
	TargetQuantity float64         `json:"target_quantity"`
	Total          float64         `json:"total"`
	Ingredients    []Requirement   `json:"ingredients"`
	Categories     []CategoryGroup `json:"categories"`
	FullyAvailable bool            `json:"fully_available"`
}

// Resolve expands a recipe into a flat base-material requirement list
// scaled to the target batch quantity. Material lines repeated across
// nesting levels are accumulated into one requirement. A recipe reaching
// itself through sub-recipe links fails fast with ErrCircularReference.
func Resolve(cat *Catalog, recipeID uint, target float64, policy SubRecipePolicy) (*Result, error) {
	recipe, ok := cat.Recipe(recipeID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrRecipeNotFound, recipeID)
	}
	if target <= 0 {
		return nil, fmt.Errorf("resolver: target quantity must be positive, got %v", target)
	}
	if policy == "" {
		policy = SubRecipeOpaque
	}

	visited := make(map[uint]bool)
	leaves, err := expand(cat, recipe, target, policy, visited)
	if err != nil {
		return nil, err
	}

	leaves = mergeMaterialLines(leaves)

	total := 0.0
	available := true
	for _, leaf := range leaves {
		total += leaf.Quantity
		if !leaf.Enough {
			available = false
		}
	}
	if total > 0 {
		for i := range leaves {
			leaves[i].Percentage = leaves[i].Quantity / total * 100
		}
	}

	return &Result{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		Unit:           recipe.Unit,
		TargetQuantity: target,
		Total:          total,
		Ingredients:    leaves,
		Categories:     groupByCategory(leaves, total),
		FullyAvailable: available,
	}, nil
}

func expand(cat *Catalog, recipe *models.Recipe, target float64, policy SubRecipePolicy, visited map[uint]bool) ([]Requirement, error) {
	if visited[recipe.ID] {
		return nil, fmt.Errorf("%w: %q reachable from itself", ErrCircularReference, recipe.Name)
	}
	visited[recipe.ID] = true
	defer delete(visited, recipe.ID)

	if len(recipe.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyRecipe, recipe.Name)
	}
	if recipe.OutputQuantity <= 0 {
		return nil, fmt.Errorf("resolver: recipe %q has no positive output quantity", recipe.Name)
	}

	ratio := target / recipe.OutputQuantity

	var leaves []Requirement
	for _, ingredient := range recipe.Ingredients {
		required := ratio * ingredient.Quantity

		switch {
		case ingredient.MaterialID != nil && *ingredient.MaterialID != 0:
			leaves = append(leaves, materialLeaf(cat, *ingredient.MaterialID, required, ingredient.Category))

		case ingredient.SubRecipeID != nil && *ingredient.SubRecipeID != 0:
			sub, ok := cat.Recipe(*ingredient.SubRecipeID)
			if !ok {
				// Dangling reference: render as permanently unavailable so
				// the user can see and fix the formula.
				leaves = append(leaves, Requirement{
					SubRecipeID: *ingredient.SubRecipeID,
					Name:        fmt.Sprintf("recipe #%d", *ingredient.SubRecipeID),
					Category:    ingredient.Category,
					Quantity:    required,
					Shortfall:   required,
					Missing:     true,
				})
				continue
			}
			if policy == SubRecipeDeplete {
				subLeaves, err := expand(cat, sub, required, policy, visited)
				if err != nil {
					return nil, err
				}
				leaves = append(leaves, subLeaves...)
				continue
			}
			leaves = append(leaves, Requirement{
				SubRecipeID: sub.ID,
				Name:        sub.Name,
				Unit:        sub.Unit,
				Category:    ingredient.Category,
				Quantity:    required,
				Enough:      true,
			})
		}
	}

	return leaves, nil
}

func materialLeaf(cat *Catalog, materialID uint, required float64, category string) Requirement {
	material, ok := cat.Material(materialID)
	if !ok {
		return Requirement{
			MaterialID: materialID,
			Name:       fmt.Sprintf("material #%d", materialID),
			Category:   category,
			Quantity:   required,
			Shortfall:  required,
			Missing:    true,
		}
	}

	leaf := Requirement{
		MaterialID: material.ID,
		Name:       material.Name,
		Unit:       material.Unit,
		Category:   category,
		Quantity:   required,
		Stock:      material.Quantity,
	}

	if material.Retired() {
		// A retired material never satisfies a requirement, whatever its
		// recorded stock value.
		leaf.Retired = true
		leaf.Shortfall = required
		return leaf
	}

	leaf.Enough = material.Quantity >= required
	leaf.Shortfall = math.Max(0, required-material.Quantity)
	return leaf
}

func mergeMaterialLines(leaves []Requirement) []Requirement {
	merged := make([]Requirement, 0, len(leaves))
	index := make(map[uint]int)
	for _, leaf := range leaves {
		if leaf.MaterialID == 0 || leaf.Missing {
			merged = append(merged, leaf)
			continue
		}
		if at, ok := index[leaf.MaterialID]; ok {
			merged[at].Quantity += leaf.Quantity
			if merged[at].Retired {
				merged[at].Shortfall = merged[at].Quantity
			} else {
				merged[at].Enough = merged[at].Stock >= merged[at].Quantity
				merged[at].Shortfall = math.Max(0, merged[at].Quantity-merged[at].Stock)
			}
			continue
		}
		index[leaf.MaterialID] = len(merged)
		merged = append(merged, leaf)
	}
	return merged
}

// categoryOrder fixes the display order of known categories; anything else
// follows in first-seen order.
var categoryOrder = []string{
	models.CategoryBibit,
	models.CategoryFixative,
	models.CategorySolvent,
	models.CategoryGeneral,
}

func groupByCategory(leaves []Requirement, total float64) []CategoryGroup {
	byCategory := make(map[string]*CategoryGroup)
	order := make([]string, 0, len(categoryOrder))

	appendCategory := func(name string) *CategoryGroup {
		if group, ok := byCategory[name]; ok {
			return group
		}
		group := &CategoryGroup{Category: name}
		byCategory[name] = group
		order = append(order, name)
		return group
	}
	for _, name := range categoryOrder {
		for _, leaf := range leaves {
			if leaf.Category == name {
				appendCategory(name)
				break
			}
		}
	}

	for _, leaf := range leaves {
		group := appendCategory(leaf.Category)
		group.Subtotal += leaf.Quantity
		group.Ingredients = append(group.Ingredients, leaf)
	}

	groups := make([]CategoryGroup, 0, len(order))
	for _, name := range order {
		group := byCategory[name]
		if total > 0 {
			group.Percentage = group.Subtotal / total * 100
		}
		if group.Subtotal > 0 {
			for i := range group.Ingredients {
				group.Ingredients[i].InnerPercentage = group.Ingredients[i].Quantity / group.Subtotal * 100
			}
		}
		groups = append(groups, *group)
	}
	return groups
}
