package resolver

import (
	"errors"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"

	"aromastock/models"
)

func testMaterial(id uint, name string, stock float64) models.Material {
	return models.Material{
		Model:    gorm.Model{ID: id},
		Name:     name,
		Unit:     "ml",
		Quantity: stock,
		Price:    100,
	}
}

func retiredMaterial(id uint, name string, stock float64) models.Material {
	material := testMaterial(id, name, stock)
	material.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return material
}

func materialEdge(recipeID, materialID uint, quantity float64, category string) models.RecipeIngredient {
	id := materialID
	return models.RecipeIngredient{RecipeID: recipeID, MaterialID: &id, Quantity: quantity, Category: category}
}

func subRecipeEdge(recipeID, subID uint, quantity float64) models.RecipeIngredient {
	id := subID
	return models.RecipeIngredient{RecipeID: recipeID, SubRecipeID: &id, Quantity: quantity, Category: models.CategoryGeneral}
}

func testRecipe(id uint, name string, output float64, ingredients ...models.RecipeIngredient) models.Recipe {
	return models.Recipe{
		Model:          gorm.Model{ID: id},
		Name:           name,
		Method:         models.MethodManual,
		OutputQuantity: output,
		Unit:           "ml",
		Ingredients:    ingredients,
	}
}

func requirementByMaterial(t *testing.T, result *Result, materialID uint) Requirement {
	t.Helper()
	for _, leaf := range result.Ingredients {
		if leaf.MaterialID == materialID {
			return leaf
		}
	}
	t.Fatalf("material %d not present in result: %+v", materialID, result.Ingredients)
	return Requirement{}
}

func TestResolveScalesToTargetQuantity(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{testMaterial(1, "Bibit Melati", 1000), testMaterial(2, "Alkohol 96%", 1000)},
		[]models.Recipe{testRecipe(7, "Melati Fresh", 100,
			materialEdge(7, 1, 40, models.CategoryBibit),
			materialEdge(7, 2, 10, models.CategorySolvent),
		)},
	)

	result, err := Resolve(cat, 7, 500, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if got := requirementByMaterial(t, result, 1).Quantity; math.Abs(got-200) > 1e-9 {
		t.Fatalf("material 1 requirement = %v, want 200", got)
	}
	if got := requirementByMaterial(t, result, 2).Quantity; math.Abs(got-50) > 1e-9 {
		t.Fatalf("material 2 requirement = %v, want 50", got)
	}
	if math.Abs(result.Total-250) > 1e-9 {
		t.Fatalf("total = %v, want 250", result.Total)
	}
	if !result.FullyAvailable {
		t.Fatal("expected batch to be fully available")
	}
}

func TestResolveScalingLinearity(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{testMaterial(1, "Bibit Melati", 10), testMaterial(2, "Alkohol 96%", 10)},
		[]models.Recipe{testRecipe(7, "Melati Fresh", 100,
			materialEdge(7, 1, 37.5, models.CategoryBibit),
			materialEdge(7, 2, 62.5, models.CategorySolvent),
		)},
	)

	base, err := Resolve(cat, 7, 80, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	scaled, err := Resolve(cat, 7, 240, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	for i := range base.Ingredients {
		want := base.Ingredients[i].Quantity * 3
		if got := scaled.Ingredients[i].Quantity; math.Abs(got-want) > 1e-9 {
			t.Fatalf("ingredient %d scaled quantity = %v, want %v", i, got, want)
		}
		if math.Abs(scaled.Ingredients[i].Percentage-base.Ingredients[i].Percentage) > 1e-9 {
			t.Fatalf("ingredient %d percentage changed with scale", i)
		}
	}
}

func TestResolveAvailability(t *testing.T) {
	t.Parallel()

	recipe := testRecipe(7, "Melati Fresh", 100,
		materialEdge(7, 1, 40, models.CategoryBibit),
		materialEdge(7, 2, 60, models.CategorySolvent),
	)

	cases := []struct {
		name          string
		stock1        float64
		wantAvailable bool
		wantShortfall float64
	}{
		{"insufficient", 30, false, 10},
		{"exactly enough", 40, true, 0},
		{"surplus", 55, true, 0},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cat := NewCatalog(
				[]models.Material{testMaterial(1, "Bibit Melati", tt.stock1), testMaterial(2, "Alkohol 96%", 500)},
				[]models.Recipe{recipe},
			)
			result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
			if err != nil {
				t.Fatalf("Resolve returned error: %v", err)
			}
			if result.FullyAvailable != tt.wantAvailable {
				t.Fatalf("FullyAvailable = %t, want %t", result.FullyAvailable, tt.wantAvailable)
			}
			leaf := requirementByMaterial(t, result, 1)
			if math.Abs(leaf.Shortfall-tt.wantShortfall) > 1e-9 {
				t.Fatalf("shortfall = %v, want %v", leaf.Shortfall, tt.wantShortfall)
			}
		})
	}
}

func TestResolveRetiredMaterialNeverEnough(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{retiredMaterial(1, "Bibit Mawar", 9999), testMaterial(2, "Alkohol 96%", 9999)},
		[]models.Recipe{testRecipe(7, "Mawar Classic", 100,
			materialEdge(7, 1, 40, models.CategoryBibit),
			materialEdge(7, 2, 60, models.CategorySolvent),
		)},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.FullyAvailable {
		t.Fatal("batch with a retired material must not be fully available")
	}

	leaf := requirementByMaterial(t, result, 1)
	if !leaf.Retired {
		t.Fatal("expected retired marker on the leaf")
	}
	if leaf.Enough {
		t.Fatal("retired material must never be enough")
	}
	if math.Abs(leaf.Shortfall-leaf.Quantity) > 1e-9 {
		t.Fatalf("retired shortfall = %v, want full requirement %v", leaf.Shortfall, leaf.Quantity)
	}
}

func TestResolveMissingReferencesRenderUnavailable(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{testMaterial(2, "Alkohol 96%", 100)},
		[]models.Recipe{testRecipe(7, "Broken", 100,
			materialEdge(7, 99, 40, models.CategoryBibit),
			subRecipeEdge(7, 98, 20),
			materialEdge(7, 2, 40, models.CategorySolvent),
		)},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve must not fail on dangling references: %v", err)
	}
	if result.FullyAvailable {
		t.Fatal("dangling references must make the batch unavailable")
	}

	missing := 0
	for _, leaf := range result.Ingredients {
		if leaf.Missing {
			missing++
			if leaf.Enough {
				t.Fatalf("missing reference reported as enough: %+v", leaf)
			}
		}
	}
	if missing != 2 {
		t.Fatalf("expected 2 missing lines, got %d", missing)
	}
}

func TestResolveOpaqueSubRecipe(t *testing.T) {
	t.Parallel()

	sub := testRecipe(8, "Base Accord", 100,
		materialEdge(8, 1, 100, models.CategoryBibit),
	)
	parent := testRecipe(7, "Layered", 100,
		subRecipeEdge(7, 8, 30),
		materialEdge(7, 2, 70, models.CategorySolvent),
	)

	cat := NewCatalog(
		[]models.Material{testMaterial(1, "Bibit Melati", 0), testMaterial(2, "Alkohol 96%", 500)},
		[]models.Recipe{sub, parent},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	// The nested recipe stays one always-available line even though its own
	// bibit has zero stock.
	if !result.FullyAvailable {
		t.Fatal("opaque sub-recipe must not fail availability")
	}
	var subLeaf *Requirement
	for i := range result.Ingredients {
		if result.Ingredients[i].SubRecipeID == 8 {
			subLeaf = &result.Ingredients[i]
		}
	}
	if subLeaf == nil {
		t.Fatalf("sub-recipe line missing: %+v", result.Ingredients)
	}
	if math.Abs(subLeaf.Quantity-30) > 1e-9 {
		t.Fatalf("sub-recipe quantity = %v, want 30", subLeaf.Quantity)
	}
}

func TestResolveDepleteSubRecipe(t *testing.T) {
	t.Parallel()

	sub := testRecipe(8, "Base Accord", 100,
		materialEdge(8, 1, 60, models.CategoryBibit),
		materialEdge(8, 2, 40, models.CategorySolvent),
	)
	parent := testRecipe(7, "Layered", 100,
		subRecipeEdge(7, 8, 50),
		materialEdge(7, 2, 50, models.CategorySolvent),
	)

	cat := NewCatalog(
		[]models.Material{testMaterial(1, "Bibit Melati", 25), testMaterial(2, "Alkohol 96%", 80)},
		[]models.Recipe{sub, parent},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeDeplete)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	// Sub-recipe at 50: bibit 30, alcohol 20; alcohol merges with the
	// parent's own 50 into one 70 line.
	bibit := requirementByMaterial(t, result, 1)
	if math.Abs(bibit.Quantity-30) > 1e-9 {
		t.Fatalf("bibit requirement = %v, want 30", bibit.Quantity)
	}
	alcohol := requirementByMaterial(t, result, 2)
	if math.Abs(alcohol.Quantity-70) > 1e-9 {
		t.Fatalf("alcohol requirement = %v, want 70", alcohol.Quantity)
	}
	if result.FullyAvailable {
		t.Fatal("expected bibit shortfall to make the batch unavailable")
	}
	if math.Abs(bibit.Shortfall-5) > 1e-9 {
		t.Fatalf("bibit shortfall = %v, want 5", bibit.Shortfall)
	}
}

func TestResolveCircularReference(t *testing.T) {
	t.Parallel()

	a := testRecipe(7, "A", 100, subRecipeEdge(7, 8, 50), materialEdge(7, 1, 50, models.CategoryGeneral))
	b := testRecipe(8, "B", 100, subRecipeEdge(8, 7, 50), materialEdge(8, 1, 50, models.CategoryGeneral))

	cat := NewCatalog([]models.Material{testMaterial(1, "Alkohol 96%", 100)}, []models.Recipe{a, b})

	if _, err := Resolve(cat, 7, 100, SubRecipeDeplete); !errors.Is(err, ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}

	// Opaque resolution never recurses, so the same graph stays resolvable.
	if _, err := Resolve(cat, 7, 100, SubRecipeOpaque); err != nil {
		t.Fatalf("opaque resolution failed: %v", err)
	}
}

func TestResolveGroupsByCategory(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{
			testMaterial(1, "Bibit Melati", 100),
			testMaterial(2, "Bibit Mawar", 100),
			testMaterial(3, "Fixative Base", 100),
			testMaterial(4, "Alkohol 96%", 100),
		},
		[]models.Recipe{testRecipe(7, "Wizarded", 100,
			materialEdge(7, 1, 35, models.CategoryBibit),
			materialEdge(7, 2, 15, models.CategoryBibit),
			materialEdge(7, 3, 4, models.CategoryFixative),
			materialEdge(7, 4, 46, models.CategorySolvent),
		)},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if len(result.Categories) != 3 {
		t.Fatalf("expected 3 category groups, got %d", len(result.Categories))
	}
	bibit := result.Categories[0]
	if bibit.Category != models.CategoryBibit {
		t.Fatalf("first group = %q, want bibit", bibit.Category)
	}
	if math.Abs(bibit.Subtotal-50) > 1e-9 {
		t.Fatalf("bibit subtotal = %v, want 50", bibit.Subtotal)
	}
	if math.Abs(bibit.Percentage-50) > 1e-9 {
		t.Fatalf("bibit percentage = %v, want 50", bibit.Percentage)
	}
	if math.Abs(bibit.Ingredients[0].InnerPercentage-70) > 1e-9 {
		t.Fatalf("melati inner percentage = %v, want 70", bibit.Ingredients[0].InnerPercentage)
	}
	if math.Abs(bibit.Ingredients[1].InnerPercentage-30) > 1e-9 {
		t.Fatalf("mawar inner percentage = %v, want 30", bibit.Ingredients[1].InnerPercentage)
	}
}

func TestResolveUnknownRecipe(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(nil, nil)
	if _, err := Resolve(cat, 42, 100, SubRecipeOpaque); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestShortages(t *testing.T) {
	t.Parallel()

	cat := NewCatalog(
		[]models.Material{testMaterial(1, "Bibit Melati", 10), testMaterial(2, "Alkohol 96%", 500)},
		[]models.Recipe{testRecipe(7, "Melati Fresh", 100,
			materialEdge(7, 1, 40, models.CategoryBibit),
			materialEdge(7, 2, 60, models.CategorySolvent),
		)},
	)

	result, err := Resolve(cat, 7, 100, SubRecipeOpaque)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	shortages := Shortages(result)
	if len(shortages) != 1 {
		t.Fatalf("expected one shortage, got %+v", shortages)
	}
	if shortages[0].Name != "Bibit Melati" || math.Abs(shortages[0].Shortfall-30) > 1e-9 {
		t.Fatalf("unexpected shortage: %+v", shortages[0])
	}
}
