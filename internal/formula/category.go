package formula

import (
	"strings"

	"aromastock/models"
)

var categoryKeywords = map[string][]string{
	models.CategoryBibit:    {"bibit", "concentrate", "essence", "absolute"},
	models.CategoryFixative: {"fixative", "fixatif", "musk", "resin"},
	models.CategorySolvent:  {"alcohol", "alkohol", "ethanol", "etanol", "solvent", "pelarut", "dpg"},
}

// InferCategory assigns a category tag from a material name. It runs once
// at authoring time and the result is persisted on the ingredient edge;
// resolution never re-infers. Unrecognized names fall back to general.
func InferCategory(materialName string) string {
	name := strings.ToLower(materialName)
	for _, category := range []string{models.CategoryBibit, models.CategoryFixative, models.CategorySolvent} {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(name, keyword) {
				return category
			}
		}
	}
	return models.CategoryGeneral
}
