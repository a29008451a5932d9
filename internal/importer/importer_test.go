package importer

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"aromastock/internal/formula"
	"aromastock/models"
)

func TestParseText(t *testing.T) {
	t.Parallel()

	text := `Recipe: Melati Royale

	Bibit Melati 35 ml
	- Bibit Mawar, 15ml
	Fixative Base: 4 ml
	Alkohol 96% 46%

	Notes: macerate for two weeks.`

	lines, err := ParseText(text)
	if err != nil {
		t.Fatalf("ParseText returned error: %v", err)
	}
	want := []ParsedLine{
		{Name: "Bibit Melati", Quantity: 35, Unit: "ml"},
		{Name: "Bibit Mawar", Quantity: 15, Unit: "ml"},
		{Name: "Fixative Base", Quantity: 4, Unit: "ml"},
		{Name: "Alkohol 96%", Quantity: 46, Percent: true},
	}
	if len(lines) != len(want) {
		t.Fatalf("parsed %d lines, want %d: %+v", len(lines), len(want), lines)
	}
	for i, line := range lines {
		if line != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, line, want[i])
		}
	}
}

func TestParseTextDecimalComma(t *testing.T) {
	t.Parallel()

	lines, err := ParseText("Musk Resin 2,5 ml")
	if err != nil {
		t.Fatalf("ParseText returned error: %v", err)
	}
	if lines[0].Quantity != 2.5 {
		t.Fatalf("quantity = %v, want 2.5", lines[0].Quantity)
	}
}

func TestParseTextRejectsEmptySheet(t *testing.T) {
	t.Parallel()

	if _, err := ParseText("shopping list\nno amounts here"); err == nil {
		t.Fatal("expected error for sheet without ingredient lines")
	}
}

func TestScaleTo(t *testing.T) {
	t.Parallel()

	lines := []ParsedLine{
		{Name: "Bibit Melati", Quantity: 20, Unit: "ml"},
		{Name: "Fixative Base", Quantity: 5, Unit: "ml"},
		{Name: "Alkohol 96%", Quantity: 46, Percent: true},
	}
	scaled := ScaleTo(lines, 100)
	if scaled[0].Quantity != 80 || scaled[1].Quantity != 20 {
		t.Fatalf("fixed lines scaled to %v/%v, want 80/20", scaled[0].Quantity, scaled[1].Quantity)
	}
	if scaled[2].Quantity != 46 {
		t.Fatalf("percent line changed to %v, want 46", scaled[2].Quantity)
	}
}

func TestMatchCatalog(t *testing.T) {
	t.Parallel()

	materials := []models.Material{
		{Model: gorm.Model{ID: 1}, Name: "Bibit Melati"},
		{Model: gorm.Model{ID: 2}, Name: "Fixative Base"},
	}
	retired := models.Material{Model: gorm.Model{ID: 3}, Name: "Old Musk"}
	retired.DeletedAt = gorm.DeletedAt{Valid: true}
	materials = append(materials, retired)

	lines := []ParsedLine{
		{Name: "bibit melati", Quantity: 35},
		{Name: "Old Musk", Quantity: 5},
		{Name: "Unknown Oil", Quantity: 10},
	}
	matches, warnings := MatchCatalog(lines, materials)
	if !matches[0].Matched || matches[0].MaterialID != 1 {
		t.Fatalf("case-insensitive match failed: %+v", matches[0])
	}
	if matches[1].Matched {
		t.Fatal("retired material must not match")
	}
	if matches[2].Matched {
		t.Fatal("unknown material must not match")
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[1], "Unknown Oil") {
		t.Fatalf("warning does not name the missing material: %q", warnings[1])
	}
}

func TestDraftLines(t *testing.T) {
	t.Parallel()

	matches := []Match{
		{Line: ParsedLine{Name: "Bibit Melati", Quantity: 35}, MaterialID: 1, Matched: true},
		{Line: ParsedLine{Name: "Alkohol 96%", Quantity: 46, Percent: true}, MaterialID: 2, Matched: true},
		{Line: ParsedLine{Name: "Unknown Oil", Quantity: 10}},
	}
	lines := DraftLines(matches)
	if len(lines) != 2 {
		t.Fatalf("got %d draft lines, want 2", len(lines))
	}
	if lines[0].Mode != formula.ModeQuantity || lines[0].Category != models.CategoryBibit {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Mode != formula.ModePercent || lines[1].Category != models.CategorySolvent {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}
