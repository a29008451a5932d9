// Package importer turns pasted or uploaded recipe sheets into draft
// ingredient lines ready for the normalizer.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"aromastock/internal/formula"
	"aromastock/models"
)

// ParsedLine is one ingredient row read from a recipe sheet.
type ParsedLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Percent  bool    `json:"percent"`
}

// Match is a parsed line resolved against the material catalog.
type Match struct {
	Line       ParsedLine `json:"line"`
	MaterialID uint       `json:"material_id,omitempty"`
	Matched    bool       `json:"matched"`
}

var lineExpr = regexp.MustCompile(`^(.*?)[\s,;:]+([0-9]+(?:[.,][0-9]+)?)\s*(%|[a-zA-Z]*)$`)

// ParseText extracts ingredient lines of the form "name 12.5 ml",
// "name, 40" or "name: 20%" from free text. Rows that do not look like an
// ingredient are skipped rather than failing the whole sheet.
func ParseText(text string) ([]ParsedLine, error) {
	var lines []ParsedLine
	for _, raw := range strings.Split(text, "\n") {
		row := strings.TrimSpace(raw)
		if row == "" {
			continue
		}
		groups := lineExpr.FindStringSubmatch(row)
		if groups == nil {
			continue
		}
		name := strings.TrimSpace(strings.Trim(groups[1], "-•*. \t"))
		if name == "" {
			continue
		}
		quantity, err := strconv.ParseFloat(strings.ReplaceAll(groups[2], ",", "."), 64)
		if err != nil || quantity <= 0 {
			continue
		}
		unit := strings.TrimSpace(groups[3])
		lines = append(lines, ParsedLine{
			Name:     name,
			Quantity: quantity,
			Unit:     strings.TrimSuffix(unit, "%"),
			Percent:  unit == "%",
		})
	}
	if len(lines) == 0 {
		return nil, errors.New("importer: no ingredient lines recognised")
	}
	return lines, nil
}

// ExtractPDF pulls the plain text out of an uploaded PDF recipe sheet.
func ExtractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("importer: read pdf: %w", err)
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("importer: page %d: %w", i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ScaleTo rescales fixed-quantity lines so their total hits the canonical
// output quantity. Percent lines are left alone: the normalizer resolves
// them against the scaled fixed total.
func ScaleTo(lines []ParsedLine, outputQuantity float64) []ParsedLine {
	total := 0.0
	for _, line := range lines {
		if !line.Percent {
			total += line.Quantity
		}
	}
	if total <= 0 || outputQuantity <= 0 {
		return lines
	}

	factor := outputQuantity / total
	scaled := make([]ParsedLine, len(lines))
	for i, line := range lines {
		scaled[i] = line
		if !line.Percent {
			scaled[i].Quantity = math.Round(line.Quantity*factor*1000) / 1000
		}
	}
	return scaled
}

// MatchCatalog resolves parsed names against the owner's materials by
// case-insensitive name. Retired materials never match. Unmatched lines are
// returned for manual mapping along with a warning per miss.
func MatchCatalog(lines []ParsedLine, materials []models.Material) ([]Match, []string) {
	byName := make(map[string]uint, len(materials))
	for _, material := range materials {
		if material.Retired() {
			continue
		}
		byName[strings.ToLower(strings.TrimSpace(material.Name))] = material.ID
	}

	matches := make([]Match, 0, len(lines))
	var warnings []string
	for _, line := range lines {
		match := Match{Line: line}
		if id, ok := byName[strings.ToLower(line.Name)]; ok {
			match.MaterialID = id
			match.Matched = true
		} else {
			warnings = append(warnings, fmt.Sprintf("%q is not in the material catalog.", line.Name))
		}
		matches = append(matches, match)
	}
	return matches, warnings
}

// DraftLines converts matched rows into normalizer input, inferring each
// line's category from the material name.
func DraftLines(matches []Match) []formula.Line {
	var lines []formula.Line
	for _, match := range matches {
		if !match.Matched {
			continue
		}
		id := match.MaterialID
		mode := formula.ModeQuantity
		if match.Line.Percent {
			mode = formula.ModePercent
		}
		lines = append(lines, formula.Line{
			MaterialID: &id,
			Mode:       mode,
			Value:      match.Line.Quantity,
			Category:   formula.InferCategory(match.Line.Name),
		})
	}
	return lines
}
