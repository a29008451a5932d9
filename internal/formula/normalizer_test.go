package formula

import (
	"errors"
	"math"
	"testing"
)

func materialLine(id uint, mode string, value float64) Line {
	return Line{MaterialID: &id, Mode: mode, Value: value}
}

func TestNormalizeFixedOnlyIsIdentity(t *testing.T) {
	t.Parallel()

	lines := []Line{
		materialLine(1, ModeQuantity, 40),
		materialLine(2, ModeQuantity, 25.5),
		materialLine(3, ModeQuantity, 10),
	}

	resolved, total, err := Normalize(lines, 100)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got, want := total, 75.5; math.Abs(got-want) > 1e-9 {
		t.Fatalf("total = %v, want %v", got, want)
	}
	for i, line := range lines {
		if got := resolved[i].Quantity; got != line.Value {
			t.Fatalf("entry %d quantity = %v, want %v", i, got, line.Value)
		}
	}
}

func TestNormalizeMixedFixedAndPercent(t *testing.T) {
	t.Parallel()

	// 40 fixed plus a 20% share: total = 40 / (1 - 0.2) = 50, so the
	// percent entry resolves to 10.
	lines := []Line{
		materialLine(1, ModeQuantity, 40),
		materialLine(2, ModePercent, 20),
	}

	resolved, total, err := Normalize(lines, 100)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if math.Abs(total-50) > 1e-9 {
		t.Fatalf("total = %v, want 50", total)
	}
	if math.Abs(resolved[0].Quantity-40) > 1e-9 {
		t.Fatalf("fixed quantity = %v, want 40", resolved[0].Quantity)
	}
	if math.Abs(resolved[1].Quantity-10) > 1e-9 {
		t.Fatalf("percent quantity = %v, want 10", resolved[1].Quantity)
	}
}

func TestNormalizePercentageClosure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		lines []Line
	}{
		{
			name: "single percent",
			lines: []Line{
				materialLine(1, ModeQuantity, 30),
				materialLine(2, ModePercent, 40),
			},
		},
		{
			name: "several percents",
			lines: []Line{
				materialLine(1, ModeQuantity, 12.5),
				materialLine(2, ModePercent, 15),
				materialLine(3, ModePercent, 22.5),
				materialLine(4, ModeQuantity, 7),
			},
		},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resolved, total, err := Normalize(tt.lines, 100)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			sum := 0.0
			for _, entry := range resolved {
				sum += entry.Quantity
			}
			if math.Abs(sum-total) > 1e-9 {
				t.Fatalf("resolved quantities sum to %v, total is %v", sum, total)
			}
		})
	}
}

func TestNormalizePercentOnlyUsesOutputQuantity(t *testing.T) {
	t.Parallel()

	lines := []Line{
		materialLine(1, ModePercent, 60),
		materialLine(2, ModePercent, 30),
	}

	resolved, total, err := Normalize(lines, 100)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if total != 100 {
		t.Fatalf("total = %v, want canonical 100", total)
	}
	if math.Abs(resolved[0].Quantity-60) > 1e-9 || math.Abs(resolved[1].Quantity-30) > 1e-9 {
		t.Fatalf("unexpected resolved quantities: %v, %v", resolved[0].Quantity, resolved[1].Quantity)
	}
}

func TestNormalizeRejectsFullPercentage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		lines []Line
	}{
		{
			name: "exactly 100",
			lines: []Line{
				materialLine(1, ModeQuantity, 10),
				materialLine(2, ModePercent, 100),
			},
		},
		{
			name: "over 100",
			lines: []Line{
				materialLine(1, ModePercent, 70),
				materialLine(2, ModePercent, 45),
			},
		},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Normalize(tt.lines, 100)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestNormalizeRejectsMalformedLines(t *testing.T) {
	t.Parallel()

	one := uint(1)
	two := uint(2)

	cases := []struct {
		name  string
		lines []Line
	}{
		{"empty", nil},
		{"no link", []Line{{Mode: ModeQuantity, Value: 5}}},
		{"both links", []Line{{MaterialID: &one, SubRecipeID: &two, Mode: ModeQuantity, Value: 5}}},
		{"bad mode", []Line{{MaterialID: &one, Mode: "RATIO", Value: 5}}},
		{"zero value", []Line{{MaterialID: &one, Mode: ModeQuantity, Value: 0}}},
		{"negative value", []Line{{MaterialID: &one, Mode: ModePercent, Value: -3}}},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Normalize(tt.lines, 100)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestNormalizeSubRecipeLine(t *testing.T) {
	t.Parallel()

	sub := uint(9)
	lines := []Line{
		materialLine(1, ModeQuantity, 80),
		{SubRecipeID: &sub, Mode: ModePercent, Value: 20},
	}

	resolved, total, err := Normalize(lines, 100)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if math.Abs(total-100) > 1e-9 {
		t.Fatalf("total = %v, want 100", total)
	}
	if resolved[1].SubRecipeID == nil || *resolved[1].SubRecipeID != sub {
		t.Fatalf("sub-recipe link lost during normalization: %+v", resolved[1])
	}
	if math.Abs(resolved[1].Quantity-20) > 1e-9 {
		t.Fatalf("sub-recipe quantity = %v, want 20", resolved[1].Quantity)
	}
}
