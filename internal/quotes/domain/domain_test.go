package domain

import "testing"

func TestTotalAndCommission(t *testing.T) {
	// Two felled pines at 100 kr each plus one stump grind at 50 kr:
	// total 250 kr, commission 25 kr at 10%.
	// The included inspection visit is a free line and must not disturb
	// the total.
	lines := []Line{
		{Quantity: 2, CostOre: 10000},
		{Quantity: 1, CostOre: 5000},
		{Quantity: 1, CostOre: 0},
	}

	total := Total(lines)
	if total != 25000 {
		t.Fatalf("total = %d, want 25000", total)
	}
	if got := Commission(total, 1000); got != 2500 {
		t.Fatalf("commission = %d, want 2500", got)
	}
}

func TestCommissionRoundsHalfUp(t *testing.T) {
	cases := []struct {
		totalOre int64
		bps      int
		want     int64
	}{
		{100, 1000, 10},
		{105, 1000, 11},  // 10.5 rounds up
		{104, 1000, 10},  // 10.4 rounds down
		{1, 1000, 0},     // 0.1 rounds down
		{5, 1000, 1},     // 0.5 rounds up
		{25000, 0, 0},
		{25000, 10000, 25000},
	}
	for _, tc := range cases {
		if got := Commission(tc.totalOre, tc.bps); got != tc.want {
			t.Fatalf("Commission(%d, %d) = %d, want %d", tc.totalOre, tc.bps, got, tc.want)
		}
	}
}

func TestValidateOperationRequiresCustomTextForAnnat(t *testing.T) {
	if _, err := ValidateOperation("Annat", ""); err == nil {
		t.Fatal("expected error for Annat without custom operation")
	}
	op, err := ValidateOperation("Annat", "Flytta fågelholk")
	if err != nil {
		t.Fatalf("ValidateOperation: %v", err)
	}
	if op != OpOther {
		t.Fatalf("op = %s, want Annat", op)
	}

	if _, err := ValidateOperation("Trädfällning", ""); err != nil {
		t.Fatalf("standard operation should not need custom text: %v", err)
	}
	if _, err := ValidateOperation("Klippa häck", ""); err == nil {
		t.Fatal("expected error for unknown operation")
	}
}

func TestMaintenancePruningLabel(t *testing.T) {
	// The catalog labels are what partner clients send back verbatim, so
	// they are pinned here.
	const want = "Underhållsbeskärning"
	if got := string(OpMaintenancePruning); got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}
	if _, err := ValidateOperation(want, ""); err != nil {
		t.Fatalf("ValidateOperation(%q): %v", want, err)
	}
}

func TestValidateSpecies(t *testing.T) {
	if _, err := ValidateSpecies("Tall (Pine)"); err != nil {
		t.Fatalf("ValidateSpecies: %v", err)
	}
	if _, err := ValidateSpecies("Palm"); err == nil {
		t.Fatal("expected error for unknown species")
	}
}

func TestCatalogSizes(t *testing.T) {
	if n := len(AllSpecies()); n != 16 {
		t.Fatalf("species catalog has %d entries, want 16", n)
	}
	if n := len(AllOperations()); n != 15 {
		t.Fatalf("operation catalog has %d entries, want 15", n)
	}
}
