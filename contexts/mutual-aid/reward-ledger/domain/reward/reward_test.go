package reward

import "testing"

func TestComputeBaselineRequest(t *testing.T) {
	// Severity five and zero amount leave both multipliers at one.
	breakdown := Compute(5, 0, 0.5)
	if breakdown.Base != 0.5 {
		t.Fatalf("base = %v, want 0.5", breakdown.Base)
	}
	if breakdown.AccuracyBonus != 1.0 {
		t.Fatalf("bonus = %v, want 1.0", breakdown.AccuracyBonus)
	}
	if breakdown.Total != 0.5 {
		t.Fatalf("total = %v, want 0.5", breakdown.Total)
	}
}

func TestComputeHighSeverityHighAccuracy(t *testing.T) {
	// severity 8 -> 1.3, amount 99 -> 1 + log10(100)*0.1 = 1.2,
	// base = round2(0.5*1.3*1.2) = 0.78, accuracy 0.96 -> 1.5,
	// total = round2(0.78*1.5) = 1.17.
	breakdown := Compute(8, 99, 0.96)
	if breakdown.Base != 0.78 {
		t.Fatalf("base = %v, want 0.78", breakdown.Base)
	}
	if breakdown.AccuracyBonus != 1.5 {
		t.Fatalf("bonus = %v, want 1.5", breakdown.AccuracyBonus)
	}
	if breakdown.Total != 1.17 {
		t.Fatalf("total = %v, want 1.17", breakdown.Total)
	}
}

func TestComputeTotalRoundedToCents(t *testing.T) {
	// severity 9 -> 1.4, amount 9 -> 1 + log10(10)*0.1 = 1.1,
	// base = round2(0.5*1.4*1.1) = 0.77, accuracy 0.9 -> 1.3,
	// raw total 0.77*1.3 = 1.001 rounds to the credited cent value 1.0.
	breakdown := Compute(9, 9, 0.9)
	if breakdown.Base != 0.77 {
		t.Fatalf("base = %v, want 0.77", breakdown.Base)
	}
	if breakdown.Total != 1.0 {
		t.Fatalf("total = %v, want 1.0", breakdown.Total)
	}
}

func TestAccuracyBonusSteps(t *testing.T) {
	cases := []struct {
		accuracy float64
		want     float64
	}{
		{0.95, 1.5},
		{0.94, 1.3},
		{0.9, 1.3},
		{0.89, 1.1},
		{0.8, 1.1},
		{0.79, 1.0},
		{0, 1.0},
	}
	for _, tc := range cases {
		if got := AccuracyBonus(tc.accuracy); got != tc.want {
			t.Errorf("AccuracyBonus(%v) = %v, want %v", tc.accuracy, got, tc.want)
		}
	}
}

func TestComputeMonotonicInSeverityAndAmount(t *testing.T) {
	if Compute(9, 100, 0.8).Total <= Compute(6, 100, 0.8).Total {
		t.Fatalf("higher severity must not pay less")
	}
	if Compute(6, 500, 0.8).Total <= Compute(6, 5, 0.8).Total {
		t.Fatalf("higher amount must not pay less")
	}
}
