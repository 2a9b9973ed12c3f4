// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package eval

import (
	"errors"
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantStd  float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{0.4}, 0.4, 0},
		{"constant", []float64{2, 2, 2}, 2, 0},
		{"spread", []float64{1, 2, 3, 4}, 2.5, 1.2909944487},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarize(tt.values)
			if math.Abs(got.Mean-tt.wantMean) > 1e-9 {
				t.Errorf("mean = %f, want %f", got.Mean, tt.wantMean)
			}
			if math.Abs(got.Std-tt.wantStd) > 1e-9 {
				t.Errorf("std = %f, want %f", got.Std, tt.wantStd)
			}
			if got.N != len(tt.values) {
				t.Errorf("n = %d, want %d", got.N, len(tt.values))
			}
		})
	}
}

func TestStudentTwoSidedP(t *testing.T) {
	// t = 0 means no effect at all.
	if p := studentTwoSidedP(0, 5); math.Abs(p-1) > 1e-9 {
		t.Errorf("p(t=0) = %f, want 1", p)
	}
	// Known value: t = 2.0, df = 10 gives p near 0.0734.
	if p := studentTwoSidedP(2.0, 10); math.Abs(p-0.0734) > 0.001 {
		t.Errorf("p(t=2, df=10) = %f, want ~0.0734", p)
	}
	// Symmetry in t.
	if pa, pb := studentTwoSidedP(1.7, 8), studentTwoSidedP(-1.7, 8); math.Abs(pa-pb) > 1e-12 {
		t.Errorf("p not symmetric: %f vs %f", pa, pb)
	}
	// Larger |t| must shrink p.
	if studentTwoSidedP(3, 6) >= studentTwoSidedP(1, 6) {
		t.Error("p-value should decrease with |t|")
	}
}

func TestRegIncBetaBounds(t *testing.T) {
	if got := regIncBeta(2, 3, 0); got != 0 {
		t.Errorf("I_0 = %f, want 0", got)
	}
	if got := regIncBeta(2, 3, 1); got != 1 {
		t.Errorf("I_1 = %f, want 1", got)
	}
	// I_x(1,1) is the identity.
	if got := regIncBeta(1, 1, 0.3); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("I_0.3(1,1) = %f, want 0.3", got)
	}
	// Monotone in x.
	prev := 0.0
	for x := 0.1; x < 1; x += 0.1 {
		cur := regIncBeta(2.5, 0.5, x)
		if cur < prev {
			t.Fatalf("not monotone at x=%f", x)
		}
		prev = cur
	}
}

func TestPairedTTest(t *testing.T) {
	a := []float64{0.5, 0.6, 0.7}
	b := []float64{0.4, 0.4, 0.4}

	c, err := pairedTTest("f1@10", a, b, 0.05)
	if err != nil {
		t.Fatalf("pairedTTest: %v", err)
	}
	if math.Abs(c.MeanDiff-0.2) > 1e-9 {
		t.Errorf("mean diff = %f, want 0.2", c.MeanDiff)
	}
	if math.Abs(c.TStat-3.4641016) > 1e-4 {
		t.Errorf("t = %f, want ~3.464", c.TStat)
	}
	if c.DF != 2 {
		t.Errorf("df = %d, want 2", c.DF)
	}
	if c.PValue < 0.07 || c.PValue > 0.08 {
		t.Errorf("p = %f, want ~0.074", c.PValue)
	}
	if c.Significant {
		t.Error("p ~0.074 should not clear alpha 0.05")
	}
}

func TestPairedTTestDegenerate(t *testing.T) {
	// Constant nonzero shift with zero variance.
	c, err := pairedTTest("recall@5", []float64{0.3, 0.5}, []float64{0.2, 0.4}, 0.05)
	if err != nil {
		t.Fatalf("pairedTTest: %v", err)
	}
	if !c.Significant || c.PValue != 0 {
		t.Errorf("constant shift should be decisive, got %+v", c)
	}

	// Identical runs.
	c, err = pairedTTest("recall@5", []float64{0.3, 0.5}, []float64{0.3, 0.5}, 0.05)
	if err != nil {
		t.Fatalf("pairedTTest: %v", err)
	}
	if c.Significant || c.PValue != 1 {
		t.Errorf("identical runs should not be significant, got %+v", c)
	}
}

func TestPairedTTestErrors(t *testing.T) {
	if _, err := pairedTTest("x", []float64{1, 2}, []float64{1}, 0.05); !errors.Is(err, ErrNotComparable) {
		t.Errorf("length mismatch should not be comparable, got %v", err)
	}
	if _, err := pairedTTest("x", []float64{1}, []float64{1}, 0.05); !errors.Is(err, ErrNotComparable) {
		t.Errorf("single fold should not be comparable, got %v", err)
	}
}

func TestRankingMetrics(t *testing.T) {
	relevant := map[int64]struct{}{1: {}, 2: {}, 3: {}, 4: {}}

	tests := []struct {
		name   string
		ranked []int64
		k      int
		wantP  float64
		wantR  float64
	}{
		{"perfect top", []int64{1, 2, 3, 4, 9, 9}, 4, 1.0, 1.0},
		{"half hits at 4", []int64{1, 9, 2, 8}, 4, 0.5, 0.5},
		{"no hits", []int64{7, 8, 9}, 3, 0, 0},
		{"short list", []int64{1}, 10, 0.1, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, r, f1 := rankingMetrics(tt.ranked, relevant, tt.k)
			if math.Abs(p-tt.wantP) > 1e-9 {
				t.Errorf("precision = %f, want %f", p, tt.wantP)
			}
			if math.Abs(r-tt.wantR) > 1e-9 {
				t.Errorf("recall = %f, want %f", r, tt.wantR)
			}
			if p+r == 0 && f1 != 0 {
				t.Errorf("f1 should be 0 with no hits, got %f", f1)
			}
			if p+r > 0 {
				want := 2 * p * r / (p + r)
				if math.Abs(f1-want) > 1e-9 {
					t.Errorf("f1 = %f, want %f", f1, want)
				}
			}
		})
	}

	if p, r, f1 := rankingMetrics([]int64{1}, nil, 5); p != 0 || r != 0 || f1 != 0 {
		t.Error("empty relevant set should yield zeros")
	}
}
