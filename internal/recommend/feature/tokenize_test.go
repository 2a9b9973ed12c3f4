// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feature

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercase and split",
			in:   "Hydrating Face Cream",
			want: []string{"hydrating", "face", "cream"},
		},
		{
			name: "hyphenated terms survive",
			in:   "Oil-Free, Non-Comedogenic formula",
			want: []string{"oil-free", "non-comedogenic", "formula"},
		},
		{
			name: "stopwords and single chars dropped",
			in:   "a serum for the skin with vitamin C",
			want: []string{"serum", "skin", "vitamin"},
		},
		{
			name: "leading and trailing hyphens trimmed",
			in:   "-retinol- treatment",
			want: []string{"retinol", "treatment"},
		},
		{
			name: "digits kept",
			in:   "SPF 50 sunscreen",
			want: []string{"spf", "50", "sunscreen"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNGrams(t *testing.T) {
	tokens := []string{"gentle", "foaming", "cleanser"}

	got := ngrams(tokens, 1, 2)
	want := []string{
		"gentle", "foaming", "cleanser",
		"gentle foaming", "foaming cleanser",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ngrams(1,2) = %v, want %v", got, want)
	}

	if got := ngrams(tokens, 1, 1); !reflect.DeepEqual(got, tokens) {
		t.Errorf("ngrams(1,1) = %v, want unigrams only", got)
	}

	if got := ngrams([]string{"solo"}, 1, 2); !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("short input should yield no bigrams, got %v", got)
	}
}

func TestVectorDot(t *testing.T) {
	a := newUnitVector(map[int32]float64{0: 1, 2: 1})
	b := newUnitVector(map[int32]float64{2: 1, 5: 1})
	c := newUnitVector(map[int32]float64{7: 1})

	if got := a.Dot(a); got < 0.999999 || got > 1.000001 {
		t.Errorf("self dot of unit vector = %f, want 1", got)
	}
	if got, want := a.Dot(b), 0.5; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("partial overlap dot = %f, want %f", got, want)
	}
	if got := a.Dot(c); got != 0 {
		t.Errorf("disjoint vectors dot = %f, want 0", got)
	}
	if ab, ba := a.Dot(b), b.Dot(a); ab != ba {
		t.Errorf("dot not symmetric: %f vs %f", ab, ba)
	}
}

func TestNewUnitVectorZeroMass(t *testing.T) {
	if v := newUnitVector(nil); !v.IsZero() {
		t.Error("empty weights should yield zero vector")
	}
	if v := newUnitVector(map[int32]float64{1: 0}); !v.IsZero() {
		t.Error("zero-mass weights should yield zero vector")
	}
}
