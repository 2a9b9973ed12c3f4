// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feature

import "math"

// Vector is a sparse, L2-normalized term vector. Indices are sorted
// ascending and refer to positions in the owning model's vocabulary.
// Because vectors are unit length, Dot is the cosine similarity.
type Vector struct {
	Indices []int32
	Values  []float64
}

// IsZero reports whether the vector has no nonzero components.
func (v Vector) IsZero() bool {
	return len(v.Indices) == 0
}

// Dot computes the sparse dot product by merging the two sorted index
// lists. For unit vectors this is the cosine similarity in [0, 1].
func (v Vector) Dot(other Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(other.Indices) {
		switch {
		case v.Indices[i] < other.Indices[j]:
			i++
		case v.Indices[i] > other.Indices[j]:
			j++
		default:
			sum += v.Values[i] * other.Values[j]
			i++
			j++
		}
	}
	return sum
}

// newUnitVector builds a sorted sparse vector from index weights and
// normalizes it to unit length. Zero-mass input yields a zero vector.
func newUnitVector(weights map[int32]float64) Vector {
	if len(weights) == 0 {
		return Vector{}
	}

	indices := make([]int32, 0, len(weights))
	for idx := range weights {
		indices = append(indices, idx)
	}
	sortInt32(indices)

	values := make([]float64, len(indices))
	var norm float64
	for i, idx := range indices {
		values[i] = weights[idx]
		norm += values[i] * values[i]
	}
	if norm == 0 {
		return Vector{}
	}
	norm = math.Sqrt(norm)
	for i := range values {
		values[i] /= norm
	}

	return Vector{Indices: indices, Values: values}
}

func sortInt32(s []int32) {
	// Insertion sort is fine here; vectors rarely exceed a few hundred
	// terms and most are far smaller.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
