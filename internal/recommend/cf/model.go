// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package cf implements an item-based k-nearest-neighbor collaborative
// filter. Items are compared by cosine similarity over the users who
// interacted with them; predictions are similarity-weighted averages
// of a user's own interaction weights.
package cf

import (
	"errors"
	"math"
	"sort"

	"github.com/glowbase/recommender/internal/recommend"
)

// ErrNoInteractions reports a training call with an empty interaction
// set. The hybrid layer treats the collaborative side as absent.
var ErrNoInteractions = errors.New("collaborative filter requires at least one interaction")

// Neighbor is one entry of an item's nearest-neighbor list.
type Neighbor struct {
	ProductID int64
	Sim       float64
}

// Model is a trained item-KNN index. All fields are exported for gob
// encoding; a Model is immutable after Train and safe for concurrent
// reads.
type Model struct {
	// ItemVectors holds, per product, the interaction weights keyed by
	// dense user index. Vectors keep their raw weights; norms are
	// precomputed for cosine computations.
	ItemVectors map[int64]map[int32]float64
	ItemNorms   map[int64]float64

	// Neighbors holds the top-K similar items per product, sorted by
	// similarity descending with product ID as tie-break.
	Neighbors map[int64][]Neighbor

	// UserItems holds each user's interaction weights by product.
	UserItems map[int64]map[int64]float64

	K         int
	Threshold int
}

// Train builds the item-KNN index from raw interactions. Repeated
// interactions by the same user on the same product keep the strongest
// weight. Similarities are exact; no sampling or approximation.
func Train(interactions []recommend.Interaction, cfg recommend.CFConfig) (*Model, error) {
	if len(interactions) == 0 {
		return nil, ErrNoInteractions
	}

	userIdx := make(map[int64]int32)
	userItems := make(map[int64]map[int64]float64)
	itemVectors := make(map[int64]map[int32]float64)

	for _, in := range interactions {
		uid, ok := userIdx[in.UserID]
		if !ok {
			uid = int32(len(userIdx))
			userIdx[in.UserID] = uid
			userItems[in.UserID] = make(map[int64]float64)
		}
		w := in.Weight()
		if w <= 0 {
			continue
		}
		if w > userItems[in.UserID][in.ProductID] {
			userItems[in.UserID][in.ProductID] = w
		}
		vec := itemVectors[in.ProductID]
		if vec == nil {
			vec = make(map[int32]float64)
			itemVectors[in.ProductID] = vec
		}
		if w > vec[uid] {
			vec[uid] = w
		}
	}

	m := &Model{
		ItemVectors: itemVectors,
		ItemNorms:   make(map[int64]float64, len(itemVectors)),
		Neighbors:   make(map[int64][]Neighbor, len(itemVectors)),
		UserItems:   userItems,
		K:           cfg.KNeighbors,
		Threshold:   cfg.ColdStartThreshold,
	}
	for id, vec := range itemVectors {
		var norm float64
		for _, w := range vec {
			norm += w * w
		}
		m.ItemNorms[id] = math.Sqrt(norm)
	}

	// Deterministic item order for the pairwise pass.
	items := make([]int64, 0, len(itemVectors))
	for id := range itemVectors {
		items = append(items, id)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })

	for _, a := range items {
		neighbors := make([]Neighbor, 0, len(items)-1)
		for _, b := range items {
			if a == b {
				continue
			}
			if sim := m.Similarity(a, b); sim > 0 {
				neighbors = append(neighbors, Neighbor{ProductID: b, Sim: sim})
			}
		}
		sort.Slice(neighbors, func(i, j int) bool {
			if neighbors[i].Sim != neighbors[j].Sim {
				return neighbors[i].Sim > neighbors[j].Sim
			}
			return neighbors[i].ProductID < neighbors[j].ProductID
		})
		if len(neighbors) > cfg.KNeighbors {
			neighbors = neighbors[:cfg.KNeighbors]
		}
		m.Neighbors[a] = neighbors
	}

	return m, nil
}

// Similarity returns the exact cosine similarity between two items'
// user-interaction vectors. Items with no shared users score 0.
func (m *Model) Similarity(a, b int64) float64 {
	va, vb := m.ItemVectors[a], m.ItemVectors[b]
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}
	if len(vb) < len(va) {
		va, vb = vb, va
		a, b = b, a
	}
	var dot float64
	for uid, w := range va {
		if wb, ok := vb[uid]; ok {
			dot += w * wb
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (m.ItemNorms[a] * m.ItemNorms[b])
}

// Predict scores candidate products for a user as the similarity-
// weighted average of the user's own interaction weights over each
// candidate's neighbor list. Users below the cold-start threshold get
// a ColdStartError; candidates with no neighbor overlap are omitted.
// Products the user already interacted with are never scored.
func (m *Model) Predict(userID int64, candidates []recommend.Product) (map[int64]float64, error) {
	rated := m.UserItems[userID]
	if len(rated) < m.Threshold {
		return nil, &recommend.ColdStartError{
			UserID:       userID,
			Interactions: len(rated),
			Threshold:    m.Threshold,
		}
	}

	scores := make(map[int64]float64)
	for _, p := range candidates {
		if _, seen := rated[p.ID]; seen {
			continue
		}
		if s, ok := m.PredictValue(userID, p.ID); ok {
			scores[p.ID] = s
		}
	}
	return scores, nil
}

// PredictValue estimates the user's interaction weight for a single
// product from its neighbor list. The second return is false when the
// user rated none of the product's neighbors.
func (m *Model) PredictValue(userID, productID int64) (float64, bool) {
	rated := m.UserItems[userID]
	if len(rated) == 0 {
		return 0, false
	}

	var num, den float64
	for _, nb := range m.Neighbors[productID] {
		w, ok := rated[nb.ProductID]
		if !ok {
			continue
		}
		num += nb.Sim * w
		den += math.Abs(nb.Sim)
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// SimilarTo returns up to n nearest neighbors of a product. The model
// keeps at most K per item, so n above K is clamped.
func (m *Model) SimilarTo(productID int64, n int) []Neighbor {
	neighbors, ok := m.Neighbors[productID]
	if !ok {
		return nil
	}
	if n > 0 && n < len(neighbors) {
		neighbors = neighbors[:n]
	}
	out := make([]Neighbor, len(neighbors))
	copy(out, neighbors)
	return out
}

// InteractionCount returns how many distinct products the user has
// interacted with.
func (m *Model) InteractionCount(userID int64) int {
	return len(m.UserItems[userID])
}

// Rated reports whether the user has interacted with the product.
func (m *Model) Rated(userID, productID int64) bool {
	_, ok := m.UserItems[userID][productID]
	return ok
}

// ItemCount returns the number of items in the index.
func (m *Model) ItemCount() int {
	return len(m.ItemVectors)
}
