// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package cb scores products against shopper profiles by cosine
// similarity over TF-IDF feature vectors. Allergen exclusion is a hard
// filter applied before any scoring; an allergen match can never be
// outweighed by similarity.
package cb

import (
	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/feature"
)

// Profile field weights. Skin type dominates, concerns follow, stated
// preferences contribute less, a brand is the weakest signal.
const (
	weightSkinType   = 5.0
	weightConcern    = 3.0
	weightCategory   = 2.0
	weightPreference = 2.0
	weightBrand      = 1.0
)

// Engine scores candidates against a fitted feature model. It is
// read-only after construction and safe for concurrent use.
type Engine struct {
	model    *feature.Model
	products map[int64]recommend.Product
}

// New builds an engine over the model's training catalog.
func New(model *feature.Model, products []recommend.Product) *Engine {
	byID := make(map[int64]recommend.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Engine{model: model, products: byID}
}

// ScoreProfile returns cosine scores for every candidate that passes
// the profile's hard filters. Products containing any declared allergen
// are excluded outright. A profile with no vocabulary overlap yields an
// empty map; the caller decides how to fall back.
func (e *Engine) ScoreProfile(profile *recommend.Profile, candidates []recommend.Product) map[int64]float64 {
	scores := make(map[int64]float64)
	if profile == nil {
		return scores
	}

	pv := e.model.Vectorize(profileFields(profile))
	if pv.IsZero() {
		return scores
	}

	for _, p := range candidates {
		if p.ContainsAnyIngredient(profile.Allergens) {
			continue
		}
		if !priceAllowed(profile, p) {
			continue
		}
		v, ok := e.model.ProductVector(p.ID)
		if !ok || v.IsZero() {
			continue
		}
		if s := pv.Dot(v); s > 0 {
			scores[p.ID] = s
		}
	}
	return scores
}

// ScoreSimilar returns cosine scores of candidates against a single
// anchor product, for item-to-item recommendations. The anchor itself
// is never scored.
func (e *Engine) ScoreSimilar(productID int64, candidates []recommend.Product) (map[int64]float64, error) {
	anchor, ok := e.model.ProductVector(productID)
	if !ok || anchor.IsZero() {
		return nil, recommend.ErrModelUnavailable
	}

	scores := make(map[int64]float64, len(candidates))
	for _, p := range candidates {
		if p.ID == productID {
			continue
		}
		v, ok := e.model.ProductVector(p.ID)
		if !ok {
			continue
		}
		if s := anchor.Dot(v); s > 0 {
			scores[p.ID] = s
		}
	}
	return scores, nil
}

// Similarity returns the cosine similarity between two catalog
// products, or 0 when either is unknown to the model.
func (e *Engine) Similarity(a, b int64) float64 {
	va, ok := e.model.ProductVector(a)
	if !ok {
		return 0
	}
	if a == b {
		// A known product is always identical to itself, even when its
		// vector is zero because no field survived the vocabulary.
		return 1
	}
	vb, ok := e.model.ProductVector(b)
	if !ok {
		return 0
	}
	return va.Dot(vb)
}

func priceAllowed(profile *recommend.Profile, p recommend.Product) bool {
	if profile.MinPrice > 0 && p.Price < profile.MinPrice {
		return false
	}
	if profile.MaxPrice > 0 && p.Price > profile.MaxPrice {
		return false
	}
	return true
}

// profileFields translates a shopper profile into weighted text
// fragments over the same vocabulary the catalog was fitted on.
func profileFields(profile *recommend.Profile) []feature.WeightedField {
	var fields []feature.WeightedField

	if profile.SkinType != "" {
		fields = append(fields, feature.WeightedField{Text: profile.SkinType, Weight: weightSkinType})
	}
	for _, c := range profile.Concerns {
		fields = append(fields, feature.WeightedField{Text: c, Weight: weightConcern})
	}
	for _, cat := range profile.PreferredCategories {
		fields = append(fields, feature.WeightedField{Text: cat, Weight: weightCategory})
	}
	if profile.PreferOrganic {
		fields = append(fields, feature.WeightedField{Text: "organic", Weight: weightPreference})
	}
	if profile.PreferCrueltyFree {
		fields = append(fields, feature.WeightedField{Text: "cruelty-free", Weight: weightPreference})
	}
	if profile.PreferFragranceFree {
		fields = append(fields, feature.WeightedField{Text: "fragrance-free", Weight: weightPreference})
	}
	for _, b := range profile.PreferredBrands {
		fields = append(fields, feature.WeightedField{Text: b, Weight: weightBrand})
	}

	return fields
}
