// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package recommend

import (
	"math"
	"sort"
	"strings"
)

// BlendWeights is the weight pair applied to normalized component
// scores for a single request.
type BlendWeights struct {
	CB   float64
	CF   float64
	Cold bool
}

// NormalizeScores rescales scores to [0, 1] by min-max over the map.
// A constant score set maps everything to 0.5 so the component still
// contributes a neutral signal instead of collapsing to zero. The
// input map is not modified.
func NormalizeScores(scores map[int64]float64) map[int64]float64 {
	if len(scores) == 0 {
		return map[int64]float64{}
	}

	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	out := make(map[int64]float64, len(scores))
	span := maxScore - minScore
	if span == 0 {
		for id := range scores {
			out[id] = 0.5
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - minScore) / span
	}
	return out
}

// Blend fuses two normalized component score maps into one. Products
// present in only one map receive that component's weighted score
// alone, so single-source candidates are not silently dropped.
func Blend(cb, cf map[int64]float64, w BlendWeights) map[int64]float64 {
	out := make(map[int64]float64, len(cb)+len(cf))
	for id, s := range cb {
		out[id] = w.CB * s
	}
	for id, s := range cf {
		out[id] += w.CF * s
	}
	return out
}

// Scored pairs a product with a fused score before ranking.
type Scored struct {
	Product Product
	Score   float64
}

// RankProducts sorts candidates by score descending with deterministic
// tie-breaks: catalog rating descending, then product ID ascending.
// Identical inputs always produce identical orderings.
func RankProducts(candidates []Scored) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.Rating != b.Product.Rating {
			return a.Product.Rating > b.Product.Rating
		}
		return a.Product.ID < b.Product.ID
	})
}

// PopularityScore is the catalog-statistics fallback score. The log
// dampens review volume so a mediocre product with thousands of
// reviews does not crowd out a well-rated niche one.
func PopularityScore(p Product) float64 {
	return p.Rating * math.Log(1+float64(p.ReviewCount))
}

// Confidence estimates how much the recommendation should be trusted,
// from interaction history depth and product feature completeness.
// Values stay in [0.3, 1.0]; even a pure cold-start guess carries the
// base confidence.
func Confidence(interactions int, p Product) float64 {
	history := math.Min(1, float64(interactions)/10.0)
	return 0.3 + 0.4*history + 0.3*featureCompleteness(p)
}

// featureCompleteness is the fraction of descriptive product fields
// that are populated. Sparse catalog rows yield lower confidence.
func featureCompleteness(p Product) float64 {
	fields := 0
	filled := 0

	check := func(ok bool) {
		fields++
		if ok {
			filled++
		}
	}
	check(p.Category != "")
	check(p.Subcategory != "")
	check(p.Description != "")
	check(len(p.Ingredients) > 0)
	check(len(p.SkinTypes) > 0)
	check(len(p.Concerns) > 0)
	check(p.ReviewCount > 0)

	return float64(filled) / float64(fields)
}

// BuildReasons produces short human-readable explanations for a
// recommendation, from the profile match and the component that
// dominated the fused score.
func BuildReasons(p Product, profile *Profile, w BlendWeights, cbScore, cfScore float64) []string {
	var reasons []string

	if profile != nil {
		if profile.SkinType != "" && containsFold(p.SkinTypes, profile.SkinType) {
			reasons = append(reasons, "suited for "+profile.SkinType+" skin")
		}
		for _, c := range profile.Concerns {
			if containsFold(p.Concerns, c) {
				reasons = append(reasons, "targets "+c)
				break
			}
		}
		if containsFold(profile.PreferredBrands, p.Brand) {
			reasons = append(reasons, "from a brand you prefer")
		}
		if profile.PreferOrganic && p.Organic {
			reasons = append(reasons, "organic formulation")
		}
		if profile.PreferCrueltyFree && p.CrueltyFree {
			reasons = append(reasons, "cruelty-free")
		}
		if profile.PreferFragranceFree && p.FragranceFree {
			reasons = append(reasons, "fragrance-free")
		}
	}

	if w.CF*cfScore > w.CB*cbScore {
		reasons = append(reasons, "popular with shoppers like you")
	} else if cbScore > 0 {
		reasons = append(reasons, "matches your profile")
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
