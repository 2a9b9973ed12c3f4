// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// InteractionKind classifies user-product interactions.
type InteractionKind int

const (
	// KindView indicates the user viewed a product page.
	KindView InteractionKind = iota
	// KindFavorite indicates the user favorited a product.
	KindFavorite
	// KindRating indicates an explicit star rating (value carries the rating).
	KindRating
)

// String returns a human-readable name for the interaction kind.
func (k InteractionKind) String() string {
	switch k {
	case KindView:
		return "view"
	case KindFavorite:
		return "favorite"
	case KindRating:
		return "rating"
	default:
		return "unknown"
	}
}

// ParseInteractionKind parses an interaction kind from its string form.
func ParseInteractionKind(s string) (InteractionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return KindView, nil
	case "favorite":
		return KindFavorite, nil
	case "rating":
		return KindRating, nil
	default:
		return 0, fmt.Errorf("unknown interaction kind %q", s)
	}
}

// Implicit feedback weights. Explicit ratings carry their own value and
// dominate; a favorite is a stronger signal than a view.
const (
	viewWeight     = 1.0
	favoriteWeight = 3.0
)

// Weight returns the matrix weight for an interaction of this kind.
// For ratings the explicit value is used; views and favorites map to
// fixed implicit weights.
func (k InteractionKind) Weight(value float64) float64 {
	switch k {
	case KindRating:
		return value
	case KindFavorite:
		return favoriteWeight
	case KindView:
		return viewWeight
	default:
		return 0
	}
}

// Ingredient is a cosmetic ingredient referenced by products.
// Read-only to the engine.
type Ingredient struct {
	// ID is the ingredient identifier.
	ID int64 `json:"id"`

	// Name is the INCI or common ingredient name.
	Name string `json:"name"`

	// Function is the functional category (humectant, emollient, ...).
	Function string `json:"function,omitempty"`

	// SafetyRating is an ordinal safety score, 1 (worst) to 10 (best).
	SafetyRating int `json:"safety_rating,omitempty"`
}

// Product is a cosmetic product snapshot as consumed by a training run.
// Immutable per snapshot; owned by the training pipeline.
type Product struct {
	// ID is the product identifier.
	ID int64 `json:"id"`

	// Name is the product display name.
	Name string `json:"name"`

	// Brand is the product brand.
	Brand string `json:"brand"`

	// Category is the product category (cleanser, moisturizer, serum, ...).
	Category string `json:"category"`

	// Subcategory is an optional finer-grained category.
	Subcategory string `json:"subcategory,omitempty"`

	// Price is the list price.
	Price float64 `json:"price"`

	// Description is free-text marketing copy.
	Description string `json:"description,omitempty"`

	// Ingredients is the ordered ingredient list.
	Ingredients []Ingredient `json:"ingredients,omitempty"`

	// Rating is the aggregate review rating (0-5).
	Rating float64 `json:"rating"`

	// ReviewCount is the number of reviews behind Rating.
	ReviewCount int `json:"review_count"`

	// Attribute flags.
	Organic       bool `json:"organic,omitempty"`
	CrueltyFree   bool `json:"cruelty_free,omitempty"`
	Vegan         bool `json:"vegan,omitempty"`
	FragranceFree bool `json:"fragrance_free,omitempty"`

	// SkinTypes lists skin types the product is suitable for.
	SkinTypes []string `json:"skin_types,omitempty"`

	// Concerns lists skin concerns the product targets.
	Concerns []string `json:"concerns,omitempty"`
}

// HasIngredient reports whether the product contains the named ingredient.
// Matching is case-insensitive.
func (p *Product) HasIngredient(name string) bool {
	for i := range p.Ingredients {
		if strings.EqualFold(p.Ingredients[i].Name, name) {
			return true
		}
	}
	return false
}

// ContainsAnyIngredient reports whether the product contains any of the
// named ingredients. Used for allergen exclusion.
func (p *Product) ContainsAnyIngredient(names []string) bool {
	for _, n := range names {
		if p.HasIngredient(n) {
			return true
		}
	}
	return false
}

// Profile describes a user's preferences for a single request.
// The engine never mutates it.
type Profile struct {
	// UserID is the user identifier.
	UserID int64 `json:"user_id"`

	// SkinType is the user's skin type (oily, dry, combination, ...).
	SkinType string `json:"skin_type,omitempty"`

	// Concerns is the set of skin concern tags (acne, hydration, ...).
	Concerns []string `json:"concerns,omitempty"`

	// Allergens is the set of ingredient names the user must avoid.
	// Products containing any of them are excluded before ranking.
	Allergens []string `json:"allergens,omitempty"`

	// PreferredBrands lists brands the user favors.
	PreferredBrands []string `json:"preferred_brands,omitempty"`

	// PreferredCategories lists categories the user favors.
	PreferredCategories []string `json:"preferred_categories,omitempty"`

	// MinPrice and MaxPrice bound the user's budget. Zero means unset.
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`

	// Preference attribute flags.
	PreferOrganic       bool `json:"prefer_organic,omitempty"`
	PreferCrueltyFree   bool `json:"prefer_cruelty_free,omitempty"`
	PreferFragranceFree bool `json:"prefer_fragrance_free,omitempty"`
}

// Interaction is a single user-product interaction event. Append-only;
// historic records are superseded by later training runs, never edited.
type Interaction struct {
	// UserID is the user identifier.
	UserID int64 `json:"user_id"`

	// ProductID is the product identifier.
	ProductID int64 `json:"product_id"`

	// Kind classifies the interaction.
	Kind InteractionKind `json:"kind"`

	// Value carries the explicit rating for KindRating, otherwise 0.
	Value float64 `json:"value,omitempty"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Weight returns the interaction matrix weight for this record.
func (i Interaction) Weight() float64 {
	return i.Kind.Weight(i.Value)
}

// Algorithm tags which code path produced a recommendation.
type Algorithm int

const (
	// AlgorithmContentBased marks a pure content-based result.
	AlgorithmContentBased Algorithm = iota
	// AlgorithmCollaborative marks a pure collaborative-filtering result.
	AlgorithmCollaborative
	// AlgorithmHybrid marks a blended result.
	AlgorithmHybrid
	// AlgorithmPopularityFallback marks a popularity-ranked fallback result.
	AlgorithmPopularityFallback
)

// String returns the wire name of the algorithm tag.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmContentBased:
		return "content_based"
	case AlgorithmCollaborative:
		return "collaborative_filtering"
	case AlgorithmHybrid:
		return "hybrid"
	case AlgorithmPopularityFallback:
		return "popularity_fallback"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so algorithm tags
// serialize as their wire names.
func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Recommendation is one ranked result returned by the engine.
type Recommendation struct {
	// Product is the recommended product snapshot.
	Product Product `json:"product"`

	// Score is the combined relevance score in [0, 1].
	Score float64 `json:"score"`

	// Confidence reflects how much supporting data backs the score,
	// in [0, 1].
	Confidence float64 `json:"confidence"`

	// Algorithm tags which component produced the result.
	Algorithm Algorithm `json:"algorithm"`

	// Reasons lists human-readable reasoning factors, strongest first.
	Reasons []string `json:"reasons,omitempty"`
}

// Filters restrict the candidate set before scoring.
// Zero values mean "no constraint".
type Filters struct {
	// Category restricts results to a single product category.
	Category string `json:"category,omitempty"`

	// MinPrice and MaxPrice bound the result price range.
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
}

// Match reports whether a product satisfies the filters.
func (f Filters) Match(p *Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	return true
}
