// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package recommend defines the shared domain model and decision logic for
// the hybrid recommendation engine.
//
// The package holds the types exchanged between the engine components
// (products, user profiles, interactions, recommendations), the typed
// training configuration, and the score-fusion logic of the hybrid
// combiner. The components themselves live in subpackages:
//
//   - feature: TF-IDF feature extraction over product text
//   - cb: content-based similarity scoring
//   - cf: item-based k-nearest-neighbor collaborative filtering
//   - artifact: atomic versioned model persistence
//   - eval: k-fold cross-validated offline evaluation
//   - engine: the serving-side orchestrator tying the above together
//
// # Hybrid Combination
//
// Per request the combiner classifies the user as cold or warm by
// interaction count, min-max normalizes the content-based and
// collaborative score lists over the candidate set, and blends them:
//
//	score = alpha*cb_norm + beta*cf_norm
//
// Cold users get alpha=0.8/beta=0.2, warm users alpha=0.4/beta=0.6.
// Ties are broken by product aggregate rating descending, then product
// ID ascending, so rankings are reproducible.
//
// # Thread Safety
//
// All types in this package are immutable after construction. Score maps
// passed to the combiner functions are owned by the caller.
package recommend
