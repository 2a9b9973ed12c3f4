// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package feature turns catalog products and shopper profiles into
// sparse TF-IDF vectors over a shared, bounded vocabulary. Structured
// fields contribute with different weights so that an ingredient match
// counts for more than a word shared in marketing copy.
package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/glowbase/recommender/internal/recommend"
)

// Field weights applied when composing a product document. Ingredients
// carry the strongest signal, concerns next; category, description and
// skin types count at face value, brand and attribute tokens least.
const (
	weightCategory    = 1.0
	weightDescription = 1.0
	weightSkinTypes   = 1.0
	weightIngredients = 2.0
	weightConcerns    = 1.5
	weightAttributes  = 0.5
)

// InsufficientCorpusError reports a training corpus too small for
// stable document-frequency statistics.
type InsufficientCorpusError struct {
	Size int
	Min  int
}

func (e *InsufficientCorpusError) Error() string {
	return fmt.Sprintf("feature extraction requires at least %d products, got %d", e.Min, e.Size)
}

// WeightedField is a text fragment with a multiplier applied to every
// term it produces. Used to vectorize shopper profiles where skin type
// matters more than a brand preference.
type WeightedField struct {
	Text   string
	Weight float64
}

// Model is a fitted vocabulary with IDF weights and the vectors of the
// products it was trained on. All fields are exported for gob encoding;
// treat a Model as immutable after Build.
type Model struct {
	Vocab    map[string]int32
	IDF      []float64
	Products map[int64]Vector
	NGramMin int
	NGramMax int
}

// Extractor builds feature models from a product corpus.
type Extractor struct {
	cfg recommend.FeatureConfig
}

// New returns an extractor for the given configuration. The
// configuration must already be validated.
func New(cfg recommend.FeatureConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Build fits a vocabulary over the corpus and vectorizes every product.
// Terms present in more than MaxDocFrac of documents are dropped, then
// the vocabulary is cut to the VocabSize terms with the largest
// aggregate TF-IDF mass. Ties break lexicographically so the same
// corpus always yields the same vocabulary.
func (e *Extractor) Build(products []recommend.Product) (*Model, error) {
	if len(products) < e.cfg.MinCorpusSize {
		return nil, &InsufficientCorpusError{Size: len(products), Min: e.cfg.MinCorpusSize}
	}

	// Weighted term frequencies per document, plus document frequencies.
	docs := make([]map[string]float64, len(products))
	df := make(map[string]int)
	for i, p := range products {
		tf := make(map[string]float64)
		for _, f := range productFields(p) {
			terms := ngrams(tokenize(f.Text), e.cfg.NGramMin, e.cfg.NGramMax)
			for _, term := range terms {
				tf[term] += f.Weight
			}
		}
		docs[i] = tf
		for term := range tf {
			df[term]++
		}
	}

	n := float64(len(products))
	maxDF := int(math.Floor(e.cfg.MaxDocFrac * n))
	if maxDF < 1 {
		maxDF = 1
	}

	type termMass struct {
		term string
		idf  float64
		mass float64
	}
	candidates := make([]termMass, 0, len(df))
	for term, count := range df {
		if count > maxDF {
			continue
		}
		idf := math.Log((1+n)/(1+float64(count))) + 1
		var mass float64
		for _, tf := range docs {
			if w, ok := tf[term]; ok {
				mass += w * idf
			}
		}
		candidates = append(candidates, termMass{term: term, idf: idf, mass: mass})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mass != candidates[j].mass {
			return candidates[i].mass > candidates[j].mass
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > e.cfg.VocabSize {
		candidates = candidates[:e.cfg.VocabSize]
	}

	m := &Model{
		Vocab:    make(map[string]int32, len(candidates)),
		IDF:      make([]float64, len(candidates)),
		Products: make(map[int64]Vector, len(products)),
		NGramMin: e.cfg.NGramMin,
		NGramMax: e.cfg.NGramMax,
	}
	// Stable index assignment: lexicographic over the retained terms.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].term < candidates[j].term })
	for i, c := range candidates {
		m.Vocab[c.term] = int32(i)
		m.IDF[i] = c.idf
	}

	for i, p := range products {
		m.Products[p.ID] = m.vectorizeTF(docs[i])
	}

	return m, nil
}

// Vectorize maps weighted profile fields onto the fitted vocabulary.
// Terms outside the vocabulary are ignored. The result is unit length,
// or zero when nothing matched.
func (m *Model) Vectorize(fields []WeightedField) Vector {
	tf := make(map[string]float64)
	for _, f := range fields {
		terms := ngrams(tokenize(f.Text), m.NGramMin, m.NGramMax)
		for _, term := range terms {
			tf[term] += f.Weight
		}
	}
	return m.vectorizeTF(tf)
}

// ProductVector returns the fitted vector for a product ID.
func (m *Model) ProductVector(id int64) (Vector, bool) {
	v, ok := m.Products[id]
	return v, ok
}

// VocabSize returns the number of terms in the fitted vocabulary.
func (m *Model) VocabSize() int {
	return len(m.Vocab)
}

func (m *Model) vectorizeTF(tf map[string]float64) Vector {
	weights := make(map[int32]float64)
	for term, w := range tf {
		idx, ok := m.Vocab[term]
		if !ok {
			continue
		}
		weights[idx] += w * m.IDF[idx]
	}
	return newUnitVector(weights)
}

// productFields composes the weighted document for a product. Boolean
// attributes contribute fixed tokens so "vegan" or "fragrance-free" in
// a profile can match a product that never says so in its copy.
func productFields(p recommend.Product) []WeightedField {
	fields := []WeightedField{
		{Text: p.Category, Weight: weightCategory},
		{Text: p.Subcategory, Weight: weightCategory},
		{Text: p.Brand, Weight: weightAttributes},
		{Text: p.Description, Weight: weightDescription},
	}
	for _, ing := range p.Ingredients {
		fields = append(fields, WeightedField{Text: ing.Name, Weight: weightIngredients})
	}
	for _, c := range p.Concerns {
		fields = append(fields, WeightedField{Text: c, Weight: weightConcerns})
	}
	for _, st := range p.SkinTypes {
		fields = append(fields, WeightedField{Text: st, Weight: weightSkinTypes})
	}

	var attrs []string
	if p.Organic {
		attrs = append(attrs, "organic")
	}
	if p.CrueltyFree {
		attrs = append(attrs, "cruelty-free")
	}
	if p.Vegan {
		attrs = append(attrs, "vegan")
	}
	if p.FragranceFree {
		attrs = append(attrs, "fragrance-free")
	}
	for _, a := range attrs {
		fields = append(fields, WeightedField{Text: a, Weight: weightAttributes})
	}

	return fields
}
