// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/cf"
	"github.com/glowbase/recommender/internal/recommend/feature"
)

func testArtifact(t *testing.T) *Artifact {
	t.Helper()

	var products []recommend.Product
	for i := int64(1); i <= 8; i++ {
		category := "makeup"
		if i%2 == 0 {
			category = "skincare"
		}
		products = append(products, recommend.Product{
			ID: i, Name: fmt.Sprintf("Product %d", i),
			Category:    category,
			Description: fmt.Sprintf("unique descriptor %d", i),
		})
	}

	fcfg := recommend.DefaultConfig().Features
	fcfg.MinCorpusSize = 4
	fm, err := feature.New(fcfg).Build(products)
	if err != nil {
		t.Fatalf("feature build: %v", err)
	}

	cfm, err := cf.Train([]recommend.Interaction{
		{UserID: 1, ProductID: 1, Kind: recommend.KindRating, Value: 5, Timestamp: time.Now()},
		{UserID: 1, ProductID: 2, Kind: recommend.KindRating, Value: 4, Timestamp: time.Now()},
		{UserID: 2, ProductID: 1, Kind: recommend.KindRating, Value: 4, Timestamp: time.Now()},
		{UserID: 2, ProductID: 2, Kind: recommend.KindRating, Value: 5, Timestamp: time.Now()},
	}, recommend.CFConfig{KNeighbors: 3, ColdStartThreshold: 3})
	if err != nil {
		t.Fatalf("cf train: %v", err)
	}

	return &Artifact{
		TrainedAt: time.Now().UTC(),
		Config:    recommend.DefaultConfig(),
		Products:  products,
		Features:  fm,
		CF:        cfm,
		Eval: &EvalSummary{
			Folds:   5,
			Metrics: map[string]float64{"precision@10": 0.42},
		},
	}
}

func newTestStore(t *testing.T, retain int) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), retain, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, 3)
	orig := testArtifact(t)

	version, err := store.Save(orig)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if version == "" {
		t.Fatal("empty version")
	}

	loaded, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if loaded.Version != version {
		t.Errorf("version = %q, want %q", loaded.Version, version)
	}
	if len(loaded.Products) != len(orig.Products) {
		t.Errorf("products = %d, want %d", len(loaded.Products), len(orig.Products))
	}
	if loaded.Features.VocabSize() != orig.Features.VocabSize() {
		t.Errorf("vocab = %d, want %d", loaded.Features.VocabSize(), orig.Features.VocabSize())
	}
	if loaded.CF == nil || loaded.CF.ItemCount() != orig.CF.ItemCount() {
		t.Error("collaborative model did not survive the round trip")
	}
	if loaded.Eval == nil || loaded.Eval.Metrics["precision@10"] != 0.42 {
		t.Error("eval summary did not survive the round trip")
	}

	// Fitted vectors must still score identically.
	a, _ := orig.Features.ProductVector(1)
	b, _ := loaded.Features.ProductVector(1)
	c, _ := loaded.Features.ProductVector(3)
	origC, _ := orig.Features.ProductVector(3)
	if a.Dot(origC) != b.Dot(c) {
		t.Error("similarities changed across persistence")
	}
}

func TestLoadCurrentUnavailable(t *testing.T) {
	store := newTestStore(t, 3)

	_, err := store.LoadCurrent()
	if !errors.Is(err, recommend.ErrModelUnavailable) {
		t.Fatalf("want ErrModelUnavailable, got %v", err)
	}
}

func TestLoadChecksumMismatch(t *testing.T) {
	store := newTestStore(t, 3)
	version, err := store.Save(testArtifact(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt one byte of the blob.
	path := filepath.Join(store.dir, version, modelFile)
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	blob[len(blob)/2] ^= 0xFF
	if err := os.WriteFile(path, blob, 0o640); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	if _, err := store.LoadCurrent(); !errors.Is(err, recommend.ErrModelUnavailable) {
		t.Fatalf("corrupted blob should be unavailable, got %v", err)
	}
}

func TestRetentionPrunesOldVersions(t *testing.T) {
	store := newTestStore(t, 2)

	var last string
	for i := 0; i < 4; i++ {
		v, err := store.Save(testArtifact(t))
		if err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		last = v
	}

	versions, err := store.Versions()
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("retained %d versions, want 2", len(versions))
	}
	if store.CurrentVersion() != last {
		t.Errorf("CURRENT = %q, want %q", store.CurrentVersion(), last)
	}
	if _, err := store.LoadCurrent(); err != nil {
		t.Errorf("latest version must stay loadable after prune: %v", err)
	}
}

func TestSavePointerFlipIsAtomicStep(t *testing.T) {
	store := newTestStore(t, 3)

	v1, err := store.Save(testArtifact(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	a1, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}

	v2, err := store.Save(testArtifact(t))
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	a2, err := store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent after second save: %v", err)
	}

	if a1.Version != v1 || a2.Version != v2 {
		t.Errorf("pointer flips out of order: %q/%q then %q/%q", v1, a1.Version, v2, a2.Version)
	}

	// No staging debris survives a publish.
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) > 0 && e.Name()[0] == '.' {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}
}
