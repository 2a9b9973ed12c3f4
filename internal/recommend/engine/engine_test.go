// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/artifact"
)

// memProvider serves a fixed corpus from memory.
type memProvider struct {
	products     []recommend.Product
	interactions []recommend.Interaction
	profiles     map[int64]*recommend.Profile
}

func (m *memProvider) Products(ctx context.Context) ([]recommend.Product, error) {
	return append([]recommend.Product(nil), m.products...), nil
}

func (m *memProvider) Interactions(ctx context.Context) ([]recommend.Interaction, error) {
	return append([]recommend.Interaction(nil), m.interactions...), nil
}

func (m *memProvider) Profile(ctx context.Context, userID int64) (*recommend.Profile, error) {
	return m.profiles[userID], nil
}

// memSink collects recorded feedback.
type memSink struct {
	recorded []recommend.Interaction
	fail     bool
}

func (m *memSink) Record(ctx context.Context, in recommend.Interaction) error {
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.recorded = append(m.recorded, in)
	return nil
}

func fixtureProvider() *memProvider {
	products := []recommend.Product{
		{
			ID: 1, Name: "Hydra Night Cream", Brand: "Lumea", Category: "skincare", Subcategory: "moisturizer",
			Price: 30, Rating: 4.6, ReviewCount: 420,
			Description: "rich hydrating night cream for dry skin",
			Ingredients: []recommend.Ingredient{{Name: "hyaluronic acid"}, {Name: "shea butter"}},
			SkinTypes:   []string{"dry"}, Concerns: []string{"dehydration"},
		},
		{
			ID: 2, Name: "Dew Serum", Brand: "Lumea", Category: "skincare", Subcategory: "serum",
			Price: 42, Rating: 4.8, ReviewCount: 210,
			Description: "hydrating serum with hyaluronic acid",
			Ingredients: []recommend.Ingredient{{Name: "hyaluronic acid"}},
			SkinTypes:   []string{"dry", "normal"}, Concerns: []string{"dehydration", "fine lines"},
		},
		{
			ID: 3, Name: "Matte Stick Foundation", Brand: "Velour", Category: "makeup", Subcategory: "foundation",
			Price: 22, Rating: 4.1, ReviewCount: 890,
			Description: "long wear matte foundation",
			Ingredients: []recommend.Ingredient{{Name: "titanium dioxide"}},
			SkinTypes:   []string{"oily"}, Concerns: []string{"shine"},
		},
		{
			ID: 4, Name: "Rose Mist", Brand: "Aroma", Category: "skincare", Subcategory: "toner",
			Price: 16, Rating: 3.9, ReviewCount: 1500,
			Description: "refreshing rose facial mist",
			Ingredients: []recommend.Ingredient{{Name: "rose water"}, {Name: "fragrance"}},
			SkinTypes:   []string{"normal"}, Concerns: []string{"dullness"},
		},
	}
	for i := int64(5); i <= 24; i++ {
		products = append(products, recommend.Product{
			ID: i, Name: fmt.Sprintf("Filler Product %d", i),
			Brand: "Basics", Category: "haircare", Subcategory: "shampoo",
			Price: 10, Rating: 3.5, ReviewCount: int(i) * 3,
			Description: fmt.Sprintf("everyday shampoo formula %d", i),
		})
	}

	now := time.Now()
	rate := func(u, p int64, v float64) recommend.Interaction {
		return recommend.Interaction{UserID: u, ProductID: p, Kind: recommend.KindRating, Value: v, Timestamp: now}
	}
	interactions := []recommend.Interaction{
		rate(100, 1, 5), rate(100, 2, 5), rate(100, 4, 3),
		rate(101, 1, 4), rate(101, 2, 5), rate(101, 3, 2),
		rate(102, 2, 5), rate(102, 3, 4), rate(102, 4, 4),
		rate(103, 3, 5), rate(103, 4, 4), rate(103, 5, 3),
		rate(104, 1, 5), rate(104, 2, 4), rate(104, 3, 4),
	}

	return &memProvider{
		products:     products,
		interactions: interactions,
		profiles: map[int64]*recommend.Profile{
			// Cold user: no interactions, a clear dry-skin profile.
			200: {UserID: 200, SkinType: "dry", Concerns: []string{"dehydration"}},
			// Allergic user without history.
			201: {UserID: 201, SkinType: "normal", Allergens: []string{"fragrance"}},
			// Warm user with history and a profile.
			100: {UserID: 100, SkinType: "dry", Concerns: []string{"dehydration"}, PreferredBrands: []string{"Lumea"}},
			// Allergic user with enough history for collaborative scores.
			104: {UserID: 104, SkinType: "normal", Allergens: []string{"fragrance"}},
		},
	}
}

func testEngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Features.MinCorpusSize = 10
	cfg.CF.KNeighbors = 4
	cfg.Evaluation.Folds = 2
	cfg.Evaluation.MinTestInteractions = 1
	return cfg
}

func newTestEngine(t *testing.T, provider *memProvider, sink FeedbackSink) *Engine {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir(), 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	eng, err := New(testEngineConfig(), store, provider, sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}

func trainTestEngine(t *testing.T, eng *Engine) *TrainResult {
	t.Helper()
	res, err := eng.Train(context.Background(), TrainOptions{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	return res
}

func TestRecommendBeforeTraining(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)

	_, err := eng.Recommend(context.Background(), 100, 10, recommend.Filters{})
	if !errors.Is(err, recommend.ErrModelUnavailable) {
		t.Fatalf("want ErrModelUnavailable, got %v", err)
	}
}

func TestTrainThenRecommend(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	res := trainTestEngine(t, eng)

	if res.Version == "" {
		t.Fatal("training did not assign a version")
	}
	if eng.ServingVersion() != res.Version {
		t.Errorf("serving %q, trained %q", eng.ServingVersion(), res.Version)
	}

	recs, err := eng.Recommend(context.Background(), 100, 10, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("no recommendations for warm user with profile")
	}

	seen := make(map[int64]bool)
	for _, r := range recs {
		if seen[r.Product.ID] {
			t.Fatalf("product %d appears twice", r.Product.ID)
		}
		seen[r.Product.ID] = true
		// User 100 interacted with products 1, 2, 4.
		if r.Product.ID == 1 || r.Product.ID == 2 || r.Product.ID == 4 {
			t.Errorf("already-seen product %d recommended", r.Product.ID)
		}
		if r.Confidence < 0.3 || r.Confidence > 1.0 {
			t.Errorf("confidence %f outside [0.3, 1.0]", r.Confidence)
		}
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Fatal("results not sorted by score")
		}
	}
}

func TestRecommendColdUserContentDominates(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	recs, err := eng.Recommend(context.Background(), 200, 5, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("cold user with profile should still get recommendations")
	}

	// Dry-skin profile: the hydrating skincare products must outrank
	// makeup and filler items.
	top := recs[0].Product
	if top.Category != "skincare" {
		t.Errorf("top result for dry-skin cold user is %q (%s)", top.Name, top.Category)
	}
	if recs[0].Algorithm == recommend.AlgorithmCollaborative {
		t.Error("cold user must not be served a collaborative-dominant result")
	}
}

func TestRecommendAllergenNeverSurfaces(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	// The exclusion must hold on every scoring branch: the cold user is
	// served content-weighted scores, the warm user collaborative-heavy
	// ones, and the rose mist is co-rated with the warm user's history.
	for _, userID := range []int64{201, 104} {
		recs, err := eng.Recommend(context.Background(), userID, 24, recommend.Filters{})
		if err != nil {
			t.Fatalf("Recommend(%d): %v", userID, err)
		}
		if len(recs) == 0 {
			t.Fatalf("user %d got no recommendations", userID)
		}
		for _, r := range recs {
			if r.Product.HasIngredient("fragrance") {
				t.Fatalf("allergen product %q (via %s) recommended to allergic user %d",
					r.Product.Name, r.Algorithm, userID)
			}
		}
	}
}

func TestRecommendFilters(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	recs, err := eng.Recommend(context.Background(), 200, 10, recommend.Filters{Category: "skincare", MaxPrice: 35})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	for _, r := range recs {
		if r.Product.Category != "skincare" {
			t.Errorf("filter leaked category %q", r.Product.Category)
		}
		if r.Product.Price > 35 {
			t.Errorf("filter leaked price %.2f", r.Product.Price)
		}
	}
}

func TestRecommendCountClamping(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	recs, err := eng.Recommend(context.Background(), 200, 0, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) > eng.cfg.Limits.DefaultCount {
		t.Errorf("zero count should clamp to default %d, got %d", eng.cfg.Limits.DefaultCount, len(recs))
	}

	recs, err = eng.Recommend(context.Background(), 200, 10_000, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) > eng.cfg.Limits.MaxCount {
		t.Errorf("oversized count should clamp to max %d, got %d", eng.cfg.Limits.MaxCount, len(recs))
	}
}

func TestRecommendUnknownUserPopularityFallback(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	// User 999 has no profile and no history: neither component can
	// score, so catalog popularity takes over.
	recs, err := eng.Recommend(context.Background(), 999, 5, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("fallback should still produce results")
	}
	for _, r := range recs {
		if r.Algorithm != recommend.AlgorithmPopularityFallback {
			t.Errorf("algorithm = %v, want popularity fallback", r.Algorithm)
		}
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Fatal("fallback results not sorted")
		}
	}
}

func TestSimilarItems(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)
	trainTestEngine(t, eng)

	recs, err := eng.SimilarItems(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("SimilarItems: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("no similar items")
	}
	for _, r := range recs {
		if r.Product.ID == 1 {
			t.Fatal("anchor product returned as its own neighbor")
		}
	}
	// The hydrating serum shares ingredients, category, and audience
	// with the night cream; it should lead.
	if recs[0].Product.ID != 2 {
		t.Errorf("closest item to night cream = %d, want 2", recs[0].Product.ID)
	}

	if _, err := eng.SimilarItems(context.Background(), 9999, 5); err == nil {
		t.Error("unknown anchor should error")
	}
}

func TestTrainEvaluatePublishesSummary(t *testing.T) {
	provider := fixtureProvider()
	eng := newTestEngine(t, provider, nil)

	res, err := eng.Train(context.Background(), TrainOptions{Evaluate: true})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Report == nil {
		t.Fatal("evaluation requested but no report produced")
	}

	art, err := eng.store.LoadCurrent()
	if err != nil {
		t.Fatalf("LoadCurrent: %v", err)
	}
	if art.Eval == nil || len(art.Eval.Metrics) == 0 {
		t.Error("published artifact missing evaluation summary")
	}
}

func TestTrainDryRunPublishesNothing(t *testing.T) {
	eng := newTestEngine(t, fixtureProvider(), nil)

	res, err := eng.Train(context.Background(), TrainOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Version != "" {
		t.Error("dry run assigned a version")
	}
	if eng.ServingVersion() != "" {
		t.Error("dry run swapped the serving model")
	}
	if _, err := eng.store.LoadCurrent(); !errors.Is(err, recommend.ErrModelUnavailable) {
		t.Error("dry run published an artifact")
	}
}

func TestTrainFailsFastOnBadNeighborCount(t *testing.T) {
	provider := fixtureProvider()
	store, err := artifact.NewStore(t.TempDir(), 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cfg := testEngineConfig()
	cfg.CF.KNeighbors = 500
	eng, err := New(cfg, store, provider, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := eng.Train(context.Background(), TrainOptions{}); err == nil {
		t.Fatal("neighbor count above corpus size must fail before training")
	}
}

func TestTrainContentOnlyWithoutInteractions(t *testing.T) {
	provider := fixtureProvider()
	provider.interactions = nil
	eng := newTestEngine(t, provider, nil)
	trainTestEngine(t, eng)

	// Cold profile user still gets content recommendations.
	recs, err := eng.Recommend(context.Background(), 200, 5, recommend.Filters{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("content-only model should serve profile users")
	}
	for _, r := range recs {
		if r.Algorithm != recommend.AlgorithmContentBased {
			t.Errorf("algorithm = %v, want content_based", r.Algorithm)
		}
	}
}

func TestReloadPicksUpExternalPublish(t *testing.T) {
	provider := fixtureProvider()
	store, err := artifact.NewStore(t.TempDir(), 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	trainer, err := New(testEngineConfig(), store, provider, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New trainer: %v", err)
	}
	server, err := New(testEngineConfig(), store, provider, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New server: %v", err)
	}

	res, err := trainer.Train(context.Background(), TrainOptions{})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if err := server.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if server.ServingVersion() != res.Version {
		t.Errorf("server serving %q after reload, want %q", server.ServingVersion(), res.Version)
	}
}

func TestRecordFeedback(t *testing.T) {
	sink := &memSink{}
	eng := newTestEngine(t, fixtureProvider(), sink)

	ok := recommend.Interaction{UserID: 1, ProductID: 2, Kind: recommend.KindRating, Value: 4.5}
	if err := eng.RecordFeedback(context.Background(), ok); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if len(sink.recorded) != 1 {
		t.Fatalf("sink received %d events, want 1", len(sink.recorded))
	}
	if sink.recorded[0].Timestamp.IsZero() {
		t.Error("missing timestamp should be filled in")
	}

	bad := []recommend.Interaction{
		{UserID: 0, ProductID: 2, Kind: recommend.KindView},
		{UserID: 1, ProductID: 0, Kind: recommend.KindView},
		{UserID: 1, ProductID: 2, Kind: recommend.KindRating, Value: 6},
		{UserID: 1, ProductID: 2, Kind: recommend.KindRating, Value: 0.5},
	}
	for _, in := range bad {
		if err := eng.RecordFeedback(context.Background(), in); err == nil {
			t.Errorf("invalid interaction %+v accepted", in)
		}
	}

	noSink := newTestEngine(t, fixtureProvider(), nil)
	if err := noSink.RecordFeedback(context.Background(), ok); err == nil {
		t.Error("engine without sink should reject feedback")
	}
}
