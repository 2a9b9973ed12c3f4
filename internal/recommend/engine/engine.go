// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package engine orchestrates the recommendation pipeline: it trains
// and publishes model artifacts, serves hybrid recommendations from
// the currently loaded artifact, and forwards feedback into the
// ingestion pipeline. Serving never touches the catalog store; model
// swaps are a single atomic pointer exchange.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/artifact"
	"github.com/glowbase/recommender/internal/recommend/cb"
)

// Weights for item-to-item similarity: the content vector dominates,
// the co-interaction signal refines the ordering.
const (
	similarContentWeight = 0.7
	similarCollabWeight  = 0.3
)

// DataProvider supplies training corpora and shopper profiles. The
// serving path only calls Profile; Products and Interactions are read
// once per training run. Profile returns nil with no error for users
// who never stored one.
type DataProvider interface {
	Products(ctx context.Context) ([]recommend.Product, error)
	Interactions(ctx context.Context) ([]recommend.Interaction, error)
	Profile(ctx context.Context, userID int64) (*recommend.Profile, error)
}

// FeedbackSink accepts validated interaction events for asynchronous
// ingestion.
type FeedbackSink interface {
	Record(ctx context.Context, in recommend.Interaction) error
}

// servingModel is the immutable bundle the request path reads. A new
// one is built per artifact and swapped in atomically.
type servingModel struct {
	art  *artifact.Artifact
	cb   *cb.Engine
	byID map[int64]recommend.Product
}

// Engine is the recommendation orchestrator. Safe for concurrent use.
type Engine struct {
	cfg   *recommend.Config
	store *artifact.Store
	data  DataProvider
	sink  FeedbackSink
	log   zerolog.Logger

	current atomic.Pointer[servingModel]
	loadMu  sync.Mutex
}

// New builds an engine. sink may be nil when feedback ingestion is not
// wired (the trainer binary, for instance).
func New(cfg *recommend.Config, store *artifact.Store, data DataProvider, sink FeedbackSink, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:   cfg,
		store: store,
		data:  data,
		sink:  sink,
		log:   log.With().Str("component", "recommend_engine").Logger(),
	}, nil
}

// Recommend returns up to count ranked recommendations for a user.
// count of zero uses the configured default; values above the maximum
// are clamped. Products the user already interacted with are excluded,
// and no product appears twice.
func (e *Engine) Recommend(ctx context.Context, userID int64, count int, filters recommend.Filters) ([]recommend.Recommendation, error) {
	start := time.Now()
	count = e.clampCount(count)
	reqLog := e.log.With().
		Str("request_id", uuid.NewString()).
		Int64("user_id", userID).
		Logger()

	model, err := e.model()
	if err != nil {
		metrics.RecordRecommendation("recommend", "hybrid", 0, time.Since(start), err)
		return nil, err
	}

	profile, err := e.data.Profile(ctx, userID)
	if err != nil {
		reqLog.Warn().Err(err).Msg("Profile lookup failed, serving without profile")
		profile = nil
	}

	// Allergen exclusion is a hard filter on the candidate set itself:
	// no score from any component can bring an excluded product back.
	candidates := make([]recommend.Product, 0, len(model.art.Products))
	for _, p := range model.art.Products {
		if !filters.Match(&p) {
			continue
		}
		if model.art.CF != nil && model.art.CF.Rated(userID, p.ID) {
			continue
		}
		if profile != nil && p.ContainsAnyIngredient(profile.Allergens) {
			continue
		}
		candidates = append(candidates, p)
	}

	cbScores := model.cb.ScoreProfile(profile, candidates)

	interactions := 0
	cfScores := map[int64]float64{}
	if model.art.CF != nil {
		interactions = model.art.CF.InteractionCount(userID)
		scores, err := model.art.CF.Predict(userID, candidates)
		switch {
		case err == nil:
			cfScores = scores
		case recommend.IsColdStart(err):
			metrics.ColdStartRequests.Inc()
			reqLog.Debug().Int("interactions", interactions).Msg("Cold-start user, content weighting")
		default:
			return nil, err
		}
	}

	w := e.cfg.Weights(interactions)
	algorithm := pickAlgorithm(cbScores, cfScores)

	var recs []recommend.Recommendation
	if algorithm == recommend.AlgorithmPopularityFallback {
		recs = e.popularityFallback(candidates, interactions, count)
	} else {
		recs = e.blendAndRank(model, profile, cbScores, cfScores, w, interactions, algorithm, count)
	}

	metrics.RecordRecommendation("recommend", algorithm.String(), len(recs), time.Since(start), nil)
	reqLog.Debug().
		Str("algorithm", algorithm.String()).
		Int("results", len(recs)).
		Bool("cold", w.Cold).
		Dur("elapsed", time.Since(start)).
		Msg("Recommendations served")

	return recs, nil
}

// SimilarItems returns products similar to an anchor product, fusing
// the content vector with the collaborative neighbor signal.
func (e *Engine) SimilarItems(ctx context.Context, productID int64, count int) ([]recommend.Recommendation, error) {
	start := time.Now()
	count = e.clampCount(count)

	model, err := e.model()
	if err != nil {
		metrics.RecordRecommendation("similar", "content_based", 0, time.Since(start), err)
		return nil, err
	}
	if _, ok := model.byID[productID]; !ok {
		err := fmt.Errorf("product %d not in served catalog", productID)
		metrics.RecordRecommendation("similar", "content_based", 0, time.Since(start), err)
		return nil, err
	}

	cbScores, err := model.cb.ScoreSimilar(productID, model.art.Products)
	if err != nil {
		metrics.RecordRecommendation("similar", "content_based", 0, time.Since(start), err)
		return nil, err
	}

	cfScores := map[int64]float64{}
	if model.art.CF != nil {
		for _, nb := range model.art.CF.SimilarTo(productID, 0) {
			cfScores[nb.ProductID] = nb.Sim
		}
	}

	fused := recommend.Blend(
		recommend.NormalizeScores(cbScores),
		recommend.NormalizeScores(cfScores),
		recommend.BlendWeights{CB: similarContentWeight, CF: similarCollabWeight},
	)
	delete(fused, productID)

	scored := make([]recommend.Scored, 0, len(fused))
	for id, s := range fused {
		p, ok := model.byID[id]
		if !ok {
			continue
		}
		scored = append(scored, recommend.Scored{Product: p, Score: s})
	}
	recommend.RankProducts(scored)
	if len(scored) > count {
		scored = scored[:count]
	}

	anchor := model.byID[productID]
	recs := make([]recommend.Recommendation, len(scored))
	for i, s := range scored {
		recs[i] = recommend.Recommendation{
			Product:    s.Product,
			Score:      s.Score,
			Confidence: recommend.Confidence(0, s.Product),
			Algorithm:  recommend.AlgorithmContentBased,
			Reasons:    []string{"similar to " + anchor.Name},
		}
	}

	metrics.RecordRecommendation("similar", recommend.AlgorithmContentBased.String(), len(recs), time.Since(start), nil)
	return recs, nil
}

// RecordFeedback validates an interaction and hands it to the sink.
func (e *Engine) RecordFeedback(ctx context.Context, in recommend.Interaction) error {
	if e.sink == nil {
		return fmt.Errorf("feedback ingestion not configured")
	}
	if in.UserID <= 0 || in.ProductID <= 0 {
		return fmt.Errorf("feedback requires positive user and product identifiers")
	}
	if in.Kind == recommend.KindRating && (in.Value < 1 || in.Value > 5) {
		return fmt.Errorf("rating value %.1f outside [1, 5]", in.Value)
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	err := e.sink.Record(ctx, in)
	metrics.RecordFeedbackPublish(in.Kind.String(), err)
	return err
}

// Reload loads the current published artifact and swaps it in. Called
// at startup and after external publishes.
func (e *Engine) Reload() error {
	art, err := e.store.LoadCurrent()
	metrics.RecordArtifactLoad(err)
	if err != nil {
		return err
	}
	e.swap(art)
	e.log.Info().Str("version", art.Version).Msg("Serving model reloaded")
	return nil
}

// ServingVersion returns the version currently being served, or ""
// when no model is loaded.
func (e *Engine) ServingVersion() string {
	if m := e.current.Load(); m != nil {
		return m.art.Version
	}
	return ""
}

// model returns the serving bundle, lazily loading the published
// artifact on first use. The mutex only guards the load; the hot path
// is a single atomic read.
func (e *Engine) model() (*servingModel, error) {
	if m := e.current.Load(); m != nil {
		return m, nil
	}

	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if m := e.current.Load(); m != nil {
		return m, nil
	}

	art, err := e.store.LoadCurrent()
	metrics.RecordArtifactLoad(err)
	if err != nil {
		return nil, err
	}
	return e.swap(art), nil
}

func (e *Engine) swap(art *artifact.Artifact) *servingModel {
	byID := make(map[int64]recommend.Product, len(art.Products))
	for _, p := range art.Products {
		byID[p.ID] = p
	}
	m := &servingModel{
		art:  art,
		cb:   cb.New(art.Features, art.Products),
		byID: byID,
	}
	e.current.Store(m)
	metrics.ModelVocabSize.Set(float64(art.Features.VocabSize()))
	return m
}

func (e *Engine) clampCount(count int) int {
	if count <= 0 {
		return e.cfg.Limits.DefaultCount
	}
	if count > e.cfg.Limits.MaxCount {
		return e.cfg.Limits.MaxCount
	}
	return count
}

func (e *Engine) blendAndRank(model *servingModel, profile *recommend.Profile, cbScores, cfScores map[int64]float64, w recommend.BlendWeights, interactions int, algorithm recommend.Algorithm, count int) []recommend.Recommendation {
	normCB := recommend.NormalizeScores(cbScores)
	normCF := recommend.NormalizeScores(cfScores)
	fused := recommend.Blend(normCB, normCF, w)

	scored := make([]recommend.Scored, 0, len(fused))
	for id, s := range fused {
		p, ok := model.byID[id]
		if !ok {
			continue
		}
		scored = append(scored, recommend.Scored{Product: p, Score: s})
	}
	recommend.RankProducts(scored)
	if len(scored) > count {
		scored = scored[:count]
	}

	recs := make([]recommend.Recommendation, len(scored))
	for i, s := range scored {
		recs[i] = recommend.Recommendation{
			Product:    s.Product,
			Score:      s.Score,
			Confidence: recommend.Confidence(interactions, s.Product),
			Algorithm:  algorithm,
			Reasons:    recommend.BuildReasons(s.Product, profile, w, normCB[s.Product.ID], normCF[s.Product.ID]),
		}
	}
	return recs
}

// popularityFallback ranks by catalog statistics when neither
// component produced a signal. Candidates arrive with filters and
// allergen exclusion already applied.
func (e *Engine) popularityFallback(candidates []recommend.Product, interactions, count int) []recommend.Recommendation {
	scored := make([]recommend.Scored, 0, len(candidates))
	for _, p := range candidates {
		scored = append(scored, recommend.Scored{Product: p, Score: recommend.PopularityScore(p)})
	}
	recommend.RankProducts(scored)
	if len(scored) > count {
		scored = scored[:count]
	}

	recs := make([]recommend.Recommendation, len(scored))
	for i, s := range scored {
		recs[i] = recommend.Recommendation{
			Product:    s.Product,
			Score:      s.Score,
			Confidence: recommend.Confidence(interactions, s.Product),
			Algorithm:  recommend.AlgorithmPopularityFallback,
			Reasons:    []string{popularityReason(s.Product)},
		}
	}
	return recs
}

func popularityReason(p recommend.Product) string {
	if p.ReviewCount > 0 {
		return fmt.Sprintf("rated %.1f by %d shoppers", p.Rating, p.ReviewCount)
	}
	return "popular in " + strings.ToLower(p.Category)
}

func pickAlgorithm(cbScores, cfScores map[int64]float64) recommend.Algorithm {
	switch {
	case len(cbScores) > 0 && len(cfScores) > 0:
		return recommend.AlgorithmHybrid
	case len(cbScores) > 0:
		return recommend.AlgorithmContentBased
	case len(cfScores) > 0:
		return recommend.AlgorithmCollaborative
	default:
		return recommend.AlgorithmPopularityFallback
	}
}
