// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package eval runs offline k-fold cross-validation over the
// recommendation pipeline: ranking quality at several cutoffs plus
// rating prediction error, with paired significance testing between
// runs.
package eval

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/cb"
	"github.com/glowbase/recommender/internal/recommend/cf"
	"github.com/glowbase/recommender/internal/recommend/feature"
)

// DataInsufficientError reports that no fold had enough held-out
// interactions to score.
type DataInsufficientError struct {
	Folds   int
	Skipped int
	MinTest int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("evaluation skipped all %d folds: fewer than %d usable test interactions each",
		e.Folds, e.MinTest)
}

// Report is the outcome of one cross-validation run. FoldMetrics keeps
// the per-fold values in fold order so two runs with the same seed and
// fold count can be compared pairwise.
type Report struct {
	Folds       int                  `json:"folds"`
	Scored      int                  `json:"scored"`
	Skipped     int                  `json:"skipped"`
	Seed        int64                `json:"seed"`
	Metrics     map[string]Summary   `json:"metrics"`
	FoldMetrics []map[string]float64 `json:"fold_metrics"`
}

// Evaluator runs seeded, stratified cross-validation.
type Evaluator struct {
	cfg *recommend.Config
	log zerolog.Logger
}

// New returns an evaluator for a validated configuration.
func New(cfg *recommend.Config, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		cfg: cfg,
		log: log.With().Str("component", "evaluator").Logger(),
	}
}

// Run splits the interactions into stratified folds, trains a model
// per fold on the remainder, and scores held-out interactions. Folds
// without enough usable test data are skipped and counted; if every
// fold is skipped the error is a DataInsufficientError.
func (e *Evaluator) Run(ctx context.Context, products []recommend.Product, interactions []recommend.Interaction) (*Report, error) {
	folds := e.split(interactions)

	report := &Report{
		Folds:       e.cfg.Evaluation.Folds,
		Seed:        e.cfg.EffectiveSeed(),
		Metrics:     make(map[string]Summary),
		FoldMetrics: make([]map[string]float64, len(folds)),
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(folds) {
		workers = len(folds)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errs := make([]error, len(folds))

	for i := range folds {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(fold int) {
			defer wg.Done()
			defer func() { <-sem }()

			train, test := e.assemble(folds, fold)
			metrics, err := e.scoreFold(products, train, test)
			if err != nil {
				errs[fold] = err
				return
			}
			report.FoldMetrics[fold] = metrics
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perMetric := make(map[string][]float64)
	for fold, metrics := range report.FoldMetrics {
		if metrics == nil {
			report.Skipped++
			e.log.Warn().Int("fold", fold).AnErr("reason", errs[fold]).Msg("Fold skipped")
			continue
		}
		report.Scored++
		for name, v := range metrics {
			perMetric[name] = append(perMetric[name], v)
		}
	}

	if report.Scored == 0 {
		return nil, &DataInsufficientError{
			Folds:   report.Folds,
			Skipped: report.Skipped,
			MinTest: e.cfg.Evaluation.MinTestInteractions,
		}
	}

	for name, values := range perMetric {
		report.Metrics[name] = summarize(values)
	}

	e.log.Info().
		Int("folds", report.Folds).
		Int("scored", report.Scored).
		Int("skipped", report.Skipped).
		Msg("Evaluation complete")

	return report, nil
}

// Compare runs a paired t-test on one metric between two runs. Both
// runs must have the same fold structure; folds skipped in either run
// are dropped from both sides.
func Compare(a, b *Report, metric string, alpha float64) (*Comparison, error) {
	if a.Folds != b.Folds {
		return nil, fmt.Errorf("%w: %d vs %d folds", ErrNotComparable, a.Folds, b.Folds)
	}
	if a.Seed != b.Seed {
		return nil, fmt.Errorf("%w: different seeds produce different splits", ErrNotComparable)
	}

	var va, vb []float64
	for i := 0; i < len(a.FoldMetrics) && i < len(b.FoldMetrics); i++ {
		ma, mb := a.FoldMetrics[i], b.FoldMetrics[i]
		if ma == nil || mb == nil {
			continue
		}
		xa, oka := ma[metric]
		xb, okb := mb[metric]
		if !oka || !okb {
			return nil, fmt.Errorf("%w: metric %q missing from fold %d", ErrNotComparable, metric, i)
		}
		va = append(va, xa)
		vb = append(vb, xb)
	}

	return pairedTTest(metric, va, vb, alpha)
}

// split assigns interactions to folds stratified by user: each user's
// interactions are shuffled with the run seed and dealt round-robin,
// so every fold sees a share of every active user's history.
func (e *Evaluator) split(interactions []recommend.Interaction) [][]recommend.Interaction {
	k := e.cfg.Evaluation.Folds
	folds := make([][]recommend.Interaction, k)

	byUser := make(map[int64][]recommend.Interaction)
	for _, in := range interactions {
		byUser[in.UserID] = append(byUser[in.UserID], in)
	}

	users := make([]int64, 0, len(byUser))
	for id := range byUser {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	rng := rand.New(rand.NewSource(e.cfg.EffectiveSeed()))
	for _, uid := range users {
		items := byUser[uid]
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		offset := rng.Intn(k)
		for i, in := range items {
			folds[(offset+i)%k] = append(folds[(offset+i)%k], in)
		}
	}

	return folds
}

func (e *Evaluator) assemble(folds [][]recommend.Interaction, test int) (train, testSet []recommend.Interaction) {
	for i, f := range folds {
		if i == test {
			testSet = f
			continue
		}
		train = append(train, f...)
	}
	return train, testSet
}

// scoreFold trains on the train split and measures ranking and rating
// metrics on the held-out split. Only test interactions of users with
// train-split history are usable; below the configured minimum the
// fold is skipped.
func (e *Evaluator) scoreFold(products []recommend.Product, train, test []recommend.Interaction) (map[string]float64, error) {
	cfm, err := cf.Train(train, e.cfg.CF)
	if err != nil {
		return nil, fmt.Errorf("fold training: %w", err)
	}

	fm, err := feature.New(e.cfg.Features).Build(products)
	if err != nil {
		return nil, fmt.Errorf("fold features: %w", err)
	}
	cbe := cb.New(fm, products)

	// Group the held-out interactions by user, keeping only users the
	// fold's model knows.
	testByUser := make(map[int64][]recommend.Interaction)
	usable := 0
	for _, in := range test {
		if cfm.InteractionCount(in.UserID) == 0 {
			continue
		}
		testByUser[in.UserID] = append(testByUser[in.UserID], in)
		usable++
	}
	if usable < e.cfg.Evaluation.MinTestInteractions {
		return nil, &DataInsufficientError{
			Folds:   1,
			Skipped: 1,
			MinTest: e.cfg.Evaluation.MinTestInteractions,
		}
	}

	users := make([]int64, 0, len(testByUser))
	for uid := range testByUser {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	cutoffs := e.cfg.Evaluation.Cutoffs
	sums := make(map[string]float64)
	rankedUsers := 0
	var sqErr, absErr float64
	ratingCount := 0

	for _, uid := range users {
		held := testByUser[uid]

		// Rating prediction error over held-out explicit ratings.
		for _, in := range held {
			if in.Kind != recommend.KindRating {
				continue
			}
			pred, ok := cfm.PredictValue(uid, in.ProductID)
			if !ok {
				continue
			}
			d := pred - in.Value
			sqErr += d * d
			absErr += math.Abs(d)
			ratingCount++
		}

		relevant := make(map[int64]struct{})
		for _, in := range held {
			if in.Weight() >= e.cfg.Evaluation.RelevanceThreshold {
				relevant[in.ProductID] = struct{}{}
			}
		}
		if len(relevant) == 0 {
			continue
		}

		ranked := e.rank(uid, cbe, cfm, products)
		if len(ranked) == 0 {
			continue
		}
		rankedUsers++
		for _, k := range cutoffs {
			p, r, f1 := rankingMetrics(ranked, relevant, k)
			sums[metricKey("precision", k)] += p
			sums[metricKey("recall", k)] += r
			sums[metricKey("f1", k)] += f1
		}
	}

	metrics := make(map[string]float64)
	if rankedUsers > 0 {
		for name, sum := range sums {
			metrics[name] = sum / float64(rankedUsers)
		}
	} else {
		for _, k := range cutoffs {
			metrics[metricKey("precision", k)] = 0
			metrics[metricKey("recall", k)] = 0
			metrics[metricKey("f1", k)] = 0
		}
	}
	if ratingCount > 0 {
		metrics["rmse"] = math.Sqrt(sqErr / float64(ratingCount))
		metrics["mae"] = absErr / float64(ratingCount)
	}

	return metrics, nil
}

// rank orders candidate products for a user exactly the way serving
// does: normalized content and collaborative scores fused with the
// interaction-count-dependent weights, deterministic tie-breaks.
func (e *Evaluator) rank(userID int64, cbe *cb.Engine, cfm *cf.Model, products []recommend.Product) []int64 {
	cbScores := make(map[int64]float64)
	cfScores := make(map[int64]float64)

	// Content side: a pseudo-profile from the user's train history, a
	// candidate scoring as its mean similarity to the history items.
	history := make([]int64, 0)
	for _, p := range products {
		if cfm.Rated(userID, p.ID) {
			history = append(history, p.ID)
		}
	}
	for _, p := range products {
		if cfm.Rated(userID, p.ID) {
			continue
		}
		var sum float64
		for _, h := range history {
			sum += cbe.Similarity(p.ID, h)
		}
		if len(history) > 0 && sum > 0 {
			cbScores[p.ID] = sum / float64(len(history))
		}
	}

	if scores, err := cfm.Predict(userID, products); err == nil {
		cfScores = scores
	}

	w := e.cfg.Weights(cfm.InteractionCount(userID))
	fused := recommend.Blend(recommend.NormalizeScores(cbScores), recommend.NormalizeScores(cfScores), w)

	byID := make(map[int64]recommend.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	scored := make([]recommend.Scored, 0, len(fused))
	for id, s := range fused {
		scored = append(scored, recommend.Scored{Product: byID[id], Score: s})
	}
	recommend.RankProducts(scored)

	ranked := make([]int64, len(scored))
	for i, s := range scored {
		ranked[i] = s.Product.ID
	}
	return ranked
}
