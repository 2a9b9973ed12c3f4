// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package catalog is the product catalog store, backed by an embedded
// DuckDB database. It supplies training corpora and shopper profiles
// to the recommendation engine. Reads go through a circuit breaker so
// a wedged database degrades serving instead of hanging it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend"
)

const listSep = "|"

// Store wraps the catalog database. Safe for concurrent use; the
// underlying sql.DB pools connections.
type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker[any]
	log     zerolog.Logger
}

// Open opens (or creates) the catalog database at path and bootstraps
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &Store{
		db:  db,
		log: log.With().Str("component", "catalog").Logger(),
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "catalog",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				log.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Catalog circuit breaker state change")
			},
		}),
	}

	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) bootstrap() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			name VARCHAR NOT NULL,
			brand VARCHAR,
			category VARCHAR NOT NULL,
			subcategory VARCHAR,
			price DOUBLE NOT NULL DEFAULT 0,
			description VARCHAR,
			rating DOUBLE NOT NULL DEFAULT 0,
			review_count INTEGER NOT NULL DEFAULT 0,
			organic BOOLEAN NOT NULL DEFAULT FALSE,
			cruelty_free BOOLEAN NOT NULL DEFAULT FALSE,
			vegan BOOLEAN NOT NULL DEFAULT FALSE,
			fragrance_free BOOLEAN NOT NULL DEFAULT FALSE,
			skin_types VARCHAR,
			concerns VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS ingredients (
			id BIGINT PRIMARY KEY,
			name VARCHAR NOT NULL,
			function VARCHAR,
			safety_rating INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS product_ingredients (
			product_id BIGINT NOT NULL,
			ingredient_id BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			user_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			kind VARCHAR NOT NULL,
			value DOUBLE NOT NULL DEFAULT 0,
			ts TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id BIGINT PRIMARY KEY,
			skin_type VARCHAR,
			concerns VARCHAR,
			allergens VARCHAR,
			preferred_brands VARCHAR,
			preferred_categories VARCHAR,
			min_price DOUBLE NOT NULL DEFAULT 0,
			max_price DOUBLE NOT NULL DEFAULT 0,
			prefer_organic BOOLEAN NOT NULL DEFAULT FALSE,
			prefer_cruelty_free BOOLEAN NOT NULL DEFAULT FALSE,
			prefer_fragrance_free BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// execute runs a read through the circuit breaker and counts the
// outcome per breaker name.
func (s *Store) execute(fn func() (any, error)) (any, error) {
	out, err := s.breaker.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues("catalog", "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues("catalog", "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues("catalog", "failure").Inc()
	}
	return out, err
}

// Products loads the full catalog with ingredients attached, ordered
// by product ID.
func (s *Store) Products(ctx context.Context) ([]recommend.Product, error) {
	start := time.Now()
	out, err := s.execute(func() (any, error) {
		return s.loadProducts(ctx)
	})
	metrics.RecordCatalogQuery("products", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out.([]recommend.Product), nil
}

func (s *Store) loadProducts(ctx context.Context) ([]recommend.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(brand, ''), category, COALESCE(subcategory, ''),
		       price, COALESCE(description, ''), rating, review_count,
		       organic, cruelty_free, vegan, fragrance_free,
		       COALESCE(skin_types, ''), COALESCE(concerns, '')
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []recommend.Product
	index := make(map[int64]int)
	for rows.Next() {
		var p recommend.Product
		var skinTypes, concerns string
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Subcategory,
			&p.Price, &p.Description, &p.Rating, &p.ReviewCount,
			&p.Organic, &p.CrueltyFree, &p.Vegan, &p.FragranceFree,
			&skinTypes, &concerns); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.SkinTypes = splitList(skinTypes)
		p.Concerns = splitList(concerns)
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	ingRows, err := s.db.QueryContext(ctx, `
		SELECT pi.product_id, i.id, i.name, COALESCE(i.function, ''), i.safety_rating
		FROM product_ingredients pi
		JOIN ingredients i ON i.id = pi.ingredient_id
		ORDER BY pi.product_id, i.id`)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer ingRows.Close()

	for ingRows.Next() {
		var productID int64
		var ing recommend.Ingredient
		if err := ingRows.Scan(&productID, &ing.ID, &ing.Name, &ing.Function, &ing.SafetyRating); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		if idx, ok := index[productID]; ok {
			products[idx].Ingredients = append(products[idx].Ingredients, ing)
		}
	}
	if err := ingRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}

	return products, nil
}

// Interactions loads all interactions in chronological order.
func (s *Store) Interactions(ctx context.Context) ([]recommend.Interaction, error) {
	start := time.Now()
	out, err := s.execute(func() (any, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT user_id, product_id, kind, value, ts FROM interactions ORDER BY ts, user_id, product_id`)
		if err != nil {
			return nil, fmt.Errorf("query interactions: %w", err)
		}
		defer rows.Close()

		var interactions []recommend.Interaction
		for rows.Next() {
			var in recommend.Interaction
			var kind string
			if err := rows.Scan(&in.UserID, &in.ProductID, &kind, &in.Value, &in.Timestamp); err != nil {
				return nil, fmt.Errorf("scan interaction: %w", err)
			}
			k, err := recommend.ParseInteractionKind(kind)
			if err != nil {
				s.log.Warn().Str("kind", kind).Int64("user_id", in.UserID).Msg("Skipping unknown interaction kind")
				continue
			}
			in.Kind = k
			interactions = append(interactions, in)
		}
		return interactions, rows.Err()
	})
	metrics.RecordCatalogQuery("interactions", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out.([]recommend.Interaction), nil
}

// Profile loads one shopper profile. A user without a stored profile
// yields nil with no error; serving treats them as anonymous.
func (s *Store) Profile(ctx context.Context, userID int64) (*recommend.Profile, error) {
	start := time.Now()
	out, err := s.execute(func() (any, error) {
		row := s.db.QueryRowContext(ctx, `
			SELECT user_id, COALESCE(skin_type, ''), COALESCE(concerns, ''), COALESCE(allergens, ''),
			       COALESCE(preferred_brands, ''), COALESCE(preferred_categories, ''),
			       min_price, max_price, prefer_organic, prefer_cruelty_free, prefer_fragrance_free
			FROM profiles WHERE user_id = ?`, userID)

		var p recommend.Profile
		var concerns, allergens, brands, categories string
		err := row.Scan(&p.UserID, &p.SkinType, &concerns, &allergens, &brands, &categories,
			&p.MinPrice, &p.MaxPrice, &p.PreferOrganic, &p.PreferCrueltyFree, &p.PreferFragranceFree)
		if errors.Is(err, sql.ErrNoRows) {
			return (*recommend.Profile)(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Concerns = splitList(concerns)
		p.Allergens = splitList(allergens)
		p.PreferredBrands = splitList(brands)
		p.PreferredCategories = splitList(categories)
		return &p, nil
	})
	metrics.RecordCatalogQuery("profile", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out.(*recommend.Profile), nil
}

// TopRated returns the n highest products by popularity score,
// computed in the database.
func (s *Store) TopRated(ctx context.Context, n int) ([]recommend.Product, error) {
	start := time.Now()
	out, err := s.execute(func() (any, error) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id FROM products
			ORDER BY rating * ln(1 + review_count) DESC, rating DESC, id
			LIMIT ?`, n)
		if err != nil {
			return nil, fmt.Errorf("query top rated: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("scan top rated: %w", err)
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	})
	metrics.RecordCatalogQuery("top_rated", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	ids := out.([]int64)
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]recommend.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ranked := make([]recommend.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ranked = append(ranked, p)
		}
	}
	return ranked, nil
}

// InsertProduct stores a product and its ingredient links. Unknown
// ingredients must be inserted first with InsertIngredient.
func (s *Store) InsertProduct(ctx context.Context, p recommend.Product) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, brand, category, subcategory, price, description,
		                      rating, review_count, organic, cruelty_free, vegan, fragrance_free,
		                      skin_types, concerns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Brand, p.Category, p.Subcategory, p.Price, p.Description,
		p.Rating, p.ReviewCount, p.Organic, p.CrueltyFree, p.Vegan, p.FragranceFree,
		joinList(p.SkinTypes), joinList(p.Concerns))
	if err == nil {
		for _, ing := range p.Ingredients {
			if _, err = s.db.ExecContext(ctx,
				`INSERT INTO product_ingredients (product_id, ingredient_id) VALUES (?, ?)`,
				p.ID, ing.ID); err != nil {
				break
			}
		}
	}
	metrics.RecordCatalogQuery("insert_product", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert product %d: %w", p.ID, err)
	}
	return nil
}

// InsertIngredient stores one ingredient.
func (s *Store) InsertIngredient(ctx context.Context, ing recommend.Ingredient) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingredients (id, name, function, safety_rating) VALUES (?, ?, ?, ?)`,
		ing.ID, ing.Name, ing.Function, ing.SafetyRating)
	if err != nil {
		return fmt.Errorf("insert ingredient %d: %w", ing.ID, err)
	}
	return nil
}

// InsertInteraction appends one interaction event.
func (s *Store) InsertInteraction(ctx context.Context, in recommend.Interaction) error {
	start := time.Now()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (user_id, product_id, kind, value, ts) VALUES (?, ?, ?, ?, ?)`,
		in.UserID, in.ProductID, in.Kind.String(), in.Value, ts)
	metrics.RecordCatalogQuery("insert_interaction", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// UpsertProfile stores or replaces a shopper profile.
func (s *Store) UpsertProfile(ctx context.Context, p *recommend.Profile) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (user_id, skin_type, concerns, allergens,
		                                 preferred_brands, preferred_categories,
		                                 min_price, max_price,
		                                 prefer_organic, prefer_cruelty_free, prefer_fragrance_free)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.SkinType, joinList(p.Concerns), joinList(p.Allergens),
		joinList(p.PreferredBrands), joinList(p.PreferredCategories),
		p.MinPrice, p.MaxPrice, p.PreferOrganic, p.PreferCrueltyFree, p.PreferFragranceFree)
	metrics.RecordCatalogQuery("upsert_profile", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.UserID, err)
	}
	return nil
}

func joinList(items []string) string {
	return strings.Join(items, listSep)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
