// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend"
)

const (
	modelFile     = "model.gob.gz"
	metadataFile  = "metadata.json"
	currentFile   = "CURRENT"
	stagingPrefix = ".staging-"
)

// Store reads and writes versioned artifacts under a base directory.
//
// Layout:
//
//	<dir>/<version>/model.gob.gz
//	<dir>/<version>/metadata.json
//	<dir>/CURRENT            (contains the active version string)
//
// The CURRENT pointer is replaced by atomic rename, so readers always
// see either the previous version or the new one, never a partial
// state.
type Store struct {
	dir    string
	retain int
	log    zerolog.Logger
}

// NewStore opens a store rooted at dir, creating it if needed. retain
// is the number of versions kept after each publish.
func NewStore(dir string, retain int, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if retain < 1 {
		retain = 1
	}
	return &Store{
		dir:    dir,
		retain: retain,
		log:    log.With().Str("component", "artifact_store").Logger(),
	}, nil
}

// Save encodes the artifact, publishes it as a new version, flips the
// CURRENT pointer, and prunes versions beyond the retention count. The
// assigned version string is returned and written back to the artifact.
func (s *Store) Save(a *Artifact) (string, error) {
	// Nanosecond precision keeps lexicographic order chronological even
	// for back-to-back publishes.
	version := fmt.Sprintf("%s-%s",
		time.Now().UTC().Format("20060102T150405.000000000Z"),
		uuid.NewString()[:8])
	a.Version = version
	if a.TrainedAt.IsZero() {
		a.TrainedAt = time.Now().UTC()
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(a); err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("compress artifact: %w", err)
	}
	blob := buf.Bytes()
	sum := sha256.Sum256(blob)

	interactions := 0
	if a.CF != nil {
		for _, items := range a.CF.UserItems {
			interactions += len(items)
		}
	}
	vocab := 0
	if a.Features != nil {
		vocab = a.Features.VocabSize()
	}
	meta := Metadata{
		Version:      version,
		TrainedAt:    a.TrainedAt,
		Checksum:     hex.EncodeToString(sum[:]),
		Products:     len(a.Products),
		Interactions: interactions,
		VocabSize:    vocab,
		Config:       a.Config,
		Eval:         a.Eval,
	}
	if a.Config != nil {
		meta.Seed = a.Config.EffectiveSeed()
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	staging := filepath.Join(s.dir, stagingPrefix+version)
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := os.WriteFile(filepath.Join(staging, modelFile), blob, 0o640); err != nil {
		return "", fmt.Errorf("write model blob: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, metadataFile), metaJSON, 0o640); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	final := filepath.Join(s.dir, version)
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("publish version %s: %w", version, err)
	}

	if err := s.setCurrent(version); err != nil {
		return "", err
	}
	s.prune()
	metrics.ArtifactBytes.Set(float64(len(blob)))

	s.log.Info().
		Str("version", version).
		Int("products", meta.Products).
		Int("vocab_size", meta.VocabSize).
		Int("bytes", len(blob)).
		Msg("Published model artifact")

	return version, nil
}

// LoadCurrent loads the version CURRENT points at. A missing pointer,
// missing version directory, or checksum mismatch all surface as
// recommend.ErrModelUnavailable so callers can fall back uniformly.
func (s *Store) LoadCurrent() (*Artifact, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		return nil, fmt.Errorf("%w: no published version", recommend.ErrModelUnavailable)
	}
	version := strings.TrimSpace(string(raw))
	if version == "" {
		return nil, fmt.Errorf("%w: empty version pointer", recommend.ErrModelUnavailable)
	}
	return s.Load(version)
}

// Load reads and verifies one specific version.
func (s *Store) Load(version string) (*Artifact, error) {
	dir := filepath.Join(s.dir, version)

	metaRaw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("%w: version %s metadata missing", recommend.ErrModelUnavailable, version)
	}
	var meta Metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("%w: version %s metadata corrupt", recommend.ErrModelUnavailable, version)
	}

	blob, err := os.ReadFile(filepath.Join(dir, modelFile))
	if err != nil {
		return nil, fmt.Errorf("%w: version %s blob missing", recommend.ErrModelUnavailable, version)
	}
	sum := sha256.Sum256(blob)
	if hex.EncodeToString(sum[:]) != meta.Checksum {
		return nil, fmt.Errorf("%w: version %s checksum mismatch", recommend.ErrModelUnavailable, version)
	}

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: version %s not gzip", recommend.ErrModelUnavailable, version)
	}
	defer gz.Close()

	var a Artifact
	if err := gob.NewDecoder(gz).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: version %s decode failed", recommend.ErrModelUnavailable, version)
	}

	s.log.Debug().Str("version", version).Msg("Loaded model artifact")
	return &a, nil
}

// CurrentVersion returns the version CURRENT points at, or "" when
// nothing has been published.
func (s *Store) CurrentVersion() string {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// Versions lists published versions, newest first. The timestamp
// prefix makes lexicographic order chronological.
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), stagingPrefix) {
			continue
		}
		versions = append(versions, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

// setCurrent atomically updates the CURRENT pointer.
func (s *Store) setCurrent(version string) error {
	tmp := filepath.Join(s.dir, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(version+"\n"), 0o640); err != nil {
		return fmt.Errorf("write version pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		return fmt.Errorf("flip version pointer: %w", err)
	}
	return nil
}

// prune removes versions beyond the retention count, never touching
// the one CURRENT points at.
func (s *Store) prune() {
	versions, err := s.Versions()
	if err != nil || len(versions) <= s.retain {
		return
	}
	current := s.CurrentVersion()
	for _, v := range versions[s.retain:] {
		if v == current {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, v)); err != nil {
			s.log.Warn().Err(err).Str("version", v).Msg("Failed to prune artifact version")
			continue
		}
		s.log.Debug().Str("version", v).Msg("Pruned artifact version")
	}
}
