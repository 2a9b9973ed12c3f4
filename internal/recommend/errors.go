// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package recommend

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by inference calls when no trained
// artifact can be loaded (missing or corrupt current version). Callers
// are expected to fall back to popularity ranking rather than retry in
// a loop.
var ErrModelUnavailable = errors.New("recommendation model unavailable")

// ColdStartError signals that a user has too little interaction history
// for collaborative filtering to produce a reliable prediction. It is an
// internal signal consumed by the hybrid combiner, never surfaced to
// callers of the engine.
type ColdStartError struct {
	UserID       int64
	Interactions int
	Threshold    int
}

// Error implements the error interface.
func (e *ColdStartError) Error() string {
	return fmt.Sprintf("cold start: user %d has %d interactions, need %d",
		e.UserID, e.Interactions, e.Threshold)
}

// IsColdStart reports whether err is (or wraps) a ColdStartError.
func IsColdStart(err error) bool {
	var cs *ColdStartError
	return errors.As(err, &cs)
}
