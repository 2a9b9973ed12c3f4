// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feature

import "strings"

// stopwords are common English terms excluded from the vocabulary.
// Kept small on purpose; catalog text is dominated by domain terms.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "helps": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"with": {}, "your": {},
}

// tokenize lowercases text, splits on everything except letters,
// digits, and intra-word hyphens, and drops stopwords and single
// characters. Hyphens are preserved so "oil-free" and "non-comedogenic"
// stay single tokens.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "-")
		b.Reset()
		if len(tok) < 2 {
			return
		}
		if _, stop := stopwords[tok]; stop {
			return
		}
		tokens = append(tokens, tok)
	}

	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// ngrams expands a token stream into all n-grams for n in [min, max].
// Multi-token grams are joined with a single space.
func ngrams(tokens []string, min, max int) []string {
	if min <= 1 && max <= 1 {
		return tokens
	}

	var out []string
	for n := min; n <= max; n++ {
		if n == 1 {
			out = append(out, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
