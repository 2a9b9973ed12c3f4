// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package eval

import "fmt"

// rankingMetrics computes precision, recall, and F1 at one cutoff.
// ranked is the model's ordering (best first); relevant is the set of
// held-out items that count as hits. An empty relevant set yields
// zeros rather than division errors.
func rankingMetrics(ranked []int64, relevant map[int64]struct{}, k int) (precision, recall, f1 float64) {
	if k <= 0 || len(relevant) == 0 {
		return 0, 0, 0
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	hits := 0
	for _, id := range ranked {
		if _, ok := relevant[id]; ok {
			hits++
		}
	}

	precision = float64(hits) / float64(k)
	recall = float64(hits) / float64(len(relevant))
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

func metricKey(name string, k int) string {
	return fmt.Sprintf("%s@%d", name, k)
}
