// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package eval

import (
	"errors"
	"fmt"
	"math"
)

// Summary is the aggregate of one metric across scored folds.
type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// Comparison is the result of a paired t-test between two evaluation
// runs on one metric. Positive MeanDiff means the first run scored
// higher.
type Comparison struct {
	Metric      string  `json:"metric"`
	MeanDiff    float64 `json:"mean_diff"`
	TStat       float64 `json:"t_stat"`
	PValue      float64 `json:"p_value"`
	DF          int     `json:"df"`
	Significant bool    `json:"significant"`
}

// ErrNotComparable reports evaluation runs whose fold structures do
// not line up for a paired test.
var ErrNotComparable = errors.New("evaluation runs are not comparable")

func summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	if n == 1 {
		return Summary{Mean: mean, N: 1}
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return Summary{Mean: mean, Std: math.Sqrt(ss / float64(n-1)), N: n}
}

// pairedTTest computes a two-sided paired t-test over per-fold metric
// values from two runs. At least two pairs are required.
func pairedTTest(metric string, a, b []float64, alpha float64) (*Comparison, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d folds", ErrNotComparable, len(a), len(b))
	}
	n := len(a)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 paired folds, got %d", ErrNotComparable, n)
	}

	diffs := make([]float64, n)
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	s := summarize(diffs)

	if s.Std == 0 {
		// Identical differences across all folds. No variance means the
		// test is degenerate; treat a nonzero constant shift as decisive.
		c := &Comparison{Metric: metric, MeanDiff: s.Mean, DF: n - 1, PValue: 1}
		if s.Mean != 0 {
			c.TStat = math.Inf(sign(s.Mean))
			c.PValue = 0
			c.Significant = true
		}
		return c, nil
	}

	t := s.Mean / (s.Std / math.Sqrt(float64(n)))
	df := float64(n - 1)
	p := studentTwoSidedP(t, df)

	return &Comparison{
		Metric:      metric,
		MeanDiff:    s.Mean,
		TStat:       t,
		PValue:      p,
		DF:          n - 1,
		Significant: p < alpha,
	}, nil
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}

// studentTwoSidedP is the two-sided p-value of Student's t with df
// degrees of freedom, via the regularized incomplete beta function:
// p = I_{df/(df+t^2)}(df/2, 1/2).
func studentTwoSidedP(t, df float64) float64 {
	x := df / (df + t*t)
	return regIncBeta(df/2, 0.5, x)
}

// regIncBeta is the regularized incomplete beta function I_x(a, b),
// evaluated with the Lentz continued fraction. Standard symmetry keeps
// the fraction in its fast-converging region.
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lbeta, _ := math.Lgamma(a + b)
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	front := math.Exp(lbeta - la - lb + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaCF(a, b, x) / a
	}
	return 1 - front*betaCF(b, a, 1-x)/b
}

func betaCF(a, b, x float64) float64 {
	const (
		maxIter = 200
		eps     = 1e-14
		tiny    = 1e-30
	)

	c := 1.0
	d := 1 - (a+b)*x/(a+1)
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)

		// Even step.
		num := fm * (b - fm) * x / ((a + 2*fm - 1) * (a + 2*fm))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		// Odd step.
		num = -(a + fm) * (a + b + fm) * x / ((a + 2*fm) * (a + 2*fm + 1))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		delta := d * c
		h *= delta

		if math.Abs(delta-1) < eps {
			break
		}
	}
	return h
}
