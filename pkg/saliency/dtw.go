package saliency

import (
	"errors"
	"math"

	"github.com/tunogya/saliency/pkg/window"
)

var (
	// ErrEmptySequence indicates one or both DTW inputs are empty.
	ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

	// ErrNonFinite indicates a NaN or infinite sample in a DTW input.
	ErrNonFinite = errors.New("dtw: input sequences must be finite")
)

// DTWOptions configures the elastic distance.
//
//   - Band: maximum deviation |i-j| allowed (Sakoe-Chiba band); 0 disables it.
//   - Pruning: discard cells whose accumulated cost already exceeds the
//     Euclidean upper bound. Only applies to equal-length inputs, where the
//     diagonal path guarantees the bound, so the distance is unchanged.
type DTWOptions struct {
	Band    int
	Pruning bool
}

// DTWDistance returns the dynamic time warping distance between a and b using
// squared point costs, reported as the square root of the optimal accumulated
// cost. Only two DP rows are kept, so memory is O(len(b)).
func DTWDistance(a, b []float64, opts DTWOptions) (float64, error) {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return 0, ErrEmptySequence
	}
	if !finite(a) || !finite(b) {
		return 0, ErrNonFinite
	}

	band := math.MaxInt32
	if opts.Band > 0 {
		band = max(opts.Band, abs(n-m))
	}

	inf := math.Inf(1)
	bound := inf
	if opts.Pruning && n == m {
		bound = 0
		for i := range a {
			d := a[i] - b[i]
			bound += d * d
		}
	}

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := 1; j <= m; j++ {
		prev[j] = inf
	}

	for i := 1; i <= n; i++ {
		curr[0] = inf
		for j := 1; j <= m; j++ {
			if abs(i-j) > band {
				curr[j] = inf
				continue
			}
			d := a[i-1] - b[j-1]
			v := d*d + min3(prev[j], curr[j-1], prev[j-1])
			if v > bound {
				v = inf
			}
			curr[j] = v
		}
		prev, curr = curr, prev
	}

	return math.Sqrt(prev[m]), nil
}

// elasticDistance is the DTW distance between the raw target and exogenous
// values of each trailing window
type elasticDistance struct {
	opts DTWOptions
}

func (*elasticDistance) Kind() Kind { return ElasticDistance }

func (*elasticDistance) Traits() Traits { return Traits{Domain: Raw} }

func (m *elasticDistance) Saliency(in Input) ([]float64, error) {
	return window.ApplyErr(in.Len(), in.Window, func(start, end int) (float64, error) {
		return DTWDistance(in.Target[start:end], in.Exogenous[start:end], m.opts)
	})
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// abs returns the absolute value of an int.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
