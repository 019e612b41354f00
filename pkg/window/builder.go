package window

import (
	"errors"
	"math"
)

// ErrBadWindow is returned for non-positive window sizes
var ErrBadWindow = errors.New("window: size must be positive")

// Undefined returns a sequence of n NaN values
func Undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Apply evaluates fn on every full trailing window [end-w+1, end] of a
// sequence of length n and returns a sequence of length n whose first w-1
// entries are NaN. fn receives the half-open bounds [start, end).
func Apply(n, w int, fn func(start, end int) float64) ([]float64, error) {
	if w <= 0 {
		return nil, ErrBadWindow
	}

	out := Undefined(n)
	for end := w; end <= n; end++ {
		out[end-1] = fn(end-w, end)
	}
	return out, nil
}

// ApplyErr is Apply for window functions that can fail. The first error stops
// the scan.
func ApplyErr(n, w int, fn func(start, end int) (float64, error)) ([]float64, error) {
	if w <= 0 {
		return nil, ErrBadWindow
	}

	out := Undefined(n)
	for end := w; end <= n; end++ {
		v, err := fn(end-w, end)
		if err != nil {
			return nil, err
		}
		out[end-1] = v
	}
	return out, nil
}

// RollingMean returns the trailing mean over w samples, NaN until the first
// full window (min periods = w)
func RollingMean(values []float64, w int) ([]float64, error) {
	if w <= 0 {
		return nil, ErrBadWindow
	}

	buf := NewRingBuffer(w)
	out := make([]float64, len(values))
	for i, v := range values {
		buf.Push(v)
		out[i] = buf.Mean()
	}
	return out, nil
}
