package saliency

import (
	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/saliency/pkg/window"
)

// rollingCorrelation is the Pearson correlation of target and exogenous over a
// trailing window (min periods = window), clamped to [-1, 1]
type rollingCorrelation struct{}

func (rollingCorrelation) Kind() Kind { return RollingCorrelation }

func (rollingCorrelation) Traits() Traits { return Traits{Domain: Raw} }

func (rollingCorrelation) Saliency(in Input) ([]float64, error) {
	return window.Apply(in.Len(), in.Window, func(start, end int) float64 {
		return clamp(stat.Correlation(in.Target[start:end], in.Exogenous[start:end], nil), -1, 1)
	})
}

// clamp bounds v to [lo, hi]; NaN stays NaN
func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// rollingCovariance is the unbiased sample covariance over a trailing window
type rollingCovariance struct{}

func (rollingCovariance) Kind() Kind { return RollingCovariance }

func (rollingCovariance) Traits() Traits { return Traits{Domain: Raw} }

func (rollingCovariance) Saliency(in Input) ([]float64, error) {
	return window.Apply(in.Len(), in.Window, func(start, end int) float64 {
		return stat.Covariance(in.Target[start:end], in.Exogenous[start:end], nil)
	})
}
