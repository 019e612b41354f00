package saliency

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/saliency/pkg/window"
)

var errEmptySeries = errors.New("farm: series must be non-empty")

// farm is the relative local fuzziness between target and exogenous series.
//
// Both sequences are z-normalised inside a window and compared point by point
// with the fuzzy membership 1 / (1 + (d/c)^2), where d is the distance of the
// normalised values and c the fuzziness constant. The local fuzziness of a
// window is its mean membership; the saliency is local fuzziness divided by the
// fuzziness of the whole series. Values are ratio-like (around 1, not bounded
// by 1) and are not rescaled.
type farm struct {
	fuzziness float64
}

func (*farm) Kind() Kind { return FARM }

func (*farm) Traits() Traits { return Traits{Domain: Raw, RatioValued: true} }

func (f *farm) Saliency(in Input) ([]float64, error) {
	if in.Len() == 0 {
		return nil, errEmptySeries
	}

	global := f.fuzz(in.Target, in.Exogenous)
	return window.Apply(in.Len(), in.Window, func(start, end int) float64 {
		local := f.fuzz(in.Target[start:end], in.Exogenous[start:end])
		return local / global
	})
}

// fuzz returns the mean fuzzy membership of two equal-length sequences
func (f *farm) fuzz(a, b []float64) float64 {
	za := zscore(a)
	zb := zscore(b)

	var sum float64
	for i := range za {
		d := (za[i] - zb[i]) / f.fuzziness
		sum += 1 / (1 + d*d)
	}
	return sum / float64(len(za))
}

// zscore standardises values; a constant sequence maps to all zeros
func zscore(values []float64) []float64 {
	mean, std := stat.PopMeanStdDev(values, nil)
	out := make([]float64, len(values))
	if std == 0 || math.IsNaN(std) {
		for i, v := range values {
			if math.IsNaN(v) {
				out[i] = math.NaN()
			}
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}
