package shaping

import "math"

// FillValue replaces every undefined ratio entry. A ratio of 1 leaves the
// exogenous value unchanged.
const FillValue = 1.0

// degenerateSpan is the relative range below which a sequence counts as
// constant. Window statistics of an exact relationship differ only by
// rounding, a few ULPs apart.
const degenerateSpan = 1e-12

// MinMax rescales values onto [0, 1] using the minimum and maximum of the
// defined (non-NaN) entries. NaN entries stay NaN. When the range is
// degenerate (constant up to rounding, or no defined entries) every entry
// becomes NaN.
func MinMax(values []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]float64, len(values))
	span := hi - lo
	if degenerate(lo, hi) {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

func degenerate(lo, hi float64) bool {
	span := hi - lo
	if math.IsInf(span, 0) || math.IsNaN(span) {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
	return span <= degenerateSpan*scale
}

// Invert returns |ratio - 1| elementwise. NaN stays NaN.
func Invert(ratio []float64) []float64 {
	out := make([]float64, len(ratio))
	for i, r := range ratio {
		out[i] = math.Abs(r - 1)
	}
	return out
}

// Fill replaces NaN and infinite entries with FillValue in place
func Fill(values []float64) []float64 {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = FillValue
		}
	}
	return values
}

// Normalize turns a saliency sequence into a shaping ratio and its inverted
// complement, both fill-policed. Ratio-valued saliency skips the min-max
// rescale.
func Normalize(saliency []float64, ratioValued bool) (ratio, inverted []float64) {
	if ratioValued {
		ratio = make([]float64, len(saliency))
		copy(ratio, saliency)
	} else {
		ratio = MinMax(saliency)
	}

	inverted = Invert(ratio)
	return Fill(ratio), Fill(inverted)
}
