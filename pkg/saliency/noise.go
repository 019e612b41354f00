package saliency

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tunogya/saliency/pkg/window"
)

// noise is a control metric: the rolling mean of a seeded skew-normal sample
// sequence, independent of the series content. One sample is drawn per table
// row. The generator is re-seeded on every call, so every feature of a batch
// sees the same sequence and reruns are bit-identical.
type noise struct {
	kind Kind
	seed uint64
	skew float64
}

func (m *noise) Kind() Kind { return m.kind }

func (*noise) Traits() Traits { return Traits{Domain: Raw} }

func (m *noise) Saliency(in Input) ([]float64, error) {
	samples := SkewNormal(in.Len(), m.skew, 0, 1, m.seed)
	return window.RollingMean(samples, in.Window)
}

// SkewNormal draws n samples from a skew-normal distribution with shape alpha,
// location loc and scale, using a generator seeded with seed.
//
// With delta = alpha / sqrt(1 + alpha^2) and u0, v standard normal draws,
// u1 = delta*u0 + sqrt(1-delta^2)*v, and the sample is u1 when u0 >= 0 and -u1
// otherwise.
func SkewNormal(n int, alpha, loc, scale float64, seed uint64) []float64 {
	std := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}

	delta := alpha / math.Sqrt(1+alpha*alpha)
	spread := math.Sqrt(1 - delta*delta)

	out := make([]float64, n)
	for i := range out {
		u0 := std.Rand()
		v := std.Rand()
		u1 := delta*u0 + spread*v
		if u0 < 0 {
			u1 = -u1
		}
		out[i] = loc + scale*u1
	}
	return out
}
