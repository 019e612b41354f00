package saliency

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tunogya/saliency/pkg/window"
)

var errNoSymbols = errors.New("discrete metric received no coalesced symbols")

// relativeEntropy is the Kullback-Leibler divergence (bits) between the
// window distribution of the target and that of the exogenous series. Windows
// where the exogenous series never visits a state the target visits have an
// undefined divergence.
type relativeEntropy struct{}

func (relativeEntropy) Kind() Kind { return RelativeEntropy }

func (relativeEntropy) Traits() Traits { return Traits{Domain: Discrete} }

func (relativeEntropy) Saliency(in Input) ([]float64, error) {
	ts, es := in.TargetSymbols, in.ExogenousSymbols
	if err := checkSymbols(in); err != nil {
		return nil, err
	}

	base := max(ts.Base, es.Base)
	p := make([]float64, base)
	q := make([]float64, base)

	return window.Apply(in.Len(), in.Window, func(start, end int) float64 {
		distribution(p, ts.States[start:end])
		distribution(q, es.States[start:end])
		return bits(stat.KullbackLeibler(p, q))
	})
}

// mutualInformation is I(T;E) in bits over each trailing window, computed as
// H(T) + H(E) - H(T,E) from the window's empirical distributions
type mutualInformation struct{}

func (mutualInformation) Kind() Kind { return MutualInformation }

func (mutualInformation) Traits() Traits { return Traits{Domain: Discrete} }

func (mutualInformation) Saliency(in Input) ([]float64, error) {
	ts, es := in.TargetSymbols, in.ExogenousSymbols
	if err := checkSymbols(in); err != nil {
		return nil, err
	}

	return window.Apply(in.Len(), in.Window, func(start, end int) float64 {
		t := ts.States[start:end]
		e := es.States[start:end]

		joint := make(map[[2]int]int, len(t))
		mt := make(map[int]int)
		me := make(map[int]int)
		for i := range t {
			joint[[2]int{t[i], e[i]}]++
			mt[t[i]]++
			me[e[i]]++
		}

		n := float64(len(t))
		mi := entropyOf(mt, n) + entropyOf(me, n) - entropyOf(joint, n)
		// rounding can push independent windows marginally below zero
		if mi < 0 && mi > -1e-12 {
			mi = 0
		}
		return bits(mi)
	})
}

func checkSymbols(in Input) error {
	if len(in.TargetSymbols.States) != in.Len() || len(in.ExogenousSymbols.States) != in.Len() {
		return errNoSymbols
	}
	if in.Len() > 0 && (in.TargetSymbols.Base == 0 || in.ExogenousSymbols.Base == 0) {
		return errNoSymbols
	}
	return nil
}

// distribution fills p with the empirical distribution of states
func distribution(p []float64, states []int) {
	for i := range p {
		p[i] = 0
	}
	if len(states) == 0 {
		return
	}
	for _, s := range states {
		p[s]++
	}
	n := float64(len(states))
	for i := range p {
		p[i] /= n
	}
}

// entropyOf returns the Shannon entropy (nats) of a count table. Probabilities
// are summed in sorted order so the result does not depend on map iteration.
func entropyOf[K comparable](counts map[K]int, n float64) float64 {
	p := make([]float64, 0, len(counts))
	for _, c := range counts {
		p = append(p, float64(c)/n)
	}
	sort.Float64s(p)
	return stat.Entropy(p)
}

// bits converts nats to bits; non-finite values are undefined
func bits(nats float64) float64 {
	if math.IsInf(nats, 0) || math.IsNaN(nats) {
		return math.NaN()
	}
	return nats / math.Ln2
}
