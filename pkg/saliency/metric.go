// Package saliency implements the family of windowed metrics that measure how
// strongly an exogenous series relates to a target series.
//
// Every metric maps a target and an exogenous sequence plus a window size to a
// saliency sequence of the same length whose first window-1 entries are NaN
// (no full trailing window available yet). Metrics are stateless and safe for
// concurrent use; the noise baseline re-seeds its generator on every call.
package saliency

import (
	"fmt"

	"github.com/tunogya/saliency/pkg/align"
)

// Kind names a metric. The string values appear in artifact identifiers and
// must stay stable.
type Kind string

const (
	FARM               Kind = "pfarm"
	RollingCorrelation Kind = "prollcorr"
	RollingCovariance  Kind = "prollcov"
	RelativeEntropy    Kind = "pentropy"
	MutualInformation  Kind = "pmutual_info"
	ElasticDistance    Kind = "pdtw"
	Noise              Kind = "pnoise"
	NoiseSkew10        Kind = "pnoiseskew10"
)

// Kinds returns every known metric kind in canonical order
func Kinds() []Kind {
	return []Kind{
		FARM,
		RollingCorrelation,
		RollingCovariance,
		RelativeEntropy,
		MutualInformation,
		ElasticDistance,
		Noise,
		NoiseSkew10,
	}
}

// DefaultKinds is the metric set run when none is configured explicitly.
// The elastic distance is left out because it dominates wall-clock time.
func DefaultKinds() []Kind {
	return []Kind{FARM, RollingCorrelation, RollingCovariance, RelativeEntropy, MutualInformation}
}

// ParseKind validates a metric name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// Domain is the representation a metric consumes
type Domain int

const (
	// Raw metrics read the numeric values as they are
	Raw Domain = iota
	// Discrete metrics read coalesced symbol sequences
	Discrete
)

// Traits describe how a metric's output is post-processed
type Traits struct {
	Domain Domain
	// RatioValued metrics already produce a shaping ratio and skip min-max rescaling
	RatioValued bool
	// NoInverted metrics opt out of the inverted-shaped variant
	NoInverted bool
}

// Input carries the aligned sequences for one work unit. Symbol fields are
// populated only for Discrete metrics.
type Input struct {
	Target           []float64
	Exogenous        []float64
	TargetSymbols    align.Symbols
	ExogenousSymbols align.Symbols
	Window           int
}

// Len returns the sequence length
func (in Input) Len() int {
	return len(in.Target)
}

// Metric computes a saliency sequence for one aligned pair
type Metric interface {
	Kind() Kind
	Traits() Traits
	Saliency(in Input) ([]float64, error)
}

// Options tune metrics that take parameters
type Options struct {
	// Seed drives the noise baseline generator
	Seed uint64
	// Fuzziness is the FARM membership constant
	Fuzziness float64
	// DTWBand is the Sakoe-Chiba band for the elastic distance; 0 disables it
	DTWBand int
	// DTWPruning enables upper-bound pruning in the elastic distance
	DTWPruning bool
}

// DefaultOptions returns the options used by the reference runs
func DefaultOptions() Options {
	return Options{
		Seed:       42,
		Fuzziness:  1,
		DTWPruning: true,
	}
}

// New creates the metric for a kind
func New(kind Kind, opts Options) (Metric, error) {
	switch kind {
	case FARM:
		if opts.Fuzziness <= 0 {
			return nil, fmt.Errorf("farm fuzziness must be positive, got %v", opts.Fuzziness)
		}
		return &farm{fuzziness: opts.Fuzziness}, nil
	case RollingCorrelation:
		return rollingCorrelation{}, nil
	case RollingCovariance:
		return rollingCovariance{}, nil
	case RelativeEntropy:
		return relativeEntropy{}, nil
	case MutualInformation:
		return mutualInformation{}, nil
	case ElasticDistance:
		if opts.DTWBand < 0 {
			return nil, fmt.Errorf("dtw band must be >= 0, got %d", opts.DTWBand)
		}
		return &elasticDistance{opts: DTWOptions{Band: opts.DTWBand, Pruning: opts.DTWPruning}}, nil
	case Noise:
		return &noise{kind: Noise, seed: opts.Seed, skew: 0}, nil
	case NoiseSkew10:
		return &noise{kind: NoiseSkew10, seed: opts.Seed, skew: 10}, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", kind)
	}
}

// NewSet creates metrics for every kind, preserving order
func NewSet(kinds []Kind, opts Options) ([]Metric, error) {
	metrics := make([]Metric, 0, len(kinds))
	for _, k := range kinds {
		m, err := New(k, opts)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}
