// Package align extracts equal-length target/exogenous sequences from a
// TimeTable and, for information-theoretic metrics, coalesces each sequence
// into a finite alphabet.
package align

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tunogya/saliency/pkg/model"
)

// ErrEmptyAlphabet is returned when a sequence has no values to coalesce
var ErrEmptyAlphabet = errors.New("align: cannot coalesce an empty sequence")

// Symbols is a sequence coalesced onto the alphabet 0..Base-1
type Symbols struct {
	States []int
	Base   int
}

// Align returns private copies of the target and exogenous columns, row order
// preserved. Callers may modify the returned slices.
func Align(t *model.TimeTable, target, exogenous string) ([]float64, []float64, error) {
	if t == nil {
		return nil, nil, &model.AlignmentError{Column: target, Reason: "nil table"}
	}

	tv, err := t.Column(target)
	if err != nil {
		return nil, nil, err
	}
	ev, err := t.Column(exogenous)
	if err != nil {
		return nil, nil, err
	}
	if len(tv) != len(ev) {
		return nil, nil, &model.AlignmentError{
			Column: exogenous,
			Reason: fmt.Sprintf("length %d does not match target length %d", len(ev), len(tv)),
		}
	}

	return clone(tv), clone(ev), nil
}

// Coalesce maps a numeric sequence onto as few contiguous states as possible.
// Distinct values get distinct states and the relative order of values is
// preserved; magnitudes are not. NaN, if present, gets the highest state.
func Coalesce(values []float64) (Symbols, error) {
	if len(values) == 0 {
		return Symbols{}, ErrEmptyAlphabet
	}

	distinct := make([]float64, 0, len(values))
	hasNaN := false
	for _, v := range values {
		if math.IsNaN(v) {
			hasNaN = true
			continue
		}
		distinct = append(distinct, v)
	}
	sort.Float64s(distinct)
	distinct = dedup(distinct)

	base := len(distinct)
	nanState := base
	if hasNaN {
		base++
	}

	states := make([]int, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			states[i] = nanState
			continue
		}
		states[i] = sort.SearchFloat64s(distinct, v)
	}

	return Symbols{States: states, Base: base}, nil
}

// dedup removes adjacent duplicates from a sorted slice in place
func dedup(sorted []float64) []float64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
