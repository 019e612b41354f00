package saliency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/saliency/pkg/align"
)

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func mustMetric(t *testing.T, k Kind) Metric {
	t.Helper()
	m, err := New(k, DefaultOptions())
	require.NoError(t, err)
	return m
}

func discreteInput(t *testing.T, target, exog []float64, w int) Input {
	t.Helper()
	ts, err := align.Coalesce(target)
	require.NoError(t, err)
	es, err := align.Coalesce(exog)
	require.NoError(t, err)
	return Input{Target: target, Exogenous: exog, TargetSymbols: ts, ExogenousSymbols: es, Window: w}
}

func assertLeadingUndefined(t *testing.T, s []float64, w int) {
	t.Helper()
	for i := 0; i < w-1 && i < len(s); i++ {
		assert.True(t, math.IsNaN(s[i]), "position %d precedes the first full window", i)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("pmagic")
	assert.Error(t, err)
}

func TestNew_RejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Fuzziness = 0
	_, err := New(FARM, opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.DTWBand = -1
	_, err = New(ElasticDistance, opts)
	assert.Error(t, err)

	_, err = New(Kind("nope"), DefaultOptions())
	assert.Error(t, err)
}

func TestNewSet_PreservesOrder(t *testing.T) {
	set, err := NewSet(DefaultKinds(), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, set, len(DefaultKinds()))
	for i, k := range DefaultKinds() {
		assert.Equal(t, k, set[i].Kind())
	}
}

func TestRollingCorrelation_PerfectAntiCorrelation(t *testing.T) {
	m := mustMetric(t, RollingCorrelation)
	in := Input{Target: ramp(10, 1, 1), Exogenous: ramp(10, 10, -1), Window: 3}

	s, err := m.Saliency(in)
	require.NoError(t, err)
	require.Len(t, s, 10)
	assertLeadingUndefined(t, s, 3)
	for i := 2; i < 10; i++ {
		assert.InDelta(t, -1.0, s[i], 1e-12, "position %d", i)
	}
}

func TestRollingCorrelation_StaysInRange(t *testing.T) {
	m := mustMetric(t, RollingCorrelation)
	const n = 200
	target := make([]float64, n)
	exog := make([]float64, n)
	for i := range n {
		target[i] = 0.1 * float64(i+1)
		exog[i] = 3.7 - 0.3*float64(i)
	}

	s, err := m.Saliency(Input{Target: target, Exogenous: exog, Window: 7})
	require.NoError(t, err)
	assertLeadingUndefined(t, s, 7)
	for i := 6; i < n; i++ {
		assert.GreaterOrEqual(t, s[i], -1.0, "position %d", i)
		assert.LessOrEqual(t, s[i], 1.0, "position %d", i)
		assert.InDelta(t, -1.0, s[i], 1e-12, "position %d", i)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -1.0, clamp(-1.0000000000000002, -1, 1))
	assert.Equal(t, 1.0, clamp(1.0000000000000002, -1, 1))
	assert.Equal(t, 0.5, clamp(0.5, -1, 1))
	assert.True(t, math.IsNaN(clamp(math.NaN(), -1, 1)))
}

func TestRollingCorrelation_WindowLongerThanSeries(t *testing.T) {
	m := mustMetric(t, RollingCorrelation)
	s, err := m.Saliency(Input{Target: ramp(4, 0, 1), Exogenous: ramp(4, 0, 2), Window: 5})
	require.NoError(t, err)
	require.Len(t, s, 4)
	for _, v := range s {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRollingCovariance(t *testing.T) {
	m := mustMetric(t, RollingCovariance)
	s, err := m.Saliency(Input{Target: []float64{1, 2, 3, 4}, Exogenous: []float64{2, 4, 6, 8}, Window: 2})
	require.NoError(t, err)
	assertLeadingUndefined(t, s, 2)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, s[1:], 1e-12)
}

func TestRelativeEntropy(t *testing.T) {
	m := mustMetric(t, RelativeEntropy)
	assert.Equal(t, Discrete, m.Traits().Domain)

	in := discreteInput(t, []float64{1, 2, 1, 2, 1}, []float64{5, 6, 5, 6, 5}, 2)
	s, err := m.Saliency(in)
	require.NoError(t, err)
	assertLeadingUndefined(t, s, 2)
	for i := 1; i < len(s); i++ {
		assert.InDelta(t, 0.0, s[i], 1e-12, "identical distributions diverge by zero")
	}

	// exogenous never visits state 1, so the divergence is undefined
	in = Input{
		Target:           []float64{0, 1, 0, 1},
		Exogenous:        []float64{3, 3, 3, 3},
		TargetSymbols:    align.Symbols{States: []int{0, 1, 0, 1}, Base: 2},
		ExogenousSymbols: align.Symbols{States: []int{0, 0, 0, 0}, Base: 1},
		Window:           2,
	}
	s, err = m.Saliency(in)
	require.NoError(t, err)
	for _, v := range s {
		assert.True(t, math.IsNaN(v))
	}
}

func TestRelativeEntropy_RequiresSymbols(t *testing.T) {
	m := mustMetric(t, RelativeEntropy)
	_, err := m.Saliency(Input{Target: []float64{1, 2}, Exogenous: []float64{1, 2}, Window: 1})
	assert.Error(t, err)
}

func TestMutualInformation(t *testing.T) {
	m := mustMetric(t, MutualInformation)

	in := discreteInput(t, []float64{0, 1, 0, 1}, []float64{7, 9, 7, 9}, 4)
	s, err := m.Saliency(in)
	require.NoError(t, err)
	assertLeadingUndefined(t, s, 4)
	assert.InDelta(t, 1.0, s[3], 1e-12, "a copy carries one full bit")

	in = discreteInput(t, []float64{0, 0, 1, 1}, []float64{0, 1, 0, 1}, 4)
	s, err = m.Saliency(in)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s[3], 1e-12, "independent windows share nothing")
}

func TestDTWDistance(t *testing.T) {
	d, err := DTWDistance([]float64{0, 1, 2}, []float64{0, 1, 2}, DTWOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)

	d, err = DTWDistance([]float64{1, 2, 3}, []float64{1, 2, 2, 3}, DTWOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d, "a repeated sample warps for free")

	d, err = DTWDistance([]float64{0, 0}, []float64{1, 1}, DTWOptions{Pruning: true})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)

	_, err = DTWDistance(nil, []float64{1}, DTWOptions{})
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = DTWDistance([]float64{math.NaN()}, []float64{1}, DTWOptions{})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestDTWDistance_PruningKeepsDistance(t *testing.T) {
	a := SkewNormal(64, 0, 0, 1, 7)
	b := SkewNormal(64, 3, 0, 1, 8)

	plain, err := DTWDistance(a, b, DTWOptions{})
	require.NoError(t, err)
	pruned, err := DTWDistance(a, b, DTWOptions{Pruning: true})
	require.NoError(t, err)
	assert.Equal(t, plain, pruned)

	banded, err := DTWDistance(a, b, DTWOptions{Band: 4})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, banded, plain, "a band can only restrict the warping")
}

func TestElasticDistance_Saliency(t *testing.T) {
	m := mustMetric(t, ElasticDistance)
	s, err := m.Saliency(Input{Target: ramp(6, 0, 1), Exogenous: ramp(6, 0, 1), Window: 3})
	require.NoError(t, err)
	require.Len(t, s, 6)
	assertLeadingUndefined(t, s, 3)
	for i := 2; i < 6; i++ {
		assert.Equal(t, 0.0, s[i])
	}

	_, err = m.Saliency(Input{Target: []float64{1, math.NaN()}, Exogenous: []float64{1, 2}, Window: 2})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestFARM_IdenticalShapes(t *testing.T) {
	m := mustMetric(t, FARM)
	assert.True(t, m.Traits().RatioValued)

	s, err := m.Saliency(Input{Target: ramp(8, 1, 1), Exogenous: ramp(8, 100, 3), Window: 3})
	require.NoError(t, err)
	require.Len(t, s, 8)
	assertLeadingUndefined(t, s, 3)
	for i := 2; i < 8; i++ {
		assert.InDelta(t, 1.0, s[i], 1e-12, "same shape at every scale is fully relevant")
	}

	_, err = m.Saliency(Input{Window: 2})
	assert.Error(t, err)
}

func TestFARM_OppositeShapesScoreLower(t *testing.T) {
	m := mustMetric(t, FARM)
	target := []float64{1, 2, 3, 4, 5, 6, 5, 4, 3, 2}
	exog := []float64{1, 2, 3, 4, 5, 4, 5, 6, 7, 8}

	s, err := m.Saliency(Input{Target: target, Exogenous: exog, Window: 4})
	require.NoError(t, err)
	assert.Greater(t, s[3], s[9], "agreeing window beats the diverging one")
}

func TestNoise_Deterministic(t *testing.T) {
	m := mustMetric(t, Noise)
	in := Input{Target: make([]float64, 50), Exogenous: make([]float64, 50), Window: 5}

	a, err := m.Saliency(in)
	require.NoError(t, err)
	b, err := m.Saliency(in)
	require.NoError(t, err)
	require.Len(t, a, 50)
	assertLeadingUndefined(t, a, 5)
	assert.Equal(t, a[4:], b[4:], "same seed yields the same sequence")

	opts := DefaultOptions()
	opts.Seed = 43
	other, err := New(Noise, opts)
	require.NoError(t, err)
	c, err := other.Saliency(in)
	require.NoError(t, err)
	assert.NotEqual(t, a[4:], c[4:])
}

func TestSkewNormal_Moments(t *testing.T) {
	samples := SkewNormal(20000, 10, 0, 1, 42)
	var sum float64
	for _, v := range samples {
		sum += v
	}
	delta := 10 / math.Sqrt(101)
	assert.InDelta(t, delta*math.Sqrt(2/math.Pi), sum/float64(len(samples)), 0.03)

	symmetric := SkewNormal(20000, 0, 0, 1, 42)
	sum = 0
	for _, v := range symmetric {
		sum += v
	}
	assert.InDelta(t, 0.0, sum/float64(len(symmetric)), 0.05)
}

func TestNoiseSkew10_IsSkewed(t *testing.T) {
	in := Input{Target: ramp(400, 0, 1), Exogenous: ramp(400, 0, 1), Window: 50}

	mean := func(k Kind) float64 {
		s, err := mustMetric(t, k).Saliency(in)
		require.NoError(t, err)
		var sum float64
		for _, v := range s[49:] {
			sum += v
		}
		return sum / float64(len(s)-49)
	}

	symmetric, skewed := mean(Noise), mean(NoiseSkew10)
	assert.InDelta(t, 0.0, symmetric, 0.3)
	assert.InDelta(t, 10/math.Sqrt(101)*math.Sqrt(2/math.Pi), skewed, 0.2)
	assert.Greater(t, skewed, symmetric)
}
