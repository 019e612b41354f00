package shaping

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/saliency"
)

func table(t *testing.T, cols map[string][]float64, order ...string) *model.TimeTable {
	t.Helper()
	tbl := model.NewTimeTable(len(cols[order[0]]))
	for _, name := range order {
		require.NoError(t, tbl.Set(name, cols[name]))
	}
	return tbl
}

func TestMinMax(t *testing.T) {
	nan := math.NaN()
	got := MinMax([]float64{nan, 2, 4, 3})
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{0, 1, 0.5}, got[1:])

	for _, v := range MinMax([]float64{nan, 5, 5, 5}) {
		assert.True(t, math.IsNaN(v), "constant saliency has no range")
	}
	for _, v := range MinMax([]float64{nan, nan}) {
		assert.True(t, math.IsNaN(v))
	}
}

func TestMinMax_RoundingNoiseIsConstant(t *testing.T) {
	for _, v := range MinMax([]float64{-1, -0.9999999999999999, -1, -1}) {
		assert.True(t, math.IsNaN(v), "a few ULPs of spread has no range")
	}
	for _, v := range MinMax([]float64{2, 2.0000000000000004, 2}) {
		assert.True(t, math.IsNaN(v))
	}
	for _, v := range MinMax([]float64{1e6, 1e6 + 1e-7}) {
		assert.True(t, math.IsNaN(v), "tolerance scales with magnitude")
	}

	got := MinMax([]float64{0, 1e-9})
	assert.Equal(t, []float64{0, 1}, got, "small but real ranges still rescale")
}

func TestNormalize_Bounds(t *testing.T) {
	s := []float64{math.NaN(), math.NaN(), -3, 0.5, 7, 2, -1}
	ratio, inverted := Normalize(s, false)

	require.Len(t, ratio, len(s))
	require.Len(t, inverted, len(s))
	assert.Equal(t, 1.0, ratio[0])
	assert.Equal(t, 1.0, ratio[1])
	assert.Equal(t, 1.0, inverted[0])
	assert.Equal(t, 1.0, inverted[1])

	for i := 2; i < len(s); i++ {
		assert.GreaterOrEqual(t, ratio[i], 0.0)
		assert.LessOrEqual(t, ratio[i], 1.0)
		assert.Equal(t, math.Abs(ratio[i]-1), inverted[i])
	}
	assert.Equal(t, 0.0, ratio[2])
	assert.Equal(t, 1.0, ratio[4])
}

func TestNormalize_Degenerate(t *testing.T) {
	ratio, inverted := Normalize([]float64{math.NaN(), -1, -1, -1}, false)
	assert.Equal(t, []float64{1, 1, 1, 1}, ratio)
	assert.Equal(t, []float64{1, 1, 1, 1}, inverted)
}

func TestNormalize_RatioValuedSkipsRescale(t *testing.T) {
	s := []float64{math.NaN(), 0.5, 1.5}
	ratio, inverted := Normalize(s, true)
	assert.Equal(t, []float64{1, 0.5, 1.5}, ratio)
	assert.Equal(t, []float64{1, 0.5, 0.5}, inverted)
	assert.True(t, math.IsNaN(s[0]), "input is not modified")
}

func TestShape(t *testing.T) {
	shaped, inv, err := Shape([]float64{2, 4}, []float64{0.5, 1}, []float64{0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, shaped)
	assert.Equal(t, []float64{1, 0}, inv)

	shaped, inv, err = Shape([]float64{2, 4}, []float64{1, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, shaped)
	assert.Nil(t, inv)

	_, _, err = Shape([]float64{2, 4}, []float64{1}, nil)
	assert.Error(t, err)
}

func TestEngine_AntiCorrelatedExample(t *testing.T) {
	T := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	E := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	tbl := table(t, map[string][]float64{"T": T, "E": E}, "T", "E")

	m, err := saliency.New(saliency.RollingCorrelation, saliency.DefaultOptions())
	require.NoError(t, err)

	engine := NewEngine(zaptest.NewLogger(t))
	res, err := engine.Process(context.Background(), m, model.WorkUnit{Table: tbl, Window: 3, TargetName: "T", ExogenousName: "E"})
	require.NoError(t, err)

	assert.Equal(t, "E", res.ExogenousName)
	assert.Equal(t, E, res.Shaped)
	assert.Equal(t, E, res.InvertedShaped)
}

func TestEngine_AntiCorrelatedNonInteger(t *testing.T) {
	const n = 200
	T := make([]float64, n)
	E := make([]float64, n)
	for i := range n {
		T[i] = 0.1 * float64(i+1)
		E[i] = 3.7 - 0.3*float64(i)
	}
	tbl := table(t, map[string][]float64{"T": T, "E": E}, "T", "E")

	m, err := saliency.New(saliency.RollingCorrelation, saliency.DefaultOptions())
	require.NoError(t, err)

	engine := NewEngine(zaptest.NewLogger(t))
	res, err := engine.Process(context.Background(), m, model.WorkUnit{Table: tbl, Window: 7, TargetName: "T", ExogenousName: "E"})
	require.NoError(t, err)

	assert.Equal(t, E, res.Shaped)
	assert.Equal(t, E, res.InvertedShaped)
}

func TestEngine_LeadingPositionsUnchanged(t *testing.T) {
	T := []float64{1, 3, 2, 5, 4, 6, 8, 7}
	E := []float64{2, 1, 4, 3, 6, 5, 7, 9}
	tbl := table(t, map[string][]float64{"T": T, "E": E}, "T", "E")
	engine := NewEngine(nil)

	for _, k := range saliency.Kinds() {
		m, err := saliency.New(k, saliency.DefaultOptions())
		require.NoError(t, err)

		res, err := engine.Process(context.Background(), m, model.WorkUnit{Table: tbl, Window: 4, TargetName: "T", ExogenousName: "E"})
		require.NoError(t, err, k)
		require.Len(t, res.Shaped, len(E), k)
		require.Len(t, res.InvertedShaped, len(E), k)
		for i := 0; i < 3; i++ {
			assert.Equal(t, E[i], res.Shaped[i], "%s position %d", k, i)
			assert.Equal(t, E[i], res.InvertedShaped[i], "%s position %d", k, i)
		}
	}

	cols, err := tbl.Column("E")
	require.NoError(t, err)
	assert.Equal(t, E, cols, "shared table is never modified")
}

func TestEngine_Idempotent(t *testing.T) {
	T := []float64{1, 3, 2, 5, 4, 6, 8, 7, 9, 12}
	E := []float64{2, 1, 4, 3, 6, 5, 7, 9, 8, 10}
	tbl := table(t, map[string][]float64{"T": T, "E": E}, "T", "E")
	engine := NewEngine(nil)
	unit := model.WorkUnit{Table: tbl, Window: 3, TargetName: "T", ExogenousName: "E"}

	for _, k := range []saliency.Kind{saliency.Noise, saliency.MutualInformation, saliency.ElasticDistance} {
		m, err := saliency.New(k, saliency.DefaultOptions())
		require.NoError(t, err)
		a, err := engine.Process(context.Background(), m, unit)
		require.NoError(t, err)
		b, err := engine.Process(context.Background(), m, unit)
		require.NoError(t, err)
		assert.Equal(t, a, b, k)
	}
}

func TestEngine_TargetIsNotShaped(t *testing.T) {
	tbl := table(t, map[string][]float64{"T": {1, 2, 3}}, "T")
	m, err := saliency.New(saliency.RollingCorrelation, saliency.DefaultOptions())
	require.NoError(t, err)

	res, err := NewEngine(nil).Process(context.Background(), m, model.WorkUnit{Table: tbl, Window: 2, TargetName: "T", ExogenousName: "T"})
	require.NoError(t, err)
	assert.Nil(t, res.Shaped)
	assert.False(t, res.HasInverted())
}

func TestEngine_Errors(t *testing.T) {
	tbl := table(t, map[string][]float64{"T": {1, 2, 3}, "E": {1, math.NaN(), 3}}, "T", "E")
	engine := NewEngine(nil)

	corr, err := saliency.New(saliency.RollingCorrelation, saliency.DefaultOptions())
	require.NoError(t, err)
	_, err = engine.Process(context.Background(), corr, model.WorkUnit{Table: tbl, Window: 2, TargetName: "T", ExogenousName: "missing"})
	assert.ErrorIs(t, err, model.ErrAlignment)

	dtw, err := saliency.New(saliency.ElasticDistance, saliency.DefaultOptions())
	require.NoError(t, err)
	_, err = engine.Process(context.Background(), dtw, model.WorkUnit{Table: tbl, Window: 2, TargetName: "T", ExogenousName: "E"})
	require.ErrorIs(t, err, model.ErrMetricComputation)
	var mce *model.MetricComputationError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "E", mce.Feature)
	assert.ErrorIs(t, err, saliency.ErrNonFinite)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.Process(ctx, corr, model.WorkUnit{Table: tbl, Window: 2, TargetName: "T", ExogenousName: "E"})
	assert.ErrorIs(t, err, context.Canceled)
}
