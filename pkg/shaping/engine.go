// Package shaping turns a saliency sequence into shaped and inverted-shaped
// versions of an exogenous series.
package shaping

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/align"
	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/saliency"
)

// Shape multiplies the exogenous series elementwise by the ratio and by the
// inverted ratio. A nil inverted ratio yields a nil inverted-shaped series.
func Shape(exogenous, ratio, inverted []float64) (shaped, invertedShaped []float64, err error) {
	if len(ratio) != len(exogenous) {
		return nil, nil, fmt.Errorf("ratio length %d does not match series length %d", len(ratio), len(exogenous))
	}
	if inverted != nil && len(inverted) != len(exogenous) {
		return nil, nil, fmt.Errorf("inverted ratio length %d does not match series length %d", len(inverted), len(exogenous))
	}

	shaped = make([]float64, len(exogenous))
	for i, v := range exogenous {
		shaped[i] = v * ratio[i]
	}
	if inverted == nil {
		return shaped, nil, nil
	}

	invertedShaped = make([]float64, len(exogenous))
	for i, v := range exogenous {
		invertedShaped[i] = v * inverted[i]
	}
	return shaped, invertedShaped, nil
}

// Engine runs one work unit through a metric: align, compute saliency,
// normalize, shape
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a shaping engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Process computes the shaped series for one work unit. The target feature
// itself is never shaped: its result carries no series. The unit's table is
// only read.
func (e *Engine) Process(ctx context.Context, m saliency.Metric, unit model.WorkUnit) (model.SaliencyResult, error) {
	result := model.SaliencyResult{ExogenousName: unit.ExogenousName}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if unit.IsTarget() {
		return result, nil
	}
	if unit.Window <= 0 {
		return result, &model.MetricComputationError{
			Metric:  string(m.Kind()),
			Feature: unit.ExogenousName,
			Err:     fmt.Errorf("window must be positive, got %d", unit.Window),
		}
	}

	in, err := e.input(m, unit)
	if err != nil {
		return result, err
	}

	s, err := m.Saliency(in)
	if err != nil {
		return result, &model.MetricComputationError{Metric: string(m.Kind()), Feature: unit.ExogenousName, Err: err}
	}
	if len(s) != in.Len() {
		return result, &model.MetricComputationError{
			Metric:  string(m.Kind()),
			Feature: unit.ExogenousName,
			Err:     fmt.Errorf("saliency length %d does not match series length %d", len(s), in.Len()),
		}
	}

	traits := m.Traits()
	ratio, inverted := Normalize(s, traits.RatioValued)
	if traits.NoInverted {
		inverted = nil
	}

	shaped, invertedShaped, err := Shape(in.Exogenous, ratio, inverted)
	if err != nil {
		return result, &model.ShapingError{Feature: unit.ExogenousName, Reason: err.Error()}
	}

	e.logger.Debug("shaped feature",
		zap.String("metric", string(m.Kind())),
		zap.String("feature", unit.ExogenousName),
		zap.Int("window", unit.Window),
	)

	result.Shaped = shaped
	result.InvertedShaped = invertedShaped
	return result, nil
}

// input aligns the unit's columns in the representation the metric consumes
func (e *Engine) input(m saliency.Metric, unit model.WorkUnit) (saliency.Input, error) {
	target, exog, err := align.Align(unit.Table, unit.TargetName, unit.ExogenousName)
	if err != nil {
		return saliency.Input{}, err
	}
	in := saliency.Input{Target: target, Exogenous: exog, Window: unit.Window}

	if m.Traits().Domain != saliency.Discrete {
		return in, nil
	}

	in.TargetSymbols, err = align.Coalesce(target)
	if err != nil {
		return in, &model.MetricComputationError{Metric: string(m.Kind()), Feature: unit.TargetName, Err: err}
	}
	in.ExogenousSymbols, err = align.Coalesce(exog)
	if err != nil {
		return in, &model.MetricComputationError{Metric: string(m.Kind()), Feature: unit.ExogenousName, Err: err}
	}
	return in, nil
}
