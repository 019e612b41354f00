// Package pipeline runs saliency shaping over the cross product of window
// sizes, metrics and exogenous features of each dataset, assembles the shaped
// tables and hands them to persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/data"
	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/saliency"
	"github.com/tunogya/saliency/pkg/shaping"
	"github.com/tunogya/saliency/pkg/store"
)

// Options configure a Runner
type Options struct {
	// Metrics run for every window, in order. An empty set persists the raw
	// table only.
	Metrics []saliency.Metric
	// Separate persists every (window, metric) dataset on its own. When false,
	// the raw table and all assembled datasets are stacked and persisted once
	// per dataset.
	Separate bool
	// SkipInverted drops the inverted-shaped variants
	SkipInverted bool

	Dispatcher Dispatcher // defaults to Sequential
	Observer   Observer   // defaults to NopObserver
	Logger     *zap.Logger
}

// Runner is the window orchestrator
type Runner struct {
	adapter    data.DatasetAdapter
	writer     store.Writer
	engine     *shaping.Engine
	dispatcher Dispatcher
	observer   Observer
	logger     *zap.Logger
	opts       Options
}

// NewRunner creates a runner reading from adapter and persisting to writer
func NewRunner(adapter data.DatasetAdapter, writer store.Writer, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = Sequential{}
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	return &Runner{
		adapter:    adapter,
		writer:     writer,
		engine:     shaping.NewEngine(opts.Logger),
		dispatcher: opts.Dispatcher,
		observer:   opts.Observer,
		logger:     opts.Logger,
		opts:       opts,
	}
}

// Run processes datasets in order. Batches failing with an alignment or
// metric computation error are skipped and reported; any other error stops
// the run.
func (r *Runner) Run(ctx context.Context, datasets []string) (*Report, error) {
	report := &Report{}
	for _, id := range datasets {
		if err := r.runDataset(ctx, id, report); err != nil {
			return report, fmt.Errorf("failed to process dataset %s: %w", id, err)
		}
	}
	return report, nil
}

func (r *Runner) runDataset(ctx context.Context, id string, report *Report) error {
	cfg, err := r.adapter.Config(id)
	if err != nil {
		return err
	}
	table, err := r.adapter.Load(ctx, id)
	if err != nil {
		return err
	}
	if !table.Has(cfg.Target) {
		return &model.AlignmentError{Column: cfg.Target, Reason: "target column not found"}
	}

	r.logger.Info("dataset loaded",
		zap.String("dataset", id),
		zap.Int("rows", table.Len()),
		zap.Int("windows", len(cfg.Windows)),
		zap.Int("metrics", len(r.opts.Metrics)),
	)

	if len(r.opts.Metrics) == 0 {
		raw := model.NewRawDataset(id, cfg.Target, table)
		return r.persist(ctx, &model.Artifact{Name: id, Parts: []*model.ProcessedDataset{raw}}, report)
	}

	var accumulated []*model.ProcessedDataset
	for _, w := range cfg.Windows {
		if w > table.Len() {
			r.logger.Warn("window exceeds table length, saliency is undefined everywhere",
				zap.String("dataset", id), zap.Int("window", w), zap.Int("rows", table.Len()))
		}
		units := BuildWorkUnits(table, w, cfg)

		for _, m := range r.opts.Metrics {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := BatchKey{Dataset: id, Window: w, Metric: string(m.Kind())}

			parts, err := r.runBatch(ctx, key, m, table, cfg.Target, units)
			r.observer.BatchFinished(key, err)
			if err != nil {
				if skippable(err) {
					feature := failedFeature(err)
					r.logger.Error("skipping batch",
						zap.String("dataset", key.Dataset),
						zap.Int("window", key.Window),
						zap.String("metric", key.Metric),
						zap.String("feature", feature),
						zap.Error(err),
					)
					report.Failures = append(report.Failures, Failure{Batch: key, Feature: feature, Err: err})
					continue
				}
				return err
			}

			if !r.opts.Separate {
				accumulated = append(accumulated, parts...)
				continue
			}
			for _, p := range parts {
				if err := r.persist(ctx, model.SingleArtifact(p), report); err != nil {
					return err
				}
			}
		}
	}

	if !r.opts.Separate && len(accumulated) > 0 {
		parts := append([]*model.ProcessedDataset{model.NewRawDataset(id, cfg.Target, table)}, accumulated...)
		return r.persist(ctx, &model.Artifact{Name: id, Parts: parts}, report)
	}
	return nil
}

// runBatch dispatches one (window, metric) batch and assembles its datasets
func (r *Runner) runBatch(ctx context.Context, key BatchKey, m saliency.Metric, table *model.TimeTable, target string, units []model.WorkUnit) ([]*model.ProcessedDataset, error) {
	r.observer.BatchStarted(key, len(units))

	results, err := r.dispatcher.Map(ctx, key, units, func(ctx context.Context, u model.WorkUnit) (model.SaliencyResult, error) {
		return r.engine.Process(ctx, m, u)
	}, r.observer)
	if err != nil {
		return nil, err
	}

	shaped, inverted, err := Assemble(table, target, results)
	if err != nil {
		return nil, err
	}

	parts := []*model.ProcessedDataset{
		model.NewProcessedDataset(key.Dataset, key.Window, key.Metric, false, shaped),
	}
	if !r.opts.SkipInverted {
		parts = append(parts, model.NewProcessedDataset(key.Dataset, key.Window, key.Metric, true, inverted))
	}
	return parts, nil
}

func (r *Runner) persist(ctx context.Context, a *model.Artifact, report *Report) error {
	w, err := r.writer.Write(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", a.Name, err)
	}
	report.Written = append(report.Written, w)
	r.observer.ArtifactWritten(w.Name, w.Rows)
	return nil
}

// BuildWorkUnits creates one unit per exogenous feature, excluding the
// target. When the configuration names no exogenous features every non-target
// column of the table is used.
func BuildWorkUnits(table *model.TimeTable, window int, cfg data.DatasetConfig) []model.WorkUnit {
	features := cfg.Exogenous
	if len(features) == 0 {
		features = table.Columns()
	}

	units := make([]model.WorkUnit, 0, len(features))
	for _, f := range features {
		if f == cfg.Target {
			continue
		}
		units = append(units, model.WorkUnit{
			Table:         table,
			Window:        window,
			TargetName:    cfg.Target,
			ExogenousName: f,
		})
	}
	return units
}

// Assemble builds the shaped and inverted-shaped tables from a batch of
// results. Columns are replaced by feature name, so the assembled layout is
// the raw layout regardless of result order. A feature without an inverted
// series gets an all-NaN inverted column.
func Assemble(table *model.TimeTable, target string, results []model.SaliencyResult) (shaped, inverted *model.TimeTable, err error) {
	shaped = table.Clone()
	inverted = table.Clone()

	for _, res := range results {
		if res.ExogenousName == target {
			continue
		}
		if res.Shaped == nil {
			return nil, nil, &model.ShapingError{Feature: res.ExogenousName, Reason: "no shaped series provided"}
		}
		if err := shaped.Set(res.ExogenousName, res.Shaped); err != nil {
			return nil, nil, &model.ShapingError{Feature: res.ExogenousName, Reason: err.Error()}
		}

		if res.HasInverted() {
			err = inverted.Set(res.ExogenousName, res.InvertedShaped)
		} else {
			err = inverted.SetMissing(res.ExogenousName)
		}
		if err != nil {
			return nil, nil, &model.ShapingError{Feature: res.ExogenousName, Reason: err.Error()}
		}
	}
	return shaped, inverted, nil
}

func skippable(err error) bool {
	return errors.Is(err, model.ErrAlignment) || errors.Is(err, model.ErrMetricComputation)
}

func failedFeature(err error) string {
	var mce *model.MetricComputationError
	if errors.As(err, &mce) {
		return mce.Feature
	}
	var ae *model.AlignmentError
	if errors.As(err, &ae) {
		return ae.Column
	}
	return ""
}
