package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/tunogya/saliency/pkg/model"
)

// BatchKey identifies one (dataset, window, metric) batch
type BatchKey struct {
	Dataset string
	Window  int
	Metric  string
}

// Observer receives progress events. Dispatchers call UnitDone from worker
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	BatchStarted(key BatchKey, units int)
	UnitDone(key BatchKey, unit model.WorkUnit, elapsed time.Duration, err error)
	BatchFinished(key BatchKey, err error)
	ArtifactWritten(name string, rows int)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) BatchStarted(BatchKey, int)                              {}
func (NopObserver) UnitDone(BatchKey, model.WorkUnit, time.Duration, error) {}
func (NopObserver) BatchFinished(BatchKey, error)                           {}
func (NopObserver) ArtifactWritten(string, int)                             {}

// LogObserver reports progress through a zap logger
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a logging observer
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) BatchStarted(key BatchKey, units int) {
	o.logger.Info("batch started", batchFields(key, zap.Int("units", units))...)
}

func (o *LogObserver) UnitDone(key BatchKey, unit model.WorkUnit, elapsed time.Duration, err error) {
	fields := batchFields(key, zap.String("feature", unit.ExogenousName), zap.Duration("elapsed", elapsed))
	if err != nil {
		o.logger.Warn("unit failed", append(fields, zap.Error(err))...)
		return
	}
	o.logger.Debug("unit done", fields...)
}

func (o *LogObserver) BatchFinished(key BatchKey, err error) {
	if err != nil {
		o.logger.Error("batch failed", batchFields(key, zap.Error(err))...)
		return
	}
	o.logger.Info("batch finished", batchFields(key)...)
}

func (o *LogObserver) ArtifactWritten(name string, rows int) {
	o.logger.Info("artifact written", zap.String("name", name), zap.Int("rows", rows))
}

func batchFields(key BatchKey, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("dataset", key.Dataset),
		zap.Int("window", key.Window),
		zap.String("metric", key.Metric),
	}
	return append(fields, extra...)
}

// Observers fans events out to several observers in order
type Observers []Observer

func (obs Observers) BatchStarted(key BatchKey, units int) {
	for _, o := range obs {
		o.BatchStarted(key, units)
	}
}

func (obs Observers) UnitDone(key BatchKey, unit model.WorkUnit, elapsed time.Duration, err error) {
	for _, o := range obs {
		o.UnitDone(key, unit, elapsed, err)
	}
}

func (obs Observers) BatchFinished(key BatchKey, err error) {
	for _, o := range obs {
		o.BatchFinished(key, err)
	}
}

func (obs Observers) ArtifactWritten(name string, rows int) {
	for _, o := range obs {
		o.ArtifactWritten(name, rows)
	}
}
