package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/pipeline"
)

var _ pipeline.Observer = (*Collector)(nil)

func TestCollector(t *testing.T) {
	c := NewCollector()
	key := pipeline.BatchKey{Dataset: "ETTh1", Window: 501, Metric: "pdtw"}

	c.BatchStarted(key, 3)
	c.UnitDone(key, model.WorkUnit{ExogenousName: "HUFL"}, 20*time.Millisecond, nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inFlight))
	c.UnitDone(key, model.WorkUnit{ExogenousName: "HULL"}, 5*time.Millisecond, errors.New("nan"))
	c.BatchFinished(key, errors.New("nan"))
	c.ArtifactWritten("ETTh1_w501_pfarm", 17420)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.units.WithLabelValues("pdtw", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.units.WithLabelValues("pdtw", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues("pdtw", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.artifacts))
	assert.Equal(t, 17420.0, testutil.ToFloat64(c.rows))
	assert.Equal(t, 1, testutil.CollectAndCount(c.unitDuration))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ArtifactWritten("x", 10)

	path := filepath.Join(t.TempDir(), "saliency.prom")
	require.NoError(t, c.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "saliency_artifacts_written_total 1"))
	assert.True(t, strings.Contains(string(raw), "saliency_artifact_rows_total 10"))
}
