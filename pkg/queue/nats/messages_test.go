package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tunogya/saliency/pkg/model"
	"github.com/tunogya/saliency/pkg/store"
)

type published struct {
	subject string
	data    []byte
	msgID   string
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, msgID string) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data, msgID: msgID})
	return nil
}

func TestAnnouncer(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub)
	_, err := uuid.Parse(a.RunID())
	require.NoError(t, err)

	w := store.Written{
		Name:      "ETTh1_w501_pfarm",
		Dataset:   "ETTh1",
		Parts:     []string{"ETTh1_w501_pfarm"},
		Format:    store.FormatParquet,
		Path:      "processed_data/ETTh1_w501_pfarm.parquet",
		Rows:      17420,
		WrittenAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.Announce(context.Background(), w))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, SubjectArtifactWritten, pub.msgs[0].subject)
	assert.Equal(t, a.RunID()+"/ETTh1_w501_pfarm", pub.msgs[0].msgID)

	msg, err := DecodeArtifactWritten(pub.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, a.RunID(), msg.RunID)
	assert.Equal(t, w, msg.Artifact)
}

func TestDecodeArtifactWritten_Rejects(t *testing.T) {
	_, err := DecodeArtifactWritten([]byte("{"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPoison)
	_, err = DecodeArtifactWritten([]byte(`{"run_id":"x","artifact":{}}`))
	assert.ErrorIs(t, err, ErrPoison)
}

type recordingAcker struct {
	calls []string
}

func (a *recordingAcker) Ack() error {
	a.calls = append(a.calls, "ack")
	return nil
}

func (a *recordingAcker) Nak() error {
	a.calls = append(a.calls, "nak")
	return nil
}

func (a *recordingAcker) Term() error {
	a.calls = append(a.calls, "term")
	return errors.New("already settled")
}

func TestSettle(t *testing.T) {
	log := zaptest.NewLogger(t)
	msg := &recordingAcker{}

	settle(msg, nil, log)
	settle(msg, errors.New("database is locked"), log)
	_, decodeErr := DecodeArtifactWritten([]byte("{"))
	settle(msg, decodeErr, log)

	assert.Equal(t, []string{"ack", "nak", "term"}, msg.calls)
}

func TestAnnouncing_FailsWriteOnPublishError(t *testing.T) {
	boom := errors.New("no responders")
	w := store.NewAnnouncing(store.NewMemory(), NewAnnouncer(&fakePublisher{err: boom}))

	tbl := model.NewTimeTable(1)
	require.NoError(t, tbl.Set("OT", []float64{1}))
	_, err := w.Write(context.Background(), model.SingleArtifact(model.NewRawDataset("x", "OT", tbl)))
	assert.ErrorIs(t, err, boom)
}
