package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tunogya/saliency/pkg/store"
)

// SubjectArtifactWritten carries one message per persisted artifact
const SubjectArtifactWritten = "saliency.artifacts.written"

// ArtifactWrittenMsg announces a persisted artifact
type ArtifactWrittenMsg struct {
	RunID    string        `json:"run_id"`
	Artifact store.Written `json:"artifact"`
}

// MsgID is the JetStream dedup id: rewriting an artifact within the same run
// is announced once
func (m ArtifactWrittenMsg) MsgID() string {
	return m.RunID + "/" + m.Artifact.Name
}

// Encode serializes a message to JSON bytes
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeArtifactWritten deserializes an ArtifactWrittenMsg from JSON bytes.
// Malformed payloads are reported as ErrPoison.
func DecodeArtifactWritten(data []byte) (*ArtifactWrittenMsg, error) {
	var msg ArtifactWrittenMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	if msg.Artifact.Name == "" {
		return nil, fmt.Errorf("%w: artifact message without a name", ErrPoison)
	}
	return &msg, nil
}

// Publisher is the subset of Client used for announcements
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// Announcer publishes ArtifactWrittenMsg for every persisted artifact of a
// run. It implements store.Publisher.
type Announcer struct {
	publisher Publisher
	runID     string
}

// NewAnnouncer creates an announcer with a fresh run id
func NewAnnouncer(publisher Publisher) *Announcer {
	return NewAnnouncerWithRunID(publisher, uuid.NewString())
}

// NewAnnouncerWithRunID creates an announcer for an existing run
func NewAnnouncerWithRunID(publisher Publisher, runID string) *Announcer {
	return &Announcer{publisher: publisher, runID: runID}
}

// RunID returns the id stamped on every message
func (a *Announcer) RunID() string {
	return a.runID
}

// Announce publishes the artifact record
func (a *Announcer) Announce(ctx context.Context, w store.Written) error {
	msg := ArtifactWrittenMsg{RunID: a.runID, Artifact: w}
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode artifact message: %w", err)
	}
	return a.publisher.Publish(ctx, SubjectArtifactWritten, data, msg.MsgID())
}
