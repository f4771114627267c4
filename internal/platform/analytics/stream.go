package analytics

import (
	"errors"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// StreamName is the JetStream stream holding every console event.
const StreamName = "FILMHIVE_MODERATION"

// StreamSubjects covers all Subject* constants.
var StreamSubjects = []string{"analytics.comments.>", "analytics.replies.>"}

// StreamAdder is the slice of nats.JetStreamContext EnsureStream needs.
type StreamAdder interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStream creates the moderation stream unless it already exists.
func EnsureStream(js StreamAdder, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := js.StreamInfo(StreamName); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: StreamSubjects,
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return err
	}
	log.Info("created NATS stream", zap.String("stream", StreamName))
	return nil
}
