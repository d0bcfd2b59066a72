package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	streamName              = "SLOT_MONITOR"
	subjectPrefix           = "MONITOR"
	dedupWindow             = 20 * time.Minute
	jetstreamConnectTimeout = 5 * time.Second
)

// NATSNotifier publishes alerts to subject MONITOR.<channel>. Archive records
// carry a JetStream message-id of "<signature>-<filterID>", so duplicate
// evaluations of the same transaction (e.g. across an overlapping catch-up
// batch boundary) collapse to a single downstream delivery. Chat alerts sent
// through Notify carry no message-id and are not deduplicated by the stream.
// Satisfies both ChatNotifier and
// Archiver, since both reduce to "publish a message a subscriber will read":
// the actual chat client / archive writer is the out-of-scope subscriber.
//
// Grounded on the teacher's internal/nats/publisher.go: same JetStream
// stream-ensure-then-publish-with-msg-id shape, repurposed from per-event
// publish keyed by (tx hash, log index) to per-alert publish keyed by
// (signature, filter id).
type NATSNotifier struct {
	logger zerolog.Logger
	nc     *nats.Conn
	js     jetstream.JetStream
}

// NewNATSNotifier connects to natsURL and ensures the SLOT_MONITOR stream
// exists with a dedup window matching the teacher's 20-minute default.
func NewNATSNotifier(ctx context.Context, natsURL string, logger zerolog.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(natsURL, nats.Timeout(jetstreamConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("dispatch: connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("dispatch: init jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{subjectPrefix + ".>"},
		Duplicates: dedupWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("dispatch: ensure stream %s: %w", streamName, err)
	}

	return &NATSNotifier{
		logger: logger.With().Str("component", "dispatch.nats").Logger(),
		nc:     nc,
		js:     js,
	}, nil
}

// Notify publishes a chat-channel alert.
func (n *NATSNotifier) Notify(ctx context.Context, channel, severity, message string) error {
	return n.publish(ctx, channel, severity+":"+message, "")
}

// Archive publishes an archive-channel record.
func (n *NATSNotifier) Archive(ctx context.Context, record ArchiveRecord) error {
	return n.publish(ctx, "archive", record.Message, record.Signature+"-"+record.FilterID)
}

func (n *NATSNotifier) publish(ctx context.Context, channel, body, msgID string) error {
	subject := subjectPrefix + "." + channel
	opts := []jetstream.PublishOpt{}
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	_, err := n.js.Publish(ctx, subject, []byte(body), opts...)
	if err != nil {
		return fmt.Errorf("dispatch: publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the underlying NATS connection.
func (n *NATSNotifier) Close() {
	n.nc.Close()
}
