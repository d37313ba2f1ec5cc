package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/model"
	"github.com/rothspit/diabro-web/pkg/metrics"
)

const (
	// StreamName is the name of the intake stream.
	StreamName = "INTAKE"

	// SubjectPrefix is the prefix for all intake subjects.
	SubjectPrefix = "intake"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream creates the intake stream if it does not exist yet.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Recruitment chat transcripts, session outcomes and contact inquiries",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EntrySubject returns the subject for a transcript entry.
func EntrySubject(sessionID string, sender intake.Sender) string {
	return fmt.Sprintf("%s.session.%s.entry.%s", SubjectPrefix, sessionID, sender)
}

// EventSubject returns the subject for a session event.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.session.%s.event.%s", SubjectPrefix, sessionID, eventType)
}

// ContactSubject is the subject contact form inquiries are published on.
func ContactSubject() string {
	return SubjectPrefix + ".contact"
}

// EntryFilter returns the filter subject for the transcript entries of one
// session, from either sender.
func EntryFilter(sessionID string) string {
	return fmt.Sprintf("%s.session.%s.entry.>", SubjectPrefix, sessionID)
}

// PublishEntry publishes a transcript entry.
func (m *StreamManager) PublishEntry(ctx context.Context, sessionID string, e intake.Entry) (uint64, error) {
	return m.publish(ctx, EntrySubject(sessionID, e.Sender), e)
}

// PublishEvent publishes a session event.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.SessionEvent) (uint64, error) {
	return m.publish(ctx, EventSubject(event.SessionID, event.Type), event)
}

// PublishContact publishes a stored contact inquiry.
func (m *StreamManager) PublishContact(ctx context.Context, c *model.ContactInquiry) (uint64, error) {
	return m.publish(ctx, ContactSubject(), c)
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s: %w", subject, err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		metrics.NATSPublishTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	metrics.NATSPublishTotal.WithLabelValues("ok").Inc()

	return ack.Sequence, nil
}

// GetEntries replays the transcript entries of a session, starting after a
// stream sequence.
func (m *StreamManager) GetEntries(ctx context.Context, sessionID string, afterSequence uint64, limit int) ([]intake.Entry, uint64, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{EntryFilter(sessionID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch entries: %w", err)
	}

	var (
		entries      []intake.Entry
		lastSequence uint64
	)
	for msg := range batch.Messages() {
		var e intake.Entry
		if err := json.Unmarshal(msg.Data(), &e); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			lastSequence = meta.Sequence.Stream
		}
		entries = append(entries, e)
	}

	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, 0, fmt.Errorf("batch error: %w", batch.Error())
	}

	return entries, lastSequence, nil
}
