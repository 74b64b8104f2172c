// Package events publishes live transcript events to Kafka so downstream
// consumers can follow a meeting as it is transcribed. When Kafka is
// disabled the publisher degrades to log-only mode.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/user/meeting-scribe/internal/observability/metrics"
	"github.com/user/meeting-scribe/internal/transcript"
)

// TranscriptEvent is the wire shape for both partial and final transcript
// events.
type TranscriptEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	SegmentID  string  `json:"segmentId"`
	Text       string  `json:"text"`
	Offset     float64 `json:"offset"` // seconds from session start
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
}

// Publisher writes transcript events to separate partial and final topics.
type Publisher struct {
	writerPartial *kafka.Writer
	writerFinal   *kafka.Writer
	topicPartial  string
	topicFinal    string
	enabled       bool
	metrics       *metrics.Metrics
}

// New creates a Kafka publisher. A nil or disabled config yields a
// log-only publisher.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, transcript events log-only")
		return &Publisher{enabled: false, metrics: m}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic_partial", cfg.TopicPartial).
		Str("topic_final", cfg.TopicFinal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerPartial: newWriter(cfg.TopicPartial),
		writerFinal:   newWriter(cfg.TopicFinal),
		topicPartial:  cfg.TopicPartial,
		topicFinal:    cfg.TopicFinal,
		enabled:       true,
		metrics:       m,
	}
}

// PublishSegment routes one transcript segment to the partial or final
// topic, keyed by session so a session's events stay ordered.
func (p *Publisher) PublishSegment(ctx context.Context, sessionID string, seg transcript.Segment) error {
	ev := TranscriptEvent{
		SessionID:  sessionID,
		SegmentID:  seg.ID.String(),
		Text:       seg.Text,
		Offset:     seg.Timestamp,
		Duration:   seg.Duration,
		Confidence: seg.Confidence,
		Timestamp:  time.Now().UnixMilli(),
	}

	if seg.Final {
		ev.EventType = "meeting.transcript.final"
		return p.publish(ctx, p.writerFinal, p.topicFinal, sessionID, ev)
	}
	ev.EventType = "meeting.transcript.partial"
	return p.publish(ctx, p.writerPartial, p.topicPartial, sessionID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, ev TranscriptEvent) error {
	start := time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing transcript event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.EventType)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerPartial != nil {
		if e := p.writerPartial.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing partial writer")
			err = e
		}
	}
	if p.writerFinal != nil {
		if e := p.writerFinal.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing final writer")
			err = e
		}
	}
	return err
}
