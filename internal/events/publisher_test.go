package events

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/user/meeting-scribe/internal/transcript"
)

func TestDisabledPublisherIsLogOnly(t *testing.T) {
	cases := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(tc.cfg, nil)

			seg := transcript.Segment{
				ID:         uuid.New(),
				Text:       "hello",
				Timestamp:  1.5,
				Duration:   2.0,
				Confidence: 0.9,
				Final:      true,
			}
			if err := p.PublishSegment(context.Background(), "session_1", seg); err != nil {
				t.Fatalf("PublishSegment() error: %v", err)
			}

			seg.Final = false
			if err := p.PublishSegment(context.Background(), "session_1", seg); err != nil {
				t.Fatalf("PublishSegment() partial error: %v", err)
			}

			if err := p.Close(); err != nil {
				t.Fatalf("Close() error: %v", err)
			}
		})
	}
}

func TestEnabledPublisherCreatesWriters(t *testing.T) {
	p := New(&Config{
		Enabled:      true,
		Brokers:      []string{"localhost:9092"},
		TopicPartial: "meeting.transcript.partial",
		TopicFinal:   "meeting.transcript.final",
	}, nil)
	defer p.Close()

	if p.writerPartial == nil || p.writerFinal == nil {
		t.Fatal("enabled publisher is missing writers")
	}
	if p.writerPartial.Topic != "meeting.transcript.partial" {
		t.Fatalf("partial topic = %s", p.writerPartial.Topic)
	}
	if p.writerFinal.Topic != "meeting.transcript.final" {
		t.Fatalf("final topic = %s", p.writerFinal.Topic)
	}
}
