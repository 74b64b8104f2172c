// Package session orchestrates one recording session end to end: live
// capture feeds the transcript assembler while the session runs; on stop
// the saved recording is diarized, merged with the final transcript, and
// the results are persisted and summarised.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/audio"
	"github.com/user/meeting-scribe/internal/diarize"
	"github.com/user/meeting-scribe/internal/events"
	"github.com/user/meeting-scribe/internal/observability/metrics"
	"github.com/user/meeting-scribe/internal/store"
	"github.com/user/meeting-scribe/internal/transcript"
)

// Summariser generates meeting notes from a labeled transcript.
type Summariser interface {
	Summarise(ctx context.Context, labeled string, stats map[string]diarize.SpeakerStats, mode string) (string, error)
}

// Result collects everything a finished session produced.
type Result struct {
	SessionID      string
	RecordingPath  string
	TranscriptPath string
	MergedPath     string
	NotesPath      string
	Segments       []transcript.Segment
	Merged         []diarize.MergedSegment
	Stats          map[string]diarize.SpeakerStats
	FullText       string
}

// Session wires a recorder to an assembler and handles the stop-time batch
// work. All methods are called from a single control goroutine; the only
// concurrent paths are the recorder's capture callback and the update pump.
type Session struct {
	ID string

	recorder   *audio.Recorder
	assembler  *transcript.Assembler
	diarizer   *diarize.Diarizer
	store      *store.FileStore
	publisher  *events.Publisher
	summariser Summariser
	metrics    *metrics.Metrics

	summaryMode  string
	pumpInterval time.Duration
	onUpdate     func(transcript.Segment)

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	pumped  chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithSummariser enables note generation after the session ends.
func WithSummariser(s Summariser, mode string) Option {
	return func(sess *Session) {
		sess.summariser = s
		sess.summaryMode = mode
	}
}

// WithUpdateCallback registers a callback invoked for each partial and
// final segment drained by the update pump, for live display.
func WithUpdateCallback(fn func(transcript.Segment)) Option {
	return func(sess *Session) {
		sess.onUpdate = fn
	}
}

// New creates a session. Publisher and diarizer may be log-only/fallback
// instances but must be non-nil.
func New(
	id string,
	recorder *audio.Recorder,
	assembler *transcript.Assembler,
	diarizer *diarize.Diarizer,
	fileStore *store.FileStore,
	publisher *events.Publisher,
	m *metrics.Metrics,
	opts ...Option,
) *Session {
	s := &Session{
		ID:           id,
		recorder:     recorder,
		assembler:    assembler,
		diarizer:     diarizer,
		store:        fileStore,
		publisher:    publisher,
		metrics:      m,
		pumpInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recorder exposes the capture entry point so audio sources can push
// samples into the running session.
func (s *Session) Recorder() *audio.Recorder {
	return s.recorder
}

// Start begins capture and live transcription.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("session %s already started", s.ID)
	}

	if err := s.assembler.Start(); err != nil {
		return fmt.Errorf("failed to start assembler: %w", err)
	}

	if err := s.recorder.Start(func(slice audio.Slice) {
		s.assembler.Submit(slice)
	}); err != nil {
		// Roll the assembler back so the session can be retried.
		if _, stopErr := s.assembler.Stop(); stopErr != nil {
			log.Warn().Err(stopErr).Msg("Assembler rollback failed")
		}
		return fmt.Errorf("failed to start recorder: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pumped = make(chan struct{})
	go s.pump(ctx)

	s.started = true
	s.metrics.SessionStarted()

	log.Info().Str("session_id", s.ID).Msg("Session started")
	return nil
}

// pump drains live segments at a fixed cadence and fans them out to the
// event publisher and the display callback.
func (s *Session) pump(ctx context.Context) {
	defer close(s.pumped)

	ticker := time.NewTicker(s.pumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flushUpdates(ctx)
		case <-ctx.Done():
			s.flushUpdates(context.Background())
			return
		}
	}
}

func (s *Session) flushUpdates(ctx context.Context) {
	for _, seg := range s.assembler.DrainUpdates() {
		if err := s.publisher.PublishSegment(ctx, s.ID, seg); err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to publish segment")
		}
		if s.onUpdate != nil {
			s.onUpdate(seg)
		}
	}
}

// Stop ends capture, drains the assembler, then runs the batch stage:
// diarize the saved recording, merge it with the final transcript, persist
// artifacts and generate notes. Returns audio.ErrNoAudioRecorded when the
// session captured nothing.
func (s *Session) Stop(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s is not running", s.ID)
	}
	s.stopped = true
	s.mu.Unlock()

	defer s.metrics.SessionEnded()

	// Stop capture first so its drain pushes trailing slices into the
	// assembler before the assembler drains.
	wavPath, recErr := s.recorder.Stop()

	segments, err := s.assembler.Stop()
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to stop assembler: %w", err)
	}

	s.cancel()
	select {
	case <-s.pumped:
	case <-time.After(2 * time.Second):
		log.Warn().Str("session_id", s.ID).Msg("Update pump did not exit in time")
	}

	if recErr != nil {
		if errors.Is(recErr, audio.ErrNoAudioRecorded) {
			return nil, recErr
		}
		return nil, fmt.Errorf("failed to stop recorder: %w", recErr)
	}

	result := &Result{
		SessionID:     s.ID,
		RecordingPath: wavPath,
		Segments:      segments,
		FullText:      transcript.FullText(segments),
	}

	// Speaker attribution runs strictly after all finals are settled.
	turns, err := s.diarizer.Diarize(ctx, wavPath)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Diarization failed, transcript stays unlabeled")
	}
	result.Merged = diarize.Merge(turns, segments)
	result.Stats = diarize.Statistics(result.Merged)

	if path, err := s.store.SaveTranscript(s.ID, segments); err != nil {
		log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to save transcript")
	} else {
		result.TranscriptPath = path
	}

	if len(result.Merged) > 0 {
		if path, err := s.store.SaveMerged(s.ID, result.Merged, result.Stats); err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to save merged transcript")
		} else {
			result.MergedPath = path
		}
	}

	if s.summariser != nil {
		labeled := diarize.FormatLabeled(result.Merged)
		if labeled == "" {
			labeled = result.FullText
		}
		notes, err := s.summariser.Summarise(ctx, labeled, result.Stats, s.summaryMode)
		if err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to generate notes")
		} else if path, err := s.store.SaveNotes(s.ID, notes); err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("Failed to save notes")
		} else {
			result.NotesPath = path
		}
	}

	log.Info().
		Str("session_id", s.ID).
		Int("segments", len(segments)).
		Int("merged", len(result.Merged)).
		Str("recording", wavPath).
		Msg("Session finished")

	return result, nil
}
