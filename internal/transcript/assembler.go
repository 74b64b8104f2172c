// Package transcript assembles incoming audio slices into an ordered
// sequence of transcript segments. The assembler owns the audio-to-text
// buffering policy and drives a transcription engine of one of two shapes:
// a batch engine fed multi-second windows, or a streaming engine fed every
// slice as it arrives.
package transcript

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/audio"
	"github.com/user/meeting-scribe/internal/observability/metrics"
	"github.com/user/meeting-scribe/internal/stt"
)

// Config holds the assembler's buffering policy.
type Config struct {
	SampleRate     int
	WindowSeconds  float64       // batch mode: accumulated audio per engine call
	ContextSeconds float64       // batch mode: trailing audio retained across windows
	QueueSize      int           // bounded slice queue between producer and consumer
	StopTimeout    time.Duration // bounded wait for the consumer to drain on Stop
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.WindowSeconds == 0 {
		c.WindowSeconds = 5.0
	}
	if c.ContextSeconds == 0 {
		c.ContextSeconds = 1.0
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 2 * time.Second
	}
	return c
}

// Assembler turns a stream of audio slices into transcript segments. Submit
// is the only method safe to call from the capture thread; Start, Stop and
// the read accessors belong to the control thread. All segment emission
// happens on a single consumer goroutine, so final segments are appended in
// strictly non-decreasing timestamp order without post-hoc sorting.
type Assembler struct {
	cfg     Config
	batch   stt.BatchEngine
	stream  stt.StreamingEngine
	metrics *metrics.Metrics

	mu        sync.Mutex
	active    bool
	gen       uint64 // identifies the current worker; stale emissions are dropped
	startedAt time.Time
	finals    []Segment
	updates   []Segment

	slices chan audio.Slice
	stopCh chan struct{}
	done   chan struct{}
}

// NewBatch creates an assembler that accumulates slices into windows for a
// batch engine. The engine mode is fixed for the assembler's lifetime.
func NewBatch(engine stt.BatchEngine, cfg Config, m *metrics.Metrics) *Assembler {
	return &Assembler{cfg: cfg.withDefaults(), batch: engine, metrics: m}
}

// NewStreaming creates an assembler that forwards each slice to a streaming
// engine as it arrives.
func NewStreaming(engine stt.StreamingEngine, cfg Config, m *metrics.Metrics) *Assembler {
	return &Assembler{cfg: cfg.withDefaults(), stream: engine, metrics: m}
}

// Start transitions the assembler from idle to active and launches the
// consumer goroutine. Segment timestamps count seconds from this instant.
func (a *Assembler) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active {
		return ErrAlreadyActive
	}

	a.active = true
	a.gen++
	a.startedAt = time.Now()
	a.finals = nil
	a.updates = nil
	a.slices = make(chan audio.Slice, a.cfg.QueueSize)
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})

	w := &worker{a: a, gen: a.gen}
	go w.run(a.slices, a.stopCh, a.done)

	mode := "batch"
	if a.stream != nil {
		mode = "streaming"
	}
	log.Info().
		Str("mode", mode).
		Float64("window_sec", a.cfg.WindowSeconds).
		Float64("context_sec", a.cfg.ContextSeconds).
		Msg("Transcript assembler started")

	return nil
}

// Submit queues one audio slice for transcription. Safe to call from the
// capture thread; never blocks. Slices arriving while idle are dropped
// silently, mirroring audio that trails in after a stop.
func (a *Assembler) Submit(slice audio.Slice) {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	slices := a.slices
	a.mu.Unlock()

	select {
	case slices <- slice:
		a.metrics.RecordSlice(slice.Duration())
	default:
		a.metrics.RecordSliceDropped()
		log.Warn().Int("samples", len(slice.Samples)).Msg("Slice queue full, dropping audio")
	}
}

// Stop transitions to idle, waits for the consumer to drain queued audio
// and flush any residual buffered window, then returns the full ordered
// sequence of final segments. If the consumer does not exit within the
// configured bound, Stop returns whatever was finalized so far.
func (a *Assembler) Stop() ([]Segment, error) {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return nil, ErrNotActive
	}
	a.active = false
	done := a.done
	a.mu.Unlock()

	close(a.stopCh)

	select {
	case <-done:
	case <-time.After(a.cfg.StopTimeout):
		log.Warn().Msg("Assembler drain timed out, returning finalized segments")
	}

	// Retire the worker's generation so a consumer stuck past the drain
	// bound cannot write into this session after the snapshot below, or
	// into a later one.
	a.mu.Lock()
	a.gen++
	a.mu.Unlock()

	finals := a.Segments()
	log.Info().Int("segments", len(finals)).Msg("Transcript assembler stopped")
	return finals, nil
}

// Segments returns a snapshot of the final segments emitted so far.
func (a *Assembler) Segments() []Segment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Segment, len(a.finals))
	copy(out, a.finals)
	return out
}

// DrainUpdates returns the partial and final segments emitted since the
// previous drain. A UI or event layer calls this at its own cadence.
func (a *Assembler) DrainUpdates() []Segment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.updates
	a.updates = nil
	return out
}

// FullText returns the space-joined text of all final segments.
func (a *Assembler) FullText() string {
	return FullText(a.Segments())
}

func (a *Assembler) elapsed() float64 {
	return time.Since(a.startedAt).Seconds()
}

func (a *Assembler) emit(gen uint64, seg Segment) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		log.Warn().Str("text", seg.Text).Msg("Dropping segment from superseded worker")
		return
	}
	if seg.Final {
		a.finals = append(a.finals, seg)
	}
	a.updates = append(a.updates, seg)
	a.mu.Unlock()

	if seg.Final {
		a.metrics.RecordFinal()
	} else {
		a.metrics.RecordPartial()
	}
}

// worker holds the consumer goroutine's private state. Nothing here is
// touched by any other goroutine.
type worker struct {
	a   *Assembler
	gen uint64 // generation this worker was started under

	pending     []int16 // batch mode accumulation buffer, context prefix included
	contextLen  int     // leading samples of pending that were already transcribed
	lastPartial string  // streaming mode partial-suppression state
}

func (w *worker) emit(seg Segment) {
	w.a.emit(w.gen, seg)
}

func (w *worker) run(slices <-chan audio.Slice, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case slice := <-slices:
			w.consume(slice)
		case <-stopCh:
			// Drain everything still queued, then flush the residue.
			for {
				select {
				case slice := <-slices:
					w.consume(slice)
				default:
					w.finish()
					return
				}
			}
		}
	}
}

func (w *worker) consume(slice audio.Slice) {
	if w.a.batch != nil {
		w.pending = append(w.pending, slice.Samples...)
		windowSamples := int(w.a.cfg.WindowSeconds * float64(w.a.cfg.SampleRate))
		if len(w.pending) >= windowSamples {
			w.flushWindow()
		}
		return
	}

	res, err := w.a.stream.Accept(slice.Samples)
	if err != nil {
		w.a.metrics.RecordEngineError()
		log.Warn().Err(err).Msg("Streaming engine error, slice produced no text")
		return
	}
	w.handleStreamResult(res, slice.Duration())
}

func (w *worker) handleStreamResult(res stt.StreamResult, duration float64) {
	text := strings.TrimSpace(res.Text)

	if res.Final {
		// A completed utterance resets partial suppression regardless of
		// whether it carried text.
		w.lastPartial = ""
		if text == "" {
			return
		}
		w.emit(Segment{
			ID:         uuid.New(),
			Text:       text,
			Timestamp:  w.a.elapsed(),
			Duration:   duration,
			Confidence: res.Confidence,
			Final:      true,
		})
		return
	}

	// Partials must grow strictly; equal or shorter hypotheses are engine
	// flicker and are suppressed.
	if len(text) <= len(w.lastPartial) {
		return
	}
	w.lastPartial = text
	w.emit(Segment{
		ID:         uuid.New(),
		Text:       text,
		Timestamp:  w.a.elapsed(),
		Confidence: res.Confidence,
		Final:      false,
	})
}

// flushWindow sends the entire accumulated window to the batch engine, then
// retains the trailing context so the next window does not cut a word at
// the boundary.
func (w *worker) flushWindow() {
	window := w.pending
	timestamp := w.a.elapsed()

	keep := int(w.a.cfg.ContextSeconds * float64(w.a.cfg.SampleRate))
	if len(window) > keep {
		tail := make([]int16, keep)
		copy(tail, window[len(window)-keep:])
		w.pending = tail
		w.contextLen = keep
	} else {
		w.pending = nil
		w.contextLen = 0
	}

	w.a.metrics.RecordWindow()
	text, err := w.a.batch.Transcribe(context.Background(), window, w.a.cfg.SampleRate)
	if err != nil {
		w.a.metrics.RecordEngineError()
		log.Warn().
			Err(err).
			Int("samples", len(window)).
			Msg("Transcription engine error, window produced no text")
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	w.emit(Segment{
		ID:         uuid.New(),
		Text:       text,
		Timestamp:  timestamp,
		Duration:   float64(len(window)) / float64(w.a.cfg.SampleRate),
		Confidence: 1.0,
		Final:      true,
	})
}

// finish force-flushes residual audio so the tail of a meeting is not lost.
// The retained context alone is not re-flushed; it was already transcribed
// as part of the previous window.
func (w *worker) finish() {
	if w.a.batch != nil {
		if len(w.pending) > w.contextLen {
			w.flushWindow()
		}
		return
	}

	res, err := w.a.stream.Reset()
	if err != nil {
		w.a.metrics.RecordEngineError()
		log.Warn().Err(err).Msg("Streaming engine flush error")
		return
	}
	w.handleStreamResult(res, 0)
}
