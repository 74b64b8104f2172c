package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Recorder captures a session's audio. Samples arrive on the capture
// thread via Push, are queued, and a consumer goroutine appends them to the
// session buffer and forwards each slice to the registered callback. On
// Stop the full recording is written out as a 16-bit PCM WAV file named by
// the session start timestamp.
type Recorder struct {
	sampleRate  int
	outputDir   string
	queueSize   int
	stopTimeout time.Duration

	mu        sync.Mutex
	recording bool
	started   time.Time

	state  *captureState
	slices chan Slice
	stopCh chan struct{}
	done   chan struct{}
}

// captureState holds one recording session's buffer and callback. The
// consumer goroutine appends under the state's own mutex so a Stop that
// times out waiting for the drain can still snapshot safely; a consumer
// that outlives its session keeps writing into its own state and can never
// touch a later session's buffer.
type captureState struct {
	mu      sync.Mutex
	buffer  []int16
	onSlice func(Slice)
}

// NewRecorder creates a recorder writing recordings under outputDir.
func NewRecorder(sampleRate int, outputDir string) *Recorder {
	return &Recorder{
		sampleRate:  sampleRate,
		outputDir:   outputDir,
		queueSize:   64,
		stopTimeout: 2 * time.Second,
	}
}

// Start begins a recording session. The callback is invoked once per
// captured slice from the recorder's consumer goroutine.
func (r *Recorder) Start(onSlice func(Slice)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	r.recording = true
	r.started = time.Now()
	r.state = &captureState{onSlice: onSlice}
	r.slices = make(chan Slice, r.queueSize)
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})

	go consume(r.state, r.slices, r.stopCh, r.done)

	log.Info().
		Int("sample_rate", r.sampleRate).
		Str("output_dir", r.outputDir).
		Msg("Recording started")

	return nil
}

// Push accepts a block of samples from the capture callback. Safe to call
// from the capture thread; never blocks. Samples arriving while not
// recording are dropped silently.
func (r *Recorder) Push(samples []int16) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	slices := r.slices
	r.mu.Unlock()

	owned := make([]int16, len(samples))
	copy(owned, samples)

	slice := Slice{
		Samples:    owned,
		SampleRate: r.sampleRate,
		Captured:   time.Now(),
	}

	select {
	case slices <- slice:
	default:
		log.Warn().Int("samples", len(samples)).Msg("Audio queue full, dropping slice")
	}
}

func consume(st *captureState, slices <-chan Slice, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case slice := <-slices:
			st.append(slice)
		case <-stopCh:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case slice := <-slices:
					st.append(slice)
				default:
					return
				}
			}
		}
	}
}

func (st *captureState) append(slice Slice) {
	st.mu.Lock()
	st.buffer = append(st.buffer, slice.Samples...)
	st.mu.Unlock()
	if st.onSlice != nil {
		st.onSlice(slice)
	}
}

func (st *captureState) snapshot() []int16 {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]int16, len(st.buffer))
	copy(out, st.buffer)
	return out
}

// Stop ends the session and saves the recording. Returns the WAV file path,
// or ErrNoAudioRecorded if nothing was captured.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", ErrNoAudioRecorded
	}
	r.recording = false
	st := r.state
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.done:
	case <-time.After(r.stopTimeout):
		log.Warn().Msg("Recorder consumer did not drain in time")
	}

	buffer := st.snapshot()
	if len(buffer) == 0 {
		return "", ErrNoAudioRecorded
	}

	filename := fmt.Sprintf("meeting_%s.wav", r.started.Format("20060102_150405"))
	path := filepath.Join(r.outputDir, filename)

	if err := WriteWAVFile(path, buffer, r.sampleRate); err != nil {
		return "", fmt.Errorf("failed to save recording: %w", err)
	}

	duration := float64(len(buffer)) / float64(r.sampleRate)
	log.Info().
		Str("file", path).
		Float64("duration_sec", duration).
		Msg("Recording saved")

	return path, nil
}

// Recording reports whether a session is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
