package audio

import (
	"errors"
	"time"
)

// Slice is one fixed-duration block of captured PCM samples. A slice is
// handed off exactly once from the capture side to its consumer; the
// producer must not retain or mutate the sample data afterwards.
type Slice struct {
	Samples    []int16   `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Captured   time.Time `json:"captured"`
}

// Duration returns the slice length in seconds.
func (s Slice) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNoAudioRecorded  = errors.New("no audio recorded")
)
