package audio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// FileSource replays an existing WAV file through a Recorder in
// fixed-duration blocks, as if it were being captured live. Used by the CLI
// to process pre-recorded meetings.
type FileSource struct {
	path       string
	sliceSecs  float64
	realtime   bool
	pcm        []int16
	sampleRate int
}

// NewFileSource opens a WAV file for replay. When realtime is true the
// source sleeps one slice duration between pushes to mimic live capture.
func NewFileSource(path string, sliceSecs float64, realtime bool) (*FileSource, error) {
	pcm, rate, err := ReadWAVFile(path)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("wav file contains no samples: %s", path)
	}
	return &FileSource{
		path:       path,
		sliceSecs:  sliceSecs,
		realtime:   realtime,
		pcm:        pcm,
		sampleRate: rate,
	}, nil
}

// SampleRate returns the file's sample rate.
func (f *FileSource) SampleRate() int {
	return f.sampleRate
}

// Run pushes the file's samples into the recorder slice by slice. Blocks
// until the file is exhausted.
func (f *FileSource) Run(rec *Recorder) {
	sliceSamples := int(f.sliceSecs * float64(f.sampleRate))
	if sliceSamples <= 0 {
		sliceSamples = f.sampleRate
	}

	log.Info().
		Str("file", f.path).
		Int("sample_rate", f.sampleRate).
		Float64("duration_sec", float64(len(f.pcm))/float64(f.sampleRate)).
		Msg("Replaying audio file")

	for off := 0; off < len(f.pcm); off += sliceSamples {
		end := off + sliceSamples
		if end > len(f.pcm) {
			end = len(f.pcm)
		}
		rec.Push(f.pcm[off:end])
		if f.realtime {
			time.Sleep(time.Duration(float64(end-off) / float64(f.sampleRate) * float64(time.Second)))
		}
	}
}
