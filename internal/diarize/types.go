// Package diarize attributes transcript text to speakers. A diarization
// engine turns a saved recording into speaker turns; the merger aligns
// those turns with the final transcript segments by time overlap.
package diarize

import "context"

// Turn is a continuous time interval attributed to one speaker, in seconds
// from the start of the recording.
type Turn struct {
	SpeakerID  string  `json:"speaker_id"`
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
}

// Duration returns the turn length in seconds.
func (t Turn) Duration() float64 {
	return t.End - t.Start
}

// Engine computes speaker turns for a complete recording. Implementations
// return turns sorted by start time.
type Engine interface {
	Diarize(ctx context.Context, wavPath string) ([]Turn, error)
}

// MergedSegment is a speaker turn enriched with the transcript text spoken
// during it. Immutable once created.
type MergedSegment struct {
	SpeakerID  string  `json:"speaker_id"`
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// SpeakerStats summarizes one speaker's participation.
type SpeakerStats struct {
	TotalTime   float64 `json:"total_time"`
	TurnCount   int     `json:"turn_count"`
	WordsSpoken int     `json:"words_spoken"`
	Percentage  float64 `json:"percentage"`
}
