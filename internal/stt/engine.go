// Package stt defines the interfaces for speech-to-text engines. Two engine
// shapes exist: batch engines process multi-second audio windows and return
// only final text; streaming engines accept individual slices and can return
// partial hypotheses before an utterance completes.
package stt

import "context"

// BatchEngine converts an accumulated window of PCM audio into text.
type BatchEngine interface {
	// Transcribe processes a complete audio window. An empty string with a
	// nil error means the window contained no recognizable speech.
	Transcribe(ctx context.Context, pcm []int16, sampleRate int) (string, error)
	Close() error
}

// StreamResult is the outcome of feeding one slice to a streaming engine.
type StreamResult struct {
	// Final reports whether Text is a completed utterance. When false, Text
	// is a provisional hypothesis for audio still being spoken.
	Final      bool
	Text       string
	Confidence float64
}

// StreamingEngine consumes audio slice by slice, emitting partial hypotheses
// and finalized utterances as it goes.
type StreamingEngine interface {
	Accept(pcm []int16) (StreamResult, error)
	// Reset flushes any pending recognizer state, returning the final text
	// for audio accepted since the last final result, if any.
	Reset() (StreamResult, error)
	Close() error
}
