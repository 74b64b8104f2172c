// Package vosk implements a streaming transcription engine backed by a local
// Vosk model. Vosk consumes audio incrementally and reports partial
// hypotheses while speech is in progress, then a final result once the
// recognizer detects the end of an utterance.
package vosk

import (
	"encoding/json"
	"fmt"

	"github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/stt"
)

type Engine struct {
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
	sampleRate int
}

type voskResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type voskPartial struct {
	Partial string `json:"partial"`
}

// NewEngine loads the Vosk model from modelPath. Model loading failures are
// fatal for the caller; there is no fallback at this level.
func NewEngine(modelPath string, sampleRate int) (*Engine, error) {
	log.Info().Str("model_path", modelPath).Msg("Loading Vosk model")

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Vosk model from %s: %w", modelPath, err)
	}

	recognizer, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create Vosk recognizer: %w", err)
	}

	log.Info().Msg("Vosk model loaded")

	return &Engine{
		model:      model,
		recognizer: recognizer,
		sampleRate: sampleRate,
	}, nil
}

// Accept feeds one slice of PCM to the recognizer.
func (e *Engine) Accept(pcm []int16) (stt.StreamResult, error) {
	if len(pcm) == 0 {
		return stt.StreamResult{}, nil
	}

	status := e.recognizer.AcceptWaveform(pcmToBytes(pcm))
	if status == -1 {
		return stt.StreamResult{}, fmt.Errorf("vosk failed to process audio slice")
	}

	if status == 1 {
		return e.parseFinal(e.recognizer.Result())
	}
	return e.parsePartial(e.recognizer.PartialResult())
}

// Reset flushes the recognizer, returning any text pending since the last
// final result.
func (e *Engine) Reset() (stt.StreamResult, error) {
	return e.parseFinal(e.recognizer.FinalResult())
}

func (e *Engine) parseFinal(jsonResult string) (stt.StreamResult, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(jsonResult), &res); err != nil {
		log.Warn().Err(err).Str("json", jsonResult).Msg("Failed to parse Vosk result")
		return stt.StreamResult{}, nil
	}
	conf := res.Confidence
	if conf == 0 {
		conf = 1.0
	}
	return stt.StreamResult{Final: true, Text: res.Text, Confidence: conf}, nil
}

func (e *Engine) parsePartial(jsonResult string) (stt.StreamResult, error) {
	var res voskPartial
	if err := json.Unmarshal([]byte(jsonResult), &res); err != nil {
		log.Warn().Err(err).Str("json", jsonResult).Msg("Failed to parse Vosk partial")
		return stt.StreamResult{}, nil
	}
	return stt.StreamResult{Final: false, Text: res.Partial, Confidence: 1.0}, nil
}

func (e *Engine) Close() error {
	if e.recognizer != nil {
		e.recognizer.Free()
	}
	if e.model != nil {
		e.model.Free()
	}
	return nil
}

func pcmToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		b[i*2] = byte(sample)
		b[i*2+1] = byte(sample >> 8)
	}
	return b
}
