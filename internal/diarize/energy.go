package diarize

import (
	"context"
	"fmt"
	"math"

	"github.com/maxhawkins/go-webrtcvad"
	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/audio"
)

const (
	frameSeconds   = 0.03 // 30ms, a frame size webrtcvad accepts
	mergeGapSecs   = 0.3  // speech runs closer than this are one turn
	heuristicConf  = 0.7  // heuristic turns carry reduced confidence
	rmsSpeechLevel = 500.0
)

// EnergyDiarizer is the fallback diarization engine used when no primary
// model is reachable. It detects speech activity per frame and assigns
// alternating speaker ids to the resulting runs. Shape-compatible with real
// diarization output, differing only by confidence.
type EnergyDiarizer struct {
	minTurnSeconds float64
	vad            *webrtcvad.VAD
}

// NewEnergyDiarizer creates the fallback engine. If the WebRTC VAD cannot be
// initialized, frame classification degrades to an RMS threshold.
func NewEnergyDiarizer(minTurnSeconds float64) *EnergyDiarizer {
	vad, err := webrtcvad.New()
	if err != nil {
		log.Warn().Err(err).Msg("WebRTC VAD unavailable, using RMS detection")
		vad = nil
	} else if err := vad.SetMode(2); err != nil {
		log.Warn().Err(err).Msg("Failed to set VAD mode")
	}
	return &EnergyDiarizer{
		minTurnSeconds: minTurnSeconds,
		vad:            vad,
	}
}

// Diarize segments the recording into alternating speaker turns based on
// voice activity.
func (d *EnergyDiarizer) Diarize(ctx context.Context, wavPath string) ([]Turn, error) {
	pcm, sampleRate, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	frameSamples := int(frameSeconds * float64(sampleRate))
	if frameSamples == 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	speech := make([]bool, 0, len(pcm)/frameSamples)
	for off := 0; off+frameSamples <= len(pcm); off += frameSamples {
		speech = append(speech, d.isSpeech(pcm[off:off+frameSamples], sampleRate))
	}

	turns := turnsFromFrames(speech, frameSeconds, mergeGapSecs, d.minTurnSeconds)

	log.Info().
		Int("turns", len(turns)).
		Str("file", wavPath).
		Msg("Heuristic diarization complete")

	return turns, nil
}

func (d *EnergyDiarizer) isSpeech(frame []int16, sampleRate int) bool {
	if d.vad != nil {
		raw := int16ToBytes(frame)
		if d.vad.ValidRateAndFrameLength(sampleRate, len(raw)) {
			if ok, err := d.vad.Process(sampleRate, raw); err == nil {
				return ok
			}
		}
	}
	return rms(frame) > rmsSpeechLevel
}

// turnsFromFrames converts per-frame speech flags into speaker turns:
// adjacent speech runs separated by less than mergeGap are joined, runs
// shorter than minTurn are discarded, and surviving runs get alternating
// speaker ids. Pure function, consumed by tests directly.
func turnsFromFrames(speech []bool, frameSecs, mergeGap, minTurn float64) []Turn {
	type run struct{ start, end float64 }
	var runs []run

	inSpeech := false
	var start float64
	for i, s := range speech {
		t := float64(i) * frameSecs
		switch {
		case s && !inSpeech:
			inSpeech = true
			start = t
		case !s && inSpeech:
			inSpeech = false
			runs = append(runs, run{start, t})
		}
	}
	if inSpeech {
		runs = append(runs, run{start, float64(len(speech)) * frameSecs})
	}

	// Bridge short silences so a breath does not split a turn.
	var joined []run
	for _, r := range runs {
		if n := len(joined); n > 0 && r.start-joined[n-1].end < mergeGap {
			joined[n-1].end = r.end
			continue
		}
		joined = append(joined, r)
	}

	var turns []Turn
	speaker := 0
	for _, r := range joined {
		if r.end-r.start < minTurn {
			continue
		}
		speaker++
		turns = append(turns, Turn{
			SpeakerID:  fmt.Sprintf("SPEAKER_%d", (speaker-1)%2+1),
			Start:      r.start,
			End:        r.end,
			Confidence: heuristicConf,
		})
	}

	return turns
}

func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func int16ToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
