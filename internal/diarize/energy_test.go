package diarize

import (
	"math"
	"testing"
)

// frames builds a flag slice from (value, count) pairs.
func frames(pairs ...interface{}) []bool {
	var out []bool
	for i := 0; i < len(pairs); i += 2 {
		v := pairs[i].(bool)
		n := pairs[i+1].(int)
		for j := 0; j < n; j++ {
			out = append(out, v)
		}
	}
	return out
}

func TestTurnsFromFramesAlternatesSpeakers(t *testing.T) {
	// Two clearly separated speech runs of 1.2s each with a 0.6s gap.
	speech := frames(true, 40, false, 20, true, 40)

	turns := turnsFromFrames(speech, 0.03, 0.3, 0.5)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].SpeakerID != "SPEAKER_1" || turns[1].SpeakerID != "SPEAKER_2" {
		t.Fatalf("speakers = %s, %s", turns[0].SpeakerID, turns[1].SpeakerID)
	}
	for _, turn := range turns {
		if turn.Confidence != heuristicConf {
			t.Fatalf("confidence = %f, want %f", turn.Confidence, heuristicConf)
		}
	}
}

func TestTurnsFromFramesBridgesShortGaps(t *testing.T) {
	// A 0.15s pause inside a sentence must not split the turn.
	speech := frames(true, 30, false, 5, true, 30)

	turns := turnsFromFrames(speech, 0.03, 0.3, 0.5)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if math.Abs(turns[0].Start-0.0) > 1e-9 || math.Abs(turns[0].End-1.95) > 1e-9 {
		t.Fatalf("turn = [%f, %f]", turns[0].Start, turns[0].End)
	}
}

func TestTurnsFromFramesDropsShortRuns(t *testing.T) {
	// A 0.3s blip of noise between real turns is discarded, and speaker
	// alternation skips it.
	speech := frames(true, 40, false, 20, true, 10, false, 20, true, 40)

	turns := turnsFromFrames(speech, 0.03, 0.3, 0.5)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[1].SpeakerID != "SPEAKER_2" {
		t.Fatalf("second turn speaker = %s, want SPEAKER_2", turns[1].SpeakerID)
	}
}

func TestTurnsFromFramesTrailingSpeech(t *testing.T) {
	speech := frames(false, 10, true, 40)

	turns := turnsFromFrames(speech, 0.03, 0.3, 0.5)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if math.Abs(turns[0].End-1.5) > 1e-9 {
		t.Fatalf("trailing turn end = %f, want 1.5", turns[0].End)
	}
}

func TestTurnsFromFramesSilence(t *testing.T) {
	if turns := turnsFromFrames(frames(false, 100), 0.03, 0.3, 0.5); len(turns) != 0 {
		t.Fatalf("silence produced %d turns", len(turns))
	}
	if turns := turnsFromFrames(nil, 0.03, 0.3, 0.5); len(turns) != 0 {
		t.Fatalf("empty input produced %d turns", len(turns))
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Fatalf("rms(nil) = %f", got)
	}
	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 2000
	}
	if got := rms(loud); math.Abs(got-2000) > 1e-6 {
		t.Fatalf("rms = %f, want 2000", got)
	}
}
