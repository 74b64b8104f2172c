package diarize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/meeting-scribe/internal/transcript"
)

// Merge aligns final transcript segments with speaker turns by time
// overlap. For each turn, every segment whose timestamp falls inside
// [start, end] inclusive contributes its text; a segment at the exact
// boundary of two turns goes to the first turn in iteration order. Turns
// with no contributing text are dropped, and segments matching no turn are
// excluded here (they remain available via the assembler's full text).
func Merge(turns []Turn, segments []transcript.Segment) []MergedSegment {
	merged := make([]MergedSegment, 0, len(turns))
	claimed := make([]bool, len(segments))

	for _, turn := range turns {
		var texts []string
		for i, seg := range segments {
			if claimed[i] || !seg.Final {
				continue
			}
			if seg.Timestamp >= turn.Start && seg.Timestamp <= turn.End {
				texts = append(texts, seg.Text)
				claimed[i] = true
			}
		}
		if len(texts) == 0 {
			continue
		}
		merged = append(merged, MergedSegment{
			SpeakerID:  turn.SpeakerID,
			Start:      turn.Start,
			End:        turn.End,
			Text:       strings.Join(texts, " "),
			Confidence: turn.Confidence,
		})
	}

	return merged
}

// Statistics derives per-speaker speaking time, turn counts and word counts
// from a merged transcript. Percentages sum to 100 unless total speaking
// time is zero, in which case they are zero.
func Statistics(merged []MergedSegment) map[string]SpeakerStats {
	stats := make(map[string]SpeakerStats)
	var total float64

	for _, seg := range merged {
		s := stats[seg.SpeakerID]
		s.TotalTime += seg.End - seg.Start
		s.TurnCount++
		s.WordsSpoken += len(strings.Fields(seg.Text))
		stats[seg.SpeakerID] = s
		total += seg.End - seg.Start
	}

	for id, s := range stats {
		if total > 0 {
			s.Percentage = s.TotalTime / total * 100
		}
		stats[id] = s
	}

	return stats
}

// FormatLabeled renders a merged transcript for display, emitting a speaker
// marker only when the speaker changes from the preceding segment.
func FormatLabeled(merged []MergedSegment) string {
	var b strings.Builder
	var current string

	for _, seg := range merged {
		if seg.SpeakerID != current {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("[%s]: ", seg.SpeakerID))
			current = seg.SpeakerID
		} else {
			b.WriteString(" ")
		}
		b.WriteString(seg.Text)
	}

	return b.String()
}

// sortAndFilter normalizes raw engine output: ascending start order, turns
// shorter than minTurnSeconds discarded as noise.
func sortAndFilter(turns []Turn, minTurnSeconds float64) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Duration() >= minTurnSeconds {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}
