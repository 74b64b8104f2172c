package diarize

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/user/meeting-scribe/internal/transcript"
)

func seg(text string, timestamp float64) transcript.Segment {
	return transcript.Segment{ID: uuid.New(), Text: text, Timestamp: timestamp, Final: true}
}

func TestMergeAttributesByTimestamp(t *testing.T) {
	turns := []Turn{
		{SpeakerID: "SPEAKER_1", Start: 0.0, End: 4.0, Confidence: 0.9},
		{SpeakerID: "SPEAKER_2", Start: 4.0, End: 8.0, Confidence: 0.8},
	}
	segments := []transcript.Segment{
		seg("hello there", 1.0),
		seg("how are you", 3.5),
		seg("fine thanks", 5.0),
	}

	merged := Merge(turns, segments)
	if len(merged) != 2 {
		t.Fatalf("got %d merged segments, want 2", len(merged))
	}
	if merged[0].SpeakerID != "SPEAKER_1" || merged[0].Text != "hello there how are you" {
		t.Fatalf("merged[0] = %+v", merged[0])
	}
	if merged[1].SpeakerID != "SPEAKER_2" || merged[1].Text != "fine thanks" {
		t.Fatalf("merged[1] = %+v", merged[1])
	}
}

func TestMergeBoundaryGoesToFirstTurn(t *testing.T) {
	turns := []Turn{
		{SpeakerID: "SPEAKER_A", Start: 0.0, End: 2.0},
		{SpeakerID: "SPEAKER_B", Start: 2.0, End: 4.0},
	}
	segments := []transcript.Segment{seg("boundary", 2.0)}

	merged := Merge(turns, segments)
	if len(merged) != 1 {
		t.Fatalf("got %d merged segments, want 1", len(merged))
	}
	if merged[0].SpeakerID != "SPEAKER_A" {
		t.Fatalf("boundary segment went to %s, want SPEAKER_A", merged[0].SpeakerID)
	}
}

func TestMergeDropsEmptyTurnsAndOrphanSegments(t *testing.T) {
	turns := []Turn{
		{SpeakerID: "SPEAKER_1", Start: 0.0, End: 2.0},
		{SpeakerID: "SPEAKER_2", Start: 2.0, End: 4.0}, // nobody speaks here
	}
	segments := []transcript.Segment{
		seg("inside", 1.0),
		seg("orphan", 9.0), // outside every turn
	}

	merged := Merge(turns, segments)
	if len(merged) != 1 {
		t.Fatalf("got %d merged segments, want 1", len(merged))
	}
	if merged[0].Text != "inside" {
		t.Fatalf("merged text = %q", merged[0].Text)
	}
	for _, m := range merged {
		if strings.Contains(m.Text, "orphan") {
			t.Fatal("orphan segment was attributed to a turn")
		}
	}
}

func TestMergeIgnoresPartialSegments(t *testing.T) {
	turns := []Turn{{SpeakerID: "SPEAKER_1", Start: 0.0, End: 5.0}}
	segments := []transcript.Segment{
		{ID: uuid.New(), Text: "partial hypothesis", Timestamp: 1.0, Final: false},
		seg("final text", 2.0),
	}

	merged := Merge(turns, segments)
	if len(merged) != 1 || merged[0].Text != "final text" {
		t.Fatalf("merged = %+v", merged)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	if got := Merge(nil, []transcript.Segment{seg("text", 1.0)}); len(got) != 0 {
		t.Fatalf("merge with no turns = %+v", got)
	}
	if got := Merge([]Turn{{SpeakerID: "S", Start: 0, End: 1}}, nil); len(got) != 0 {
		t.Fatalf("merge with no segments = %+v", got)
	}
}

func TestStatistics(t *testing.T) {
	merged := []MergedSegment{
		{SpeakerID: "SPEAKER_1", Start: 0.0, End: 2.0, Text: "one two three"},
		{SpeakerID: "SPEAKER_1", Start: 4.0, End: 5.0, Text: "four five"},
		{SpeakerID: "SPEAKER_2", Start: 2.0, End: 3.0, Text: "six seven"},
	}

	stats := Statistics(merged)
	if len(stats) != 2 {
		t.Fatalf("got %d speakers, want 2", len(stats))
	}

	s1 := stats["SPEAKER_1"]
	if s1.TotalTime != 3.0 || s1.TurnCount != 2 || s1.WordsSpoken != 5 {
		t.Fatalf("SPEAKER_1 stats = %+v", s1)
	}
	if math.Abs(s1.Percentage-75.0) > 1e-9 {
		t.Fatalf("SPEAKER_1 percentage = %f, want 75", s1.Percentage)
	}

	s2 := stats["SPEAKER_2"]
	if s2.TotalTime != 1.0 || s2.TurnCount != 1 || s2.WordsSpoken != 2 {
		t.Fatalf("SPEAKER_2 stats = %+v", s2)
	}
	if math.Abs(s2.Percentage-25.0) > 1e-9 {
		t.Fatalf("SPEAKER_2 percentage = %f, want 25", s2.Percentage)
	}
}

func TestStatisticsZeroTotalTime(t *testing.T) {
	merged := []MergedSegment{
		{SpeakerID: "SPEAKER_1", Start: 1.0, End: 1.0, Text: "instant"},
	}
	stats := Statistics(merged)
	if got := stats["SPEAKER_1"].Percentage; got != 0 {
		t.Fatalf("percentage = %f, want 0 when total time is 0", got)
	}
}

func TestFormatLabeledMarksSpeakerChanges(t *testing.T) {
	merged := []MergedSegment{
		{SpeakerID: "SPEAKER_1", Text: "hello"},
		{SpeakerID: "SPEAKER_1", Text: "again"},
		{SpeakerID: "SPEAKER_2", Text: "hi"},
		{SpeakerID: "SPEAKER_1", Text: "back"},
	}

	got := FormatLabeled(merged)
	want := "[SPEAKER_1]: hello again\n[SPEAKER_2]: hi\n[SPEAKER_1]: back"
	if got != want {
		t.Fatalf("FormatLabeled = %q, want %q", got, want)
	}
}

func TestFormatLabeledEmpty(t *testing.T) {
	if got := FormatLabeled(nil); got != "" {
		t.Fatalf("FormatLabeled(nil) = %q, want empty", got)
	}
}

func TestSortAndFilter(t *testing.T) {
	turns := []Turn{
		{SpeakerID: "B", Start: 3.0, End: 5.0},
		{SpeakerID: "A", Start: 0.0, End: 2.0},
		{SpeakerID: "C", Start: 6.0, End: 6.2}, // below minimum
	}

	got := sortAndFilter(turns, 0.5)
	if len(got) != 2 {
		t.Fatalf("got %d turns, want 2", len(got))
	}
	if got[0].SpeakerID != "A" || got[1].SpeakerID != "B" {
		t.Fatalf("order = %s, %s", got[0].SpeakerID, got[1].SpeakerID)
	}
}
