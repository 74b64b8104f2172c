package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/diarize"
	"github.com/user/meeting-scribe/internal/transcript"
)

// FileStore persists session artifacts: raw transcripts as JSONL, merged
// speaker-labeled transcripts and generated notes as Markdown.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	for _, dir := range []string{"transcripts", "notes"} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &FileStore{baseDir: baseDir}, nil
}

// RecordingsDir returns the directory recordings are saved under.
func (s *FileStore) RecordingsDir() string {
	return filepath.Join(s.baseDir, "recordings")
}

// SaveTranscript writes the final segments as JSON lines.
func (s *FileStore) SaveTranscript(sessionID string, segments []transcript.Segment) (string, error) {
	path := filepath.Join(s.baseDir, "transcripts", fmt.Sprintf("%s.jsonl", sessionID))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, seg := range segments {
		if err := encoder.Encode(seg); err != nil {
			return "", fmt.Errorf("failed to encode segment: %w", err)
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Str("file", path).
		Int("segments", len(segments)).
		Msg("Saved transcript")

	return path, nil
}

// LoadTranscript reads final segments back from a session's JSONL file.
func (s *FileStore) LoadTranscript(sessionID string) ([]transcript.Segment, error) {
	path := filepath.Join(s.baseDir, "transcripts", fmt.Sprintf("%s.jsonl", sessionID))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var segments []transcript.Segment
	decoder := json.NewDecoder(file)
	for decoder.More() {
		var seg transcript.Segment
		if err := decoder.Decode(&seg); err != nil {
			return nil, fmt.Errorf("failed to decode segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// SaveMerged writes the speaker-labeled transcript with a participation
// table as Markdown.
func (s *FileStore) SaveMerged(sessionID string, merged []diarize.MergedSegment, stats map[string]diarize.SpeakerStats) (string, error) {
	path := filepath.Join(s.baseDir, "transcripts", fmt.Sprintf("%s_speakers.md", sessionID))

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Meeting Transcript - %s\n\n", sessionID))

	if len(stats) > 0 {
		b.WriteString("## Speakers\n\n")
		b.WriteString("| Speaker | Speaking Time | Turns | Words | Share |\n")
		b.WriteString("|---------|---------------|-------|-------|-------|\n")

		ids := make([]string, 0, len(stats))
		for id := range stats {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			st := stats[id]
			b.WriteString(fmt.Sprintf("| %s | %.1fs | %d | %d | %.1f%% |\n",
				id, st.TotalTime, st.TurnCount, st.WordsSpoken, st.Percentage))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Transcript\n\n")
	b.WriteString(diarize.FormatLabeled(merged))
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write merged transcript: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("file", path).
		Int("segments", len(merged)).
		Msg("Saved merged transcript")

	return path, nil
}

// SaveNotes writes generated meeting notes as Markdown.
func (s *FileStore) SaveNotes(sessionID string, notes string) (string, error) {
	path := filepath.Join(s.baseDir, "notes", fmt.Sprintf("%s.md", sessionID))

	if err := os.WriteFile(path, []byte(notes), 0644); err != nil {
		return "", fmt.Errorf("failed to write notes file: %w", err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("file", path).
		Int("size", len(notes)).
		Msg("Saved notes")

	return path, nil
}

// GenerateSessionID derives a session id from the wall clock.
func GenerateSessionID() string {
	return fmt.Sprintf("session_%s", time.Now().Format("20060102_150405"))
}
