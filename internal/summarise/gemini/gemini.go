// Package gemini generates structured meeting notes from a speaker-labeled
// transcript using the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/user/meeting-scribe/internal/diarize"
)

type Summariser struct {
	client *genai.Client
	model  string
}

func NewSummariser(apiKey, model string) (*Summariser, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Summariser{client: client, model: model}, nil
}

// Summarise produces Markdown meeting notes from the labeled transcript.
// The mode tunes tone and level of detail.
func (s *Summariser) Summarise(ctx context.Context, labeled string, stats map[string]diarize.SpeakerStats, mode string) (string, error) {
	if strings.TrimSpace(labeled) == "" {
		return "# Meeting Notes\n\nNo transcript available.", nil
	}

	prompt := s.buildPrompt(labeled, stats, mode)

	genModel := s.client.GenerativeModel(s.model)
	resp, err := genModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no summary generated")
	}

	var summary strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			summary.WriteString(string(text))
		}
	}

	log.Info().
		Int("transcript_length", len(labeled)).
		Int("summary_length", summary.Len()).
		Msg("Generated meeting summary")

	return summary.String(), nil
}

func (s *Summariser) buildPrompt(labeled string, stats map[string]diarize.SpeakerStats, mode string) string {
	var style string
	switch mode {
	case "brief":
		style = "Be extremely concise. Only capture the most important points."
	case "verbose":
		style = "Provide a very detailed summary with as much context as possible."
	case "casual":
		style = "Use a friendly and informal tone in the notes."
	case "formal":
		style = "Use a very formal tone when writing the notes."
	default:
		style = "Be concise but comprehensive."
	}

	var participation strings.Builder
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := stats[id]
		participation.WriteString(fmt.Sprintf("- %s: %.1fs speaking time (%.1f%%), %d turns, %d words\n",
			id, st.TotalTime, st.Percentage, st.TurnCount, st.WordsSpoken))
	}

	return fmt.Sprintf(`You are a meeting notetaker. %s Given a diarized transcript, produce:

1) **Summary** - bullet point summary (max 12 bullets)
2) **Decisions** - key decisions made during the meeting
3) **Action Items** - tasks with assignee (if mentioned) and due date (if stated)
4) **Open Questions** - unresolved questions or topics

Format the output as clean Markdown.

**PARTICIPATION:**
%s
**TRANSCRIPT:**
%s

**MEETING NOTES:**`, style, participation.String(), labeled)
}

func (s *Summariser) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
