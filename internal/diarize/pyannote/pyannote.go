// Package pyannote implements a diarization engine backed by a pyannote
// HTTP sidecar. The saved recording is posted as multipart form data and
// the sidecar returns speaker-attributed time intervals.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/user/meeting-scribe/internal/diarize"
)

const (
	defaultURL     = "http://localhost:8388"
	defaultTimeout = 300 * time.Second
)

// Config holds connection settings for the pyannote sidecar.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Engine struct {
	cfg    Config
	client *http.Client
}

type pyannoteResponse struct {
	Segments []pyannoteSegment `json:"segments"`
	Error    string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID  string  `json:"speaker_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
}

// NewEngine creates a pyannote diarization engine.
func NewEngine(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsAvailable checks if the sidecar is reachable.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize posts the recording to the sidecar and returns its speaker turns.
func (e *Engine) Diarize(ctx context.Context, wavPath string) ([]diarize.Turn, error) {
	audioData, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarization request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, string(body))
	}

	var result pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode diarization response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", result.Error)
	}

	turns := make([]diarize.Turn, len(result.Segments))
	for i, seg := range result.Segments {
		conf := seg.Confidence
		if conf == 0 {
			conf = 1.0
		}
		turns[i] = diarize.Turn{
			SpeakerID:  seg.SpeakerID,
			Start:      seg.StartTime,
			End:        seg.EndTime,
			Confidence: conf,
		}
	}
	return turns, nil
}
