// Package whisper implements a batch transcription engine backed by a
// faster-whisper HTTP sidecar. Windows of PCM are wrapped as in-memory WAV
// and posted to the sidecar's /transcribe endpoint.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/user/meeting-scribe/internal/audio"
)

const (
	defaultURL     = "http://localhost:8387"
	defaultModel   = "base"
	defaultTimeout = 120 * time.Second
)

// Config holds connection settings for the whisper sidecar.
type Config struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

type Engine struct {
	cfg    Config
	client *http.Client
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Error    string `json:"error,omitempty"`
}

// NewEngine creates a whisper batch engine. Missing settings fall back to
// local-sidecar defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Engine{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsAvailable checks whether the sidecar is reachable.
func (e *Engine) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL+"/health", nil)
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

// Transcribe posts one audio window to the sidecar and returns its text.
func (e *Engine) Transcribe(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wavData, err := audio.EncodeWAV(pcm, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode window: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "window.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	_ = writer.WriteField("model", e.cfg.Model)
	if e.cfg.Language != "" {
		_ = writer.WriteField("language", e.cfg.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode whisper response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("whisper error: %s", result.Error)
	}

	return result.Text, nil
}

func (e *Engine) Close() error {
	return nil
}
