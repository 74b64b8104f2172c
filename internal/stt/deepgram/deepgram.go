// Package deepgram implements a batch transcription engine backed by the
// Deepgram prerecorded HTTP API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/audio"
)

const baseURL = "https://api.deepgram.com/v1/listen"

type Engine struct {
	apiKey    string
	model     string
	punctuate bool
	language  string
	client    *http.Client
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// NewEngine creates a Deepgram batch engine. The API key is required.
func NewEngine(apiKey, model, language string, punctuate bool) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	return &Engine{
		apiKey:    apiKey,
		model:     model,
		punctuate: punctuate,
		language:  language,
		client:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Transcribe sends one audio window to Deepgram and returns its transcript.
func (e *Engine) Transcribe(ctx context.Context, pcm []int16, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wavData, err := audio.EncodeWAV(pcm, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode window: %w", err)
	}

	params := url.Values{}
	if e.model != "" {
		params.Set("model", e.model)
	}
	params.Set("punctuate", strconv.FormatBool(e.punctuate))
	params.Set("smart_format", "true")
	if e.language != "" {
		params.Set("language", e.language)
	}

	fullURL := baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(wavData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+e.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	log.Debug().
		Str("model", e.model).
		Int("audio_size_bytes", len(wavData)).
		Msg("Sending window to Deepgram")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(body))
	}

	var result deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode deepgram response: %w", err)
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return result.Results.Channels[0].Alternatives[0].Transcript, nil
}

func (e *Engine) Close() error {
	return nil
}
