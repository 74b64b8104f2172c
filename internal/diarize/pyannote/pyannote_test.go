package pyannote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav payload"), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestDiarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("path = %s, want /diarize", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Fatalf("missing audio part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segments": [
			{"speaker_id": "SPEAKER_00", "start_time": 0.0, "end_time": 3.2, "confidence": 0.95},
			{"speaker_id": "SPEAKER_01", "start_time": 3.2, "end_time": 6.0}
		]}`))
	}))
	defer server.Close()

	engine := NewEngine(Config{BaseURL: server.URL})
	turns, err := engine.Diarize(context.Background(), writeTempWAV(t))
	if err != nil {
		t.Fatalf("Diarize() error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].SpeakerID != "SPEAKER_00" || turns[0].Confidence != 0.95 {
		t.Fatalf("turns[0] = %+v", turns[0])
	}
	// Missing confidence defaults to full confidence.
	if turns[1].Confidence != 1.0 {
		t.Fatalf("turns[1].Confidence = %f, want 1.0", turns[1].Confidence)
	}
}

func TestDiarizeSidecarError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"segments": [], "error": "pipeline not loaded"}`))
	}))
	defer server.Close()

	engine := NewEngine(Config{BaseURL: server.URL})
	if _, err := engine.Diarize(context.Background(), writeTempWAV(t)); err == nil {
		t.Fatal("expected sidecar error")
	}
}

func TestDiarizeMissingFile(t *testing.T) {
	engine := NewEngine(Config{BaseURL: "http://unreachable.invalid"})
	if _, err := engine.Diarize(context.Background(), "/does/not/exist.wav"); err == nil {
		t.Fatal("expected error for missing recording")
	}
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	engine := NewEngine(Config{BaseURL: server.URL})
	if !engine.IsAvailable(context.Background()) {
		t.Fatal("IsAvailable = false, want true")
	}
}
