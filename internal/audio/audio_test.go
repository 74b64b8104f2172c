package audio

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func tone(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16((i%100)*50 - 2500)
	}
	return out
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := tone(1600)
	data, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error: %v", err)
	}

	if len(data) != 44+len(pcm)*2 {
		t.Fatalf("encoded size = %d, want %d", len(data), 44+len(pcm)*2)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", data[0:4], data[8:12])
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Fatalf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Fatalf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Fatalf("bits per sample = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(pcm)*2) {
		t.Fatalf("data size = %d, want %d", got, len(pcm)*2)
	}
}

func TestWAVFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	pcm := tone(16000)

	if err := WriteWAVFile(path, pcm, 16000); err != nil {
		t.Fatalf("WriteWAVFile() error: %v", err)
	}

	got, rate, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile() error: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", rate)
	}
	if len(got) != len(pcm) {
		t.Fatalf("got %d samples, want %d", len(got), len(pcm))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], pcm[i])
		}
	}
}

func TestReadWAVFileInvalid(t *testing.T) {
	if _, _, err := ReadWAVFile(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSliceDuration(t *testing.T) {
	s := Slice{Samples: make([]int16, 8000), SampleRate: 16000}
	if got := s.Duration(); got != 0.5 {
		t.Fatalf("Duration() = %f, want 0.5", got)
	}
	if got := (Slice{}).Duration(); got != 0 {
		t.Fatalf("zero slice Duration() = %f, want 0", got)
	}
}

func TestRecorderLifecycle(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(16000, dir)

	var mu sync.Mutex
	var received int
	err := rec.Start(func(s Slice) {
		mu.Lock()
		received += len(s.Samples)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if err := rec.Start(nil); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start() = %v, want ErrAlreadyRecording", err)
	}
	if !rec.Recording() {
		t.Fatal("Recording() = false while active")
	}

	for i := 0; i < 4; i++ {
		rec.Push(tone(4000))
	}

	path, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "meeting_") || !strings.HasSuffix(path, ".wav") {
		t.Fatalf("recording path = %q", path)
	}

	mu.Lock()
	got := received
	mu.Unlock()
	if got != 16000 {
		t.Fatalf("callback received %d samples, want 16000", got)
	}

	pcm, rate, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("saved recording unreadable: %v", err)
	}
	if rate != 16000 || len(pcm) != 16000 {
		t.Fatalf("saved recording: rate %d, %d samples", rate, len(pcm))
	}

	if rec.Recording() {
		t.Fatal("Recording() = true after stop")
	}
}

func TestRecorderStopWithoutAudio(t *testing.T) {
	rec := NewRecorder(16000, t.TempDir())

	if _, err := rec.Stop(); !errors.Is(err, ErrNoAudioRecorded) {
		t.Fatalf("Stop() while idle = %v, want ErrNoAudioRecorded", err)
	}

	if err := rec.Start(nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, ErrNoAudioRecorded) {
		t.Fatalf("Stop() with no samples = %v, want ErrNoAudioRecorded", err)
	}
}

func TestRecorderPushWhileIdle(t *testing.T) {
	rec := NewRecorder(16000, t.TempDir())
	rec.Push(tone(1000)) // must not panic or buffer

	if err := rec.Start(nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec.Push(tone(1000))
	path, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	pcm, _, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("saved recording unreadable: %v", err)
	}
	if len(pcm) != 1000 {
		t.Fatalf("recording has %d samples, want 1000 (idle push not dropped?)", len(pcm))
	}
}

func TestStalledConsumerCannotWriteIntoNextSession(t *testing.T) {
	dir := t.TempDir()
	rec := NewRecorder(16000, dir)
	rec.stopTimeout = 50 * time.Millisecond

	entered := make(chan struct{}, 8)
	block := make(chan struct{})
	err := rec.Start(func(Slice) {
		entered <- struct{}{}
		<-block
	})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// The consumer buffers the first slice, then blocks in the callback
	// with a second slice still queued.
	rec.Push(tone(1000))
	<-entered
	rec.Push(tone(1000))

	path, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	pcm, _, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("saved recording unreadable: %v", err)
	}
	if len(pcm) != 1000 {
		t.Fatalf("timed-out stop saved %d samples, want 1000", len(pcm))
	}

	if err := rec.Start(nil); err != nil {
		t.Fatalf("restart error: %v", err)
	}

	// Unblock the old consumer; it drains its leftover slice into the
	// stopped session's buffer, never into the new one.
	close(block)
	time.Sleep(100 * time.Millisecond)

	rec.Push(tone(500))
	path2, err := rec.Stop()
	if err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}
	pcm2, _, err := ReadWAVFile(path2)
	if err != nil {
		t.Fatalf("second recording unreadable: %v", err)
	}
	if len(pcm2) != 500 {
		t.Fatalf("second session saved %d samples, want 500 (stale slice leaked?)", len(pcm2))
	}
}

func TestFileSourceReplay(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.wav")
	if err := WriteWAVFile(src, tone(48000), 16000); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	fs, err := NewFileSource(src, 1.0, false)
	if err != nil {
		t.Fatalf("NewFileSource() error: %v", err)
	}
	if fs.SampleRate() != 16000 {
		t.Fatalf("SampleRate() = %d, want 16000", fs.SampleRate())
	}

	rec := NewRecorder(fs.SampleRate(), dir)
	var mu sync.Mutex
	var slices, samples int
	if err := rec.Start(func(s Slice) {
		mu.Lock()
		slices++
		samples += len(s.Samples)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	fs.Run(rec)

	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if slices != 3 {
		t.Fatalf("got %d slices, want 3", slices)
	}
	if samples != 48000 {
		t.Fatalf("got %d samples, want 48000", samples)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource("/does/not/exist.wav", 1.0, false); err == nil {
		t.Fatal("expected error for missing file")
	}
}
