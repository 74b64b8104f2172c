package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/user/meeting-scribe/internal/audio"
	"github.com/user/meeting-scribe/internal/config"
	"github.com/user/meeting-scribe/internal/diarize"
	"github.com/user/meeting-scribe/internal/diarize/pyannote"
	"github.com/user/meeting-scribe/internal/events"
	"github.com/user/meeting-scribe/internal/observability/metrics"
	"github.com/user/meeting-scribe/internal/session"
	"github.com/user/meeting-scribe/internal/store"
	"github.com/user/meeting-scribe/internal/stt/deepgram"
	"github.com/user/meeting-scribe/internal/stt/vosk"
	"github.com/user/meeting-scribe/internal/stt/whisper"
	"github.com/user/meeting-scribe/internal/summarise/gemini"
	"github.com/user/meeting-scribe/internal/transcript"
)

func main() {
	audioFile := flag.String("file", "", "WAV file to transcribe (16-bit PCM)")
	realtime := flag.Bool("realtime", false, "replay the file at recording speed")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	log.Info().Msg("Starting Meeting Scribe")

	if *audioFile == "" {
		log.Fatal().Msg("No input given, use -file <recording.wav>")
	}

	source, err := audio.NewFileSource(*audioFile, cfg.SliceSeconds, *realtime)
	if err != nil {
		log.Fatal().Err(err).Str("file", *audioFile).Msg("Failed to open audio file")
	}
	sampleRate := source.SampleRate()

	m := metrics.Default
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	sess, cleanup, err := buildSession(cfg, sampleRate, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build session")
	}
	defer cleanup()

	if err := sess.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start session")
	}

	log.Info().Str("session_id", sess.ID).Msg("Session running. Press Ctrl+C to stop early.")

	// Feed the file; a signal can cut replay short.
	replayDone := make(chan struct{})
	go func() {
		source.Run(sess.Recorder())
		close(replayDone)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-replayDone:
		log.Info().Msg("Input exhausted")
	case <-c:
		log.Info().Msg("Interrupt received")
	}

	log.Info().Msg("Stopping session...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := sess.Stop(ctx)
	if err != nil {
		if errors.Is(err, audio.ErrNoAudioRecorded) {
			log.Warn().Msg("Session produced no audio")
			return
		}
		log.Fatal().Err(err).Msg("Error during session stop")
	}

	printResult(result)
}

func buildSession(cfg *config.Config, sampleRate int, m *metrics.Metrics) (*session.Session, func(), error) {
	assembler, engineClose, err := buildAssembler(cfg, sampleRate, m)
	if err != nil {
		return nil, nil, err
	}

	fileStore, err := store.NewFileStore(cfg.OutputDir)
	if err != nil {
		engineClose()
		return nil, nil, fmt.Errorf("failed to create output store: %w", err)
	}

	recorder := audio.NewRecorder(sampleRate, fileStore.RecordingsDir())

	var primary diarize.Engine
	if cfg.PyannoteURL != "" {
		primary = pyannote.NewEngine(pyannote.Config{BaseURL: cfg.PyannoteURL})
	}
	diarizer := diarize.NewDiarizer(primary, diarize.NewEnergyDiarizer(cfg.MinTurnSeconds), cfg.MinTurnSeconds, m)

	publisher := events.New(&events.Config{
		Enabled:      cfg.KafkaEnabled,
		Brokers:      cfg.KafkaBrokers,
		TopicPartial: cfg.KafkaTopicPartial,
		TopicFinal:   cfg.KafkaTopicFinal,
	}, m)

	opts := []session.Option{
		session.WithUpdateCallback(logUpdate),
	}

	var summariser *gemini.Summariser
	if cfg.GenAIAPIKey != "" {
		summariser, err = gemini.NewSummariser(cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			engineClose()
			return nil, nil, fmt.Errorf("failed to create summariser: %w", err)
		}
		opts = append(opts, session.WithSummariser(summariser, cfg.SummaryMode))
	} else {
		log.Info().Msg("GENAI_API_KEY not set, meeting notes disabled")
	}

	sess := session.New(store.GenerateSessionID(), recorder, assembler, diarizer, fileStore, publisher, m, opts...)

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close publisher")
		}
		if summariser != nil {
			summariser.Close()
		}
		engineClose()
	}

	return sess, cleanup, nil
}

func buildAssembler(cfg *config.Config, sampleRate int, m *metrics.Metrics) (*transcript.Assembler, func(), error) {
	assemblerCfg := transcript.Config{
		SampleRate:     sampleRate,
		WindowSeconds:  cfg.WindowSeconds,
		ContextSeconds: cfg.ContextSeconds,
	}

	switch cfg.STTBackend {
	case "vosk":
		engine, err := vosk.NewEngine(cfg.VoskModelPath, sampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vosk engine: %w", err)
		}
		return transcript.NewStreaming(engine, assemblerCfg, m), closeEngine(engine), nil

	case "whisper":
		engine := whisper.NewEngine(whisper.Config{
			URL:      cfg.WhisperURL,
			Model:    cfg.WhisperModel,
			Language: cfg.Language,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if !engine.IsAvailable(ctx) {
			log.Warn().Str("url", cfg.WhisperURL).Msg("Whisper sidecar not responding, transcription may fail")
		}
		return transcript.NewBatch(engine, assemblerCfg, m), closeEngine(engine), nil

	case "deepgram":
		engine, err := deepgram.NewEngine(cfg.DeepgramAPIKey, cfg.DeepgramModel, cfg.Language, cfg.DeepgramPunctuate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create deepgram engine: %w", err)
		}
		return transcript.NewBatch(engine, assemblerCfg, m), closeEngine(engine), nil
	}

	return nil, nil, fmt.Errorf("unknown STT backend: %s", cfg.STTBackend)
}

func closeEngine(engine interface{ Close() error }) func() {
	return func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close STT engine")
		}
	}
}

func logUpdate(seg transcript.Segment) {
	if seg.Final {
		log.Info().Float64("at", seg.Timestamp).Msg(seg.Text)
	} else {
		log.Debug().Str("partial", seg.Text).Msg("Transcribing")
	}
}

func printResult(result *session.Result) {
	log.Info().
		Str("session_id", result.SessionID).
		Str("recording", result.RecordingPath).
		Str("transcript", result.TranscriptPath).
		Msg("Session complete")

	if result.MergedPath != "" {
		log.Info().Str("path", result.MergedPath).Msg("Speaker transcript saved")
	}
	if result.NotesPath != "" {
		log.Info().Str("path", result.NotesPath).Msg("Meeting notes saved")
	}

	fmt.Println()
	if len(result.Merged) > 0 {
		fmt.Println(diarize.FormatLabeled(result.Merged))
	} else {
		fmt.Println(result.FullText)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics endpoint failed")
	}
}

func setupLogging(level string) {
	// Setup zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	// Set log level
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("level", level).Msg("Logging configured")
}
