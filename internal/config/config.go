package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// STT Backend
	STTBackend string // "vosk", "whisper" or "deepgram"

	// Vosk settings
	VoskModelPath string

	// Whisper sidecar settings
	WhisperURL   string
	WhisperModel string

	// Deepgram settings
	DeepgramAPIKey    string
	DeepgramModel     string
	DeepgramPunctuate bool

	Language string

	// Buffering policy
	SampleRate     int
	SliceSeconds   float64
	WindowSeconds  float64
	ContextSeconds float64

	// Diarization
	PyannoteURL    string // empty disables the primary engine
	MinTurnSeconds float64

	// Gemini settings
	GenAIAPIKey string // empty disables note generation
	GenAIModel  string
	SummaryMode string

	// Kafka transcript events
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaTopicPartial string
	KafkaTopicFinal   string

	// Observability
	MetricsAddr string // empty disables the metrics endpoint
	LogLevel    string

	OutputDir string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file found, using environment variables only")
	}

	cfg := &Config{
		STTBackend: getEnvOrDefault("STT_BACKEND", "vosk"),

		VoskModelPath: getEnvOrDefault("VOSK_MODEL_PATH", "./models/vosk/en"),

		WhisperURL:   getEnvOrDefault("WHISPER_URL", "http://localhost:8387"),
		WhisperModel: getEnvOrDefault("WHISPER_MODEL", "base"),

		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:     getEnvOrDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramPunctuate: getBoolEnvOrDefault("DEEPGRAM_PUNCTUATE", true),

		Language: getEnvOrDefault("LANGUAGE", "en"),

		SampleRate:     getIntEnvOrDefault("SAMPLE_RATE", 16000),
		SliceSeconds:   getFloatEnvOrDefault("SLICE_SECONDS", 1.0),
		WindowSeconds:  getFloatEnvOrDefault("WINDOW_SECONDS", 5.0),
		ContextSeconds: getFloatEnvOrDefault("CONTEXT_SECONDS", 1.0),

		PyannoteURL:    os.Getenv("PYANNOTE_URL"),
		MinTurnSeconds: getFloatEnvOrDefault("MIN_TURN_SECONDS", 0.5),

		GenAIAPIKey: os.Getenv("GENAI_API_KEY"),
		GenAIModel:  getEnvOrDefault("GENAI_MODEL", "gemini-1.5-flash"),
		SummaryMode: getEnvOrDefault("SUMMARY_MODE", "standard"),

		KafkaEnabled:      getBoolEnvOrDefault("KAFKA_ENABLED", false),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopicPartial: getEnvOrDefault("KAFKA_TOPIC_PARTIAL", "meeting.transcript.partial"),
		KafkaTopicFinal:   getEnvOrDefault("KAFKA_TOPIC_FINAL", "meeting.transcript.final"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),

		OutputDir: getEnvOrDefault("OUTPUT_DIR", "outputs"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.STTBackend {
	case "vosk":
		if c.VoskModelPath == "" {
			return fmt.Errorf("VOSK_MODEL_PATH is required when using vosk backend")
		}
	case "whisper":
		// sidecar defaults are fine
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when using deepgram backend")
		}
	default:
		return fmt.Errorf("STT_BACKEND must be 'vosk', 'whisper' or 'deepgram'")
	}

	if c.WindowSeconds <= 0 || c.ContextSeconds < 0 || c.ContextSeconds >= c.WindowSeconds {
		return fmt.Errorf("CONTEXT_SECONDS must be in [0, WINDOW_SECONDS)")
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
