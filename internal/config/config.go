package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice client
type Config struct {
	// Server configuration (local control surface)
	Port string `envconfig:"PORT" default:"8090"`

	// Reader API configuration (remote document reader backend)
	ReaderAPIBaseURL string `envconfig:"READER_API_BASE_URL" default:"http://localhost:8000/api"`

	// Deepgram live transcription configuration.
	// An empty key means live transcription is unsupported on this install;
	// the client still runs, but the mic cannot be activated.
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Conversation configuration
	HistoryTurns      int    `envconfig:"HISTORY_TURNS" default:"6"` // Prior turns sent with each question
	ConfirmationWords string `envconfig:"CONFIRMATION_WORDS" default:"yes,yeah,no,cancel,stop,proceed"`

	// Audio configuration
	MicBufferSize  int `envconfig:"MIC_BUFFER_SIZE" default:"8192"`  // Ring buffer size for inbound mic audio, bytes
	MicSampleRate  int `envconfig:"MIC_SAMPLE_RATE" default:"16000"` // Sample rate of inbound linear16 mic audio
	CueSampleRate  int `envconfig:"CUE_SAMPLE_RATE" default:"16000"` // Sample rate for start/stop cue tones
	SpeechQueueLen int `envconfig:"SPEECH_QUEUE_LEN" default:"64"`   // Pending fragments per streaming session

	// Resilience configuration
	TTSBreakerMaxFailures  int `envconfig:"TTS_BREAKER_MAX_FAILURES" default:"5"`   // Synthesis failures before opening circuit
	TTSBreakerResetTimeout int `envconfig:"TTS_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	StatusPollMaxAttempts  int `envconfig:"STATUS_POLL_MAX_ATTEMPTS" default:"5"`   // Startup readiness poll attempts
	StatusPollBackoff      int `envconfig:"STATUS_POLL_BACKOFF" default:"500"`      // Initial poll backoff in milliseconds
	ReconnectMaxAttempts   int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`     // Recognition engine reconnection attempts
	ReconnectBackoff       int `envconfig:"RECONNECT_BACKOFF" default:"1000"`       // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables.
// It first attempts to load from .env file if it exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ReaderAPIBaseURL == "" {
		return nil, fmt.Errorf("READER_API_BASE_URL is required")
	}
	if cfg.HistoryTurns < 0 {
		return nil, fmt.Errorf("HISTORY_TURNS must not be negative")
	}

	return &cfg, nil
}

// Confirmations returns the normalized confirmation word list. Matching is
// case-insensitive with an optional trailing period, so the words are stored
// lowercased and bare.
func (c *Config) Confirmations() []string {
	parts := strings.Split(c.ConfirmationWords, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		w := strings.ToLower(strings.TrimSpace(p))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
