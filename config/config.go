// Package config loads runtime settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/nathoo/tinytalkers/logger"
	"go.uber.org/zap"
)

// Speech providers.
const (
	SpeechElevenLabs = "elevenlabs"
	SpeechOpenAI     = "openai"
	SpeechNone       = "none"
)

// Config holds every runtime setting. API keys have no envconfig default and
// are never logged.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogFile     string `envconfig:"LOG_FILE"`

	GameDir string `envconfig:"GAME_DIR" default:"games/tinytown"`

	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	ChatModel       string        `envconfig:"CHAT_MODEL" default:"gpt-3.5-turbo"`
	QuestionModel   string        `envconfig:"QUESTION_MODEL" default:"gpt-4"`
	TranscribeModel string        `envconfig:"TRANSCRIBE_MODEL" default:"whisper-1"`
	TTSModel        string        `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice        string        `envconfig:"TTS_VOICE" default:"alloy"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	SpeechProvider  string `envconfig:"SPEECH_PROVIDER" default:"elevenlabs"`
	ElevenLabsKey   string `envconfig:"ELEVENLABS_API_KEY"`
	ElevenLabsURL   string `envconfig:"ELEVENLABS_URL" default:"https://api.elevenlabs.io/v1"`
	ElevenLabsModel string `envconfig:"ELEVENLABS_MODEL" default:"eleven_monolingual_v1"`

	RealtimeModel        string `envconfig:"REALTIME_MODEL" default:"gpt-4o-realtime-preview-2024-12-17"`
	RealtimeVoice        string `envconfig:"REALTIME_VOICE" default:"ash"`
	RealtimeURL          string `envconfig:"REALTIME_URL" default:"wss://api.openai.com/v1/realtime"`
	RealtimeInstructions string `envconfig:"REALTIME_INSTRUCTIONS" default:"You are a friendly teacher helping a young child practise a new language. Keep answers short and simple."`

	HTTPAddr    string        `envconfig:"HTTP_ADDR" default:":3000"`
	CORSOrigins []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CookieTTL   time.Duration `envconfig:"COOKIE_TTL" default:"168h"`

	PrefsStore  string `envconfig:"PREFS_STORE" default:"sqlite"` // postgres, sqlite or memory
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"tinytalkers.db"`

	RecordCommand  string        `envconfig:"RECORD_COMMAND" default:"arecord -q -f S16_LE -r 16000 -c 1 -t raw -"`
	RecordInterval time.Duration `envconfig:"RECORD_INTERVAL" default:"2s"`
}

// Load reads the given .env files (".env" when none are named) and then
// the environment. Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.SpeechProvider {
	case SpeechElevenLabs, SpeechOpenAI, SpeechNone:
	default:
		return fmt.Errorf("config: SPEECH_PROVIDER %q must be elevenlabs, openai or none", c.SpeechProvider)
	}
	switch c.PrefsStore {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: PREFS_STORE=postgres needs DATABASE_URL")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: PREFS_STORE %q must be postgres, sqlite or memory", c.PrefsStore)
	}
	if c.RecordInterval <= 0 {
		return fmt.Errorf("config: RECORD_INTERVAL must be positive")
	}
	return nil
}

// Logger returns the logger settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Encoding: c.LogEncoding, OutputPath: c.LogFile}
}

// Fields describes the configuration for a startup log line. Keys are
// reported as present or missing only.
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("game_dir", c.GameDir),
		zap.String("chat_model", c.ChatModel),
		zap.String("speech_provider", c.SpeechProvider),
		zap.String("prefs_store", c.PrefsStore),
		zap.String("http_addr", c.HTTPAddr),
		zap.Strings("cors_origins", c.CORSOrigins),
		zap.Bool("openai_key", c.OpenAIKey != ""),
		zap.Bool("elevenlabs_key", c.ElevenLabsKey != ""),
		zap.Bool("database_url", c.DatabaseURL != ""),
	}
}
