package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ChatModel)
	assert.Equal(t, "whisper-1", cfg.TranscribeModel)
	assert.Equal(t, "eleven_monolingual_v1", cfg.ElevenLabsModel)
	assert.Equal(t, "ash", cfg.RealtimeVoice)
	assert.Equal(t, 168*time.Hour, cfg.CookieTTL)
	assert.Equal(t, 2*time.Second, cfg.RecordInterval)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_EnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte("CHAT_MODEL=gpt-4o-mini\nSPEECH_PROVIDER=openai\n"), 0o644))
	t.Setenv("HTTP_ADDR", ":8080")
	// godotenv does not override variables that are already set.
	t.Setenv("CHAT_MODEL", "from-env")
	t.Setenv("SPEECH_PROVIDER", "")
	os.Unsetenv("SPEECH_PROVIDER")

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "from-env", cfg.ChatModel)
	assert.Equal(t, SpeechOpenAI, cfg.SpeechProvider)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{SpeechProvider: SpeechNone, PrefsStore: "memory", RecordInterval: time.Second}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"bad speech", func(c *Config) { c.SpeechProvider = "morse" }, true},
		{"postgres without url", func(c *Config) { c.PrefsStore = "postgres" }, true},
		{"postgres with url", func(c *Config) { c.PrefsStore = "postgres"; c.DatabaseURL = "postgres://x" }, false},
		{"bad store", func(c *Config) { c.PrefsStore = "cassette" }, true},
		{"zero interval", func(c *Config) { c.RecordInterval = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFields_HideSecrets(t *testing.T) {
	c := Config{OpenAIKey: "sk-secret", ElevenLabsKey: "el-secret"}
	for _, f := range c.Fields() {
		assert.NotContains(t, f.String, "secret", "field %s leaks a key", f.Key)
	}
}
