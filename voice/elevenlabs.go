package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ElevenLabsConfig configures the ElevenLabs text-to-speech client.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string // defaults to https://api.elevenlabs.io/v1
	Model   string // defaults to eleven_monolingual_v1
	Timeout time.Duration
}

// ElevenLabs synthesizes speech with the ElevenLabs HTTP API.
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	client *http.Client
	log    *zap.Logger
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Pitch           float64 `json:"pitch"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// NewElevenLabs creates an ElevenLabs synthesizer.
func NewElevenLabs(cfg ElevenLabsConfig, log *zap.Logger) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_monolingual_v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("elevenlabs"),
	}
}

// Synthesize implements Synthesizer. voice is a character name or an
// ElevenLabs voice id.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	voiceID, pitch := DefaultElevenLabsVoice, 1.0
	if c, ok := lookup(voice); ok {
		voiceID, pitch = c.ElevenLabsVoice, c.Pitch
	} else if v := strings.TrimSpace(voice); v != "" {
		voiceID = v
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Pitch:           pitch,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrSynthesisFailed, err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", strings.TrimRight(e.cfg.BaseURL, "/"), voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		speechRequestsTotal.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		speechRequestsTotal.WithLabelValues("elevenlabs", "error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.log.Warn("speech request rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", msg))
		return nil, fmt.Errorf("%w: status %d", ErrSynthesisFailed, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		speechRequestsTotal.WithLabelValues("elevenlabs", "error").Inc()
		return nil, fmt.Errorf("%w: reading audio: %v", ErrSynthesisFailed, err)
	}
	speechRequestsTotal.WithLabelValues("elevenlabs", "success").Inc()
	return audio, nil
}
