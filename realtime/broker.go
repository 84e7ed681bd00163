package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrSessionFailed wraps failures creating a realtime session.
var ErrSessionFailed = errors.New("realtime: session request failed")

// DefaultModel and DefaultVoice are used when the broker config leaves them empty.
const (
	DefaultModel = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice = "ash"
)

// BrokerConfig configures session creation.
type BrokerConfig struct {
	APIKey       string
	BaseURL      string // defaults to https://api.openai.com/v1
	Model        string
	Voice        string
	Instructions string
	Timeout      time.Duration
}

// Broker creates short-lived realtime sessions so a client can connect
// without holding the API key.
type Broker struct {
	cfg    BrokerConfig
	client *http.Client
	log    *zap.Logger
}

// Credential is an ephemeral session key.
type Credential struct {
	Value     string
	ExpiresAt time.Time
	// Session is the full response body, passed through to browser clients.
	Session json.RawMessage
}

// NewBroker creates a Broker.
func NewBroker(cfg BrokerConfig, log *zap.Logger) *Broker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log.Named("realtime_broker")}
}

// Model returns the realtime model sessions are created for.
func (b *Broker) Model() string { return b.cfg.Model }

type sessionRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
	Voice        string `json:"voice"`
}

type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// CreateSession requests a session. Empty instructions use the configured
// default.
func (b *Broker) CreateSession(ctx context.Context, instructions string) (Credential, error) {
	var cred Credential
	if instructions == "" {
		instructions = b.cfg.Instructions
	}
	body, err := json.Marshal(sessionRequest{Model: b.cfg.Model, Instructions: instructions, Voice: b.cfg.Voice})
	if err != nil {
		return cred, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	url := strings.TrimRight(b.cfg.BaseURL, "/") + "/realtime/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return cred, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return cred, fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return cred, fmt.Errorf("%w: reading response: %v", ErrSessionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		b.log.Warn("session request rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return cred, fmt.Errorf("%w: status %d - %s", ErrSessionFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var sr sessionResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return cred, fmt.Errorf("%w: decoding response: %v", ErrSessionFailed, err)
	}
	if sr.ClientSecret.Value == "" {
		return cred, fmt.Errorf("%w: response has no client secret", ErrSessionFailed)
	}
	cred.Value = sr.ClientSecret.Value
	if sr.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(sr.ClientSecret.ExpiresAt, 0)
	}
	cred.Session = raw
	return cred, nil
}
