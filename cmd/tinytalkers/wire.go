package main

import (
	"context"
	"errors"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/config"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/voice"
)

// wiring holds the collaborators built from configuration. Anything that
// could not be built is nil and the game runs without it.
type wiring struct {
	client   *openaigo.Client
	services *assist.Services
	speaker  *voice.Speaker
	recorder *voice.Recorder
	display  *realtime.Display
	prefs    prefs.Store
	log      *zap.Logger
}

func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) *wiring {
	w := &wiring{
		log:     log,
		display: realtime.NewDisplay(nil),
		client: assist.NewClient(assist.ClientConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.RequestTimeout,
		}),
	}
	if w.client == nil {
		log.Warn("OPENAI_API_KEY not set, explanations and voice answers are offline")
	}

	var explainer assist.Explainer
	if w.client != nil {
		explainer = assist.NewChatExplainer(w.client, cfg.ChatModel, log)
		t := voice.NewTranscriber(w.client, cfg.TranscribeModel, log)
		w.recorder = &voice.Recorder{
			Source:     voice.CommandSource{Command: cfg.RecordCommand},
			Transcribe: t.Transcribe,
			Interval:   cfg.RecordInterval,
			Log:        log,
		}
	}

	if synth := w.synthesizer(cfg); synth != nil {
		w.speaker = voice.NewSpeaker(synth, voice.NewEbitenOutput(1), log)
	}
	var speaker assist.Speaker
	if w.speaker != nil {
		speaker = w.speaker
	}
	w.services = assist.NewServices(explainer, speaker, cfg.RequestTimeout, log)

	store, err := prefs.Open(ctx, prefs.Options{
		Backend:     cfg.PrefsStore,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	}, log)
	if err != nil {
		log.Warn("preferences store unavailable, keeping them in memory", zap.Error(err))
		store = prefs.NewMemoryStore()
	}
	w.prefs = store
	return w
}

func (w *wiring) synthesizer(cfg *config.Config) voice.Synthesizer {
	switch cfg.SpeechProvider {
	case config.SpeechElevenLabs:
		if cfg.ElevenLabsKey == "" {
			w.log.Warn("ELEVENLABS_API_KEY not set, NPCs will not speak")
			return nil
		}
		return voice.NewElevenLabs(voice.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsKey,
			BaseURL: cfg.ElevenLabsURL,
			Model:   cfg.ElevenLabsModel,
			Timeout: cfg.RequestTimeout,
		}, w.log)
	case config.SpeechOpenAI:
		if w.client == nil {
			return nil
		}
		return voice.NewOpenAISpeech(w.client, cfg.TTSModel, cfg.TTSVoice, w.log)
	}
	return nil
}

// startRealtime connects the voice assistant in the background. Failures
// are logged; the game carries on without it.
func (w *wiring) startRealtime(ctx context.Context, cfg *config.Config) {
	if cfg.OpenAIKey == "" {
		w.log.Warn("realtime assistant needs OPENAI_API_KEY")
		return
	}
	broker := realtime.NewBroker(realtime.BrokerConfig{
		APIKey:       cfg.OpenAIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		Model:        cfg.RealtimeModel,
		Voice:        cfg.RealtimeVoice,
		Instructions: cfg.RealtimeInstructions,
		Timeout:      cfg.RequestTimeout,
	}, w.log)
	go func() {
		cred, err := broker.CreateSession(ctx, "")
		if err != nil {
			w.log.Warn("realtime session failed", zap.Error(err))
			return
		}
		c, err := realtime.Dial(ctx, cfg.RealtimeURL, broker.Model(), cred.Value, w.display, w.log)
		if err != nil {
			w.log.Warn("realtime connect failed", zap.Error(err))
			return
		}
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn("realtime assistant stopped", zap.Error(err))
		}
	}()
}

func (w *wiring) Close() {
	if w.recorder != nil {
		w.recorder.Stop()
	}
	if w.speaker != nil {
		w.speaker.Close()
	}
	if w.prefs != nil {
		if err := w.prefs.Close(); err != nil {
			w.log.Warn("closing preferences store", zap.Error(err))
		}
	}
}
