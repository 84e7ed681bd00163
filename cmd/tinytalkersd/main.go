// tinytalkersd serves the TinyTalkers web API: chat explanations, speech,
// transcription, realtime session credentials and the child's preferences.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nathoo/tinytalkers/assist"
	"github.com/nathoo/tinytalkers/config"
	"github.com/nathoo/tinytalkers/logger"
	"github.com/nathoo/tinytalkers/prefs"
	"github.com/nathoo/tinytalkers/realtime"
	"github.com/nathoo/tinytalkers/server"
	"github.com/nathoo/tinytalkers/voice"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logger())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting tinytalkersd", cfg.Fields()...)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := prefs.Open(ctx, prefs.Options{
		Backend:     cfg.PrefsStore,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	}, log)
	if err != nil {
		return fmt.Errorf("opening preferences store: %w", err)
	}
	defer store.Close()

	deps := server.Deps{
		Prefs:       store,
		CORSOrigins: cfg.CORSOrigins,
		CookieTTL:   cfg.CookieTTL,
		Log:         log,
	}
	client := assist.NewClient(assist.ClientConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.RequestTimeout,
	})
	if client != nil {
		deps.Explainer = assist.NewChatExplainer(client, cfg.ChatModel, log)
		deps.Generator = assist.NewGenerator(client, cfg.QuestionModel, log)
		deps.Transcriber = voice.NewTranscriber(client, cfg.TranscribeModel, log)
		deps.Sessions = realtime.NewBroker(realtime.BrokerConfig{
			APIKey:       cfg.OpenAIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Model:        cfg.RealtimeModel,
			Voice:        cfg.RealtimeVoice,
			Instructions: cfg.RealtimeInstructions,
			Timeout:      cfg.RequestTimeout,
		}, log)
	} else {
		log.Warn("OPENAI_API_KEY not set, AI routes will answer 503")
	}
	switch {
	case cfg.SpeechProvider == config.SpeechElevenLabs && cfg.ElevenLabsKey != "":
		deps.Speech = voice.NewElevenLabs(voice.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsKey,
			BaseURL: cfg.ElevenLabsURL,
			Model:   cfg.ElevenLabsModel,
			Timeout: cfg.RequestTimeout,
		}, log)
	case cfg.SpeechProvider == config.SpeechOpenAI && client != nil:
		deps.Speech = voice.NewOpenAISpeech(client, cfg.TTSModel, cfg.TTSVoice, log)
	default:
		log.Warn("no speech provider configured, /api/speech will answer 503")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
