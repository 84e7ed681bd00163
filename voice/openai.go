package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAISpeech synthesizes speech with the OpenAI text-to-speech endpoint.
type OpenAISpeech struct {
	client *openaigo.Client
	model  string
	voice  string
	log    *zap.Logger
}

// NewOpenAISpeech creates an OpenAI synthesizer. defaultVoice is used for
// names that are not known characters.
func NewOpenAISpeech(client *openaigo.Client, model, defaultVoice string, log *zap.Logger) *OpenAISpeech {
	if model == "" {
		model = string(openaigo.TTSModel1)
	}
	if defaultVoice == "" {
		defaultVoice = string(openaigo.VoiceAlloy)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAISpeech{client: client, model: model, voice: defaultVoice, log: log.Named("openai_speech")}
}

// Synthesize implements Synthesizer.
func (o *OpenAISpeech) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	v := o.voice
	if c, ok := lookup(voice); ok {
		v = c.OpenAIVoice
	}
	resp, err := o.client.CreateSpeech(ctx, openaigo.CreateSpeechRequest{
		Model:          openaigo.SpeechModel(o.model),
		Input:          text,
		Voice:          openaigo.SpeechVoice(v),
		ResponseFormat: openaigo.SpeechResponseFormatMp3,
	})
	if err != nil {
		speechRequestsTotal.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		speechRequestsTotal.WithLabelValues("openai", "error").Inc()
		return nil, fmt.Errorf("%w: reading audio: %v", ErrSynthesisFailed, err)
	}
	speechRequestsTotal.WithLabelValues("openai", "success").Inc()
	return audio, nil
}

// Transcriber converts recorded speech into text with Whisper.
type Transcriber struct {
	client *openaigo.Client
	model  string
	log    *zap.Logger
}

// NewTranscriber creates a Transcriber. An empty model uses whisper-1.
func NewTranscriber(client *openaigo.Client, model string, log *zap.Logger) *Transcriber {
	if model == "" {
		model = openaigo.Whisper1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Transcriber{client: client, model: model, log: log.Named("transcriber")}
}

// Transcribe sends one audio file and returns the recognized text. name is
// the file name reported to the service; its extension selects the format.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, name string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: no audio", ErrTranscriptionFailed)
	}
	resp, err := t.client.CreateTranscription(ctx, openaigo.AudioRequest{
		Model:    t.model,
		FilePath: name,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		speechRequestsTotal.WithLabelValues("whisper", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	speechRequestsTotal.WithLabelValues("whisper", "success").Inc()
	return strings.TrimSpace(resp.Text), nil
}
