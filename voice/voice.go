// Package voice turns NPC lines into speech and the child's speech into
// text: synthesis, playback, transcription and microphone recording.
package voice

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrSynthesisFailed wraps failures from a speech provider.
var ErrSynthesisFailed = errors.New("voice: synthesis failed")

// ErrTranscriptionFailed wraps failures from the transcription service.
var ErrTranscriptionFailed = errors.New("voice: transcription failed")

var speechRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tinytalkers_speech_requests_total",
		Help: "Total number of speech synthesis and transcription requests.",
	},
	[]string{"provider", "status"},
)

// Synthesizer renders text as MP3 audio in the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Character describes how one NPC sounds on each provider.
type Character struct {
	ElevenLabsVoice string
	OpenAIVoice     string
	Pitch           float64
}

// DefaultElevenLabsVoice is used for anyone without a voice of their own.
const DefaultElevenLabsVoice = "ThT5KcBeYPX3keUQqHPh"

// Characters maps NPC voice names to provider voices.
var Characters = map[string]Character{
	"mother":    {ElevenLabsVoice: "pNInz6obpgDQGcFmaJgB", OpenAIVoice: "nova", Pitch: 1.3},
	"father":    {ElevenLabsVoice: "VR6AewLTigWG4xSOukaG", OpenAIVoice: "onyx", Pitch: 0.7},
	"brother":   {ElevenLabsVoice: DefaultElevenLabsVoice, OpenAIVoice: "echo", Pitch: 1.1},
	"neighbour": {ElevenLabsVoice: DefaultElevenLabsVoice, OpenAIVoice: "fable", Pitch: 0.9},
}

// lookup resolves a voice name. Unknown names are treated as raw provider
// voice ids at normal pitch.
func lookup(voice string) (Character, bool) {
	c, ok := Characters[strings.ToLower(strings.TrimSpace(voice))]
	return c, ok
}
