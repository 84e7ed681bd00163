package voice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
)

// SampleRate is the playback sample rate for decoded speech.
const SampleRate = 44100

// Playback is one clip being played.
type Playback interface {
	IsPlaying() bool
	Stop()
}

// Output plays MP3 clips.
type Output interface {
	Play(mp3Data []byte) (Playback, error)
}

// EbitenOutput plays audio through the ebiten audio context.
type EbitenOutput struct {
	ctx    *audio.Context
	volume float64
}

// NewEbitenOutput returns an output on the process-wide audio context,
// creating it on first use.
func NewEbitenOutput(volume float64) *EbitenOutput {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(SampleRate)
	}
	if volume <= 0 || volume > 1 {
		volume = 1
	}
	return &EbitenOutput{ctx: ctx, volume: volume}
}

// Play decodes and starts a clip.
func (o *EbitenOutput) Play(mp3Data []byte) (Playback, error) {
	stream, err := mp3.DecodeWithSampleRate(SampleRate, bytes.NewReader(mp3Data))
	if err != nil {
		return nil, fmt.Errorf("decoding speech: %w", err)
	}
	p, err := o.ctx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	p.SetVolume(o.volume)
	p.Play()
	return &ebitenPlayback{p: p}, nil
}

type ebitenPlayback struct {
	p *audio.Player
}

func (e *ebitenPlayback) IsPlaying() bool { return e.p.IsPlaying() }

func (e *ebitenPlayback) Stop() {
	e.p.Pause()
	_ = e.p.Close()
}

// waitDone polls until the clip finishes or stop is closed.
func waitDone(p Playback, stop <-chan struct{}) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for p.IsPlaying() {
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}
