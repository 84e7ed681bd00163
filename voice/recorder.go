package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PCM format produced by the default record command.
const (
	RecordSampleRate = 16000
	RecordChannels   = 1
	recordBits       = 16
)

// ErrRecording is returned when the microphone cannot be opened.
var ErrRecording = errors.New("voice: recording failed")

// Source opens a stream of raw little-endian 16-bit PCM.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource records by running an external program that writes PCM to
// stdout, such as arecord.
type CommandSource struct {
	Command string
}

// Open starts the command. Closing the reader stops it.
func (c CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty record command", ErrRecording)
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrRecording, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrRecording, err)
	}
	return &commandStream{ReadCloser: out, cmd: cmd, cancel: cancel}, nil
}

type commandStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

func (s *commandStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.cmd.Wait()
	})
	return nil
}

// TranscribeFunc turns a WAV clip into text.
type TranscribeFunc func(ctx context.Context, wav []byte, name string) (string, error)

// Recorder captures the microphone while active and sends the audio for
// transcription every interval. Recognized text is delivered to OnText.
type Recorder struct {
	Source     Source
	Transcribe TranscribeFunc
	Interval   time.Duration
	OnText     func(string)
	Log        *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Active reports whether the recorder is capturing.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start opens the source and begins capturing. Starting a running recorder
// is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := r.Source.Open(ctx)
	if err != nil {
		cancel()
		return err
	}
	r.running, r.cancel, r.done = true, cancel, make(chan struct{})
	go r.run(ctx, stream, interval, log.Named("recorder"), r.done)
	return nil
}

// Stop ends capture, transcribes what is left and releases the source. It
// is safe to call more than once.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Recorder) run(ctx context.Context, stream io.ReadCloser, interval time.Duration, log *zap.Logger, done chan struct{}) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		if r.done == done {
			r.running = false
			r.cancel()
		}
		r.mu.Unlock()
	}()

	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		chunk := make([]byte, 4096)
		for {
			n, err := stream.Read(chunk)
			if n > 0 {
				mu.Lock()
				buf.Write(chunk[:n])
				mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()

	flush := func(fctx context.Context) {
		mu.Lock()
		pcm := bytes.Clone(buf.Bytes())
		buf.Reset()
		mu.Unlock()
		// Less than a tenth of a second is noise.
		if len(pcm) < RecordSampleRate*RecordChannels*recordBits/8/10 {
			return
		}
		text, err := r.Transcribe(fctx, EncodeWAV(pcm, RecordSampleRate, RecordChannels), "speech.wav")
		if err != nil {
			log.Warn("transcription failed", zap.Error(err))
			return
		}
		if text != "" && r.OnText != nil {
			r.OnText(text)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			flush(ctx)
		case <-readDone:
			_ = stream.Close()
			flush(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			_ = stream.Close()
			<-readDone
			flush(context.WithoutCancel(ctx))
			return
		}
	}
}

// EncodeWAV wraps 16-bit PCM in a RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	var b bytes.Buffer
	blockAlign := channels * recordBits / 8
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(recordBits))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
