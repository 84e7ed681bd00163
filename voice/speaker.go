package voice

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Speaker plays NPC lines one at a time. A new line interrupts the one
// playing; a synthesis result that arrives after a newer request is
// discarded.
type Speaker struct {
	synth Synthesizer
	out   Output
	log   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	current Playback
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSpeaker creates a Speaker. out may be nil, in which case clips are
// synthesized but not played.
func NewSpeaker(synth Synthesizer, out Output, log *zap.Logger) *Speaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Speaker{synth: synth, out: out, log: log.Named("speaker")}
}

// Say speaks text in the background. Failures are logged.
func (s *Speaker) Say(ctx context.Context, text, voice string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Speak(context.WithoutCancel(ctx), text, voice)
	}()
}

// Speak synthesizes text and starts playing it, stopping whatever was
// playing. It returns once playback has started.
func (s *Speaker) Speak(ctx context.Context, text, voice string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.stopLocked()
	s.mu.Unlock()

	data, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		s.log.Warn("speech synthesis failed", zap.String("voice", voice), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("dropping stale speech", zap.Uint64("generation", gen))
		return nil
	}
	if s.out == nil {
		return nil
	}
	p, err := s.out.Play(data)
	if err != nil {
		s.log.Warn("speech playback failed", zap.Error(err))
		return err
	}
	stop := make(chan struct{})
	s.current, s.stop = p, stop
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		waitDone(p, stop)
		s.mu.Lock()
		if s.current == p {
			s.current, s.stop = nil, nil
		}
		s.mu.Unlock()
	}()
	return nil
}

// Speaking reports whether a clip is playing.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsPlaying()
}

// Stop silences the current clip and invalidates pending requests.
func (s *Speaker) Stop() {
	s.mu.Lock()
	s.gen++
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Speaker) stopLocked() {
	if s.current == nil {
		return
	}
	s.current.Stop()
	close(s.stop)
	s.current, s.stop = nil, nil
}

// Wait blocks until pending requests and the current clip end.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

// Close stops playback and waits for the watcher to exit.
func (s *Speaker) Close() {
	s.Stop()
	s.wg.Wait()
}
