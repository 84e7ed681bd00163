package assist

import (
	"context"
	"time"

	"github.com/nathoo/tinytalkers/engine/events"
	"github.com/nathoo/tinytalkers/types"
	"go.uber.org/zap"
)

// Speaker voices NPC lines. Implementations must not block the caller.
type Speaker interface {
	Say(ctx context.Context, text, voice string)
}

// Reply is an explanation result addressed to the dialogue that asked.
type Reply struct {
	Session int
	Request int
	Text    string
	Err     error
}

// Services performs the side effects engine events ask for.
type Services struct {
	explainer Explainer
	speaker   Speaker
	timeout   time.Duration
	log       *zap.Logger
}

// NewServices wires collaborators. Either may be nil: speech is then
// skipped and explanations fail with ErrServiceUnavailable.
func NewServices(explainer Explainer, speaker Speaker, timeout time.Duration, log *zap.Logger) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	return &Services{explainer: explainer, speaker: speaker, timeout: timeout, log: log.Named("services")}
}

// Handle performs the side effect of one event. Only explain events produce
// a Reply; it may block for the duration of the request, so front ends call
// it off their render loop.
func (s *Services) Handle(ctx context.Context, e types.Event) (Reply, bool) {
	switch e.Type {
	case "speak":
		if s.speaker != nil {
			s.speaker.Say(ctx, events.String(e, "text"), events.String(e, "voice"))
		}
		return Reply{}, false
	case "explain":
		return s.explain(ctx, e), true
	}
	return Reply{}, false
}

func (s *Services) explain(ctx context.Context, e types.Event) Reply {
	r := Reply{Session: events.Int(e, "session"), Request: events.Int(e, "request")}
	if s.explainer == nil {
		r.Err = ErrServiceUnavailable
		return r
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	r.Text, r.Err = s.explainer.Explain(ctx,
		events.String(e, "question"), events.String(e, "context"), events.Bool(e, "followup"))
	if r.Err != nil {
		s.log.Warn("explain request degraded",
			zap.Int("session", r.Session), zap.Int("request", r.Request), zap.Error(r.Err))
	}
	return r
}

// Pending returns the explain events in evts. Front ends run each through
// Handle asynchronously and hand the Reply back to the engine.
func Pending(evts []types.Event) []types.Event {
	return events.Filter(evts, "explain")
}
