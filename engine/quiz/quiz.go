// Package quiz implements the per-NPC question dialogue: answer checking,
// lives, delayed transitions and the assist popup with follow-up chat.
//
// A Session is ephemeral. It is created when the player talks to an NPC and
// is finished once it reaches Closed. Quiz progress lives outside the session
// in a *types.Progress owned by the caller, so it survives the session.
// All delays run on the caller's clock via Advance.
package quiz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nathoo/tinytalkers/types"
)

// Phase is the dialogue state.
type Phase int

const (
	Idle Phase = iota
	Presenting
	Correct
	Incorrect
	AssistPopup
	Completed
	Closed
)

var phaseNames = [...]string{"idle", "presenting", "correct", "incorrect", "assist", "completed", "closed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Verdict is the outcome of an answer submission.
type Verdict int

const (
	Ignored Verdict = iota // not accepted in the current phase
	Right
	Wrong
)

// Timing holds the transition delays.
type Timing struct {
	Advance  time.Duration // correct answer to next question
	Complete time.Duration // last correct answer to Completed
	Close    time.Duration // Completed to Closed
	LifeLoss time.Duration // wrong answer to heart removal
}

// DefaultTiming lets the success and heart animations play out.
var DefaultTiming = Timing{
	Advance:  1500 * time.Millisecond,
	Complete: 2 * time.Second,
	Close:    time.Second,
	LifeLoss: 800 * time.Millisecond,
}

// Default lines used when content provides none.
const (
	LineCorrect   = "Well done! That's correct!"
	LineIncorrect = "Oops! That's not correct. Try again!"
	LineComplete  = "Well done! You completed this level!"
	LineAssist    = "Let's learn it!"
)

var (
	ErrCompleted   = errors.New("quiz: all questions already answered")
	ErrNoQuestions = errors.New("quiz: npc has no questions")
)

// Config configures a session.
type Config struct {
	Lives   int
	Timing  Timing
	Phrases types.Phrases
	// Pick chooses one of several lines. Nil picks the first.
	Pick func(options []string) string
}

type timer struct {
	due  time.Duration
	seq  int
	fire func(now time.Duration) types.Result
}

// initialRequest marks the explanation fetched on entering the popup.
const initialRequest = -1

// Session is one open dialogue with an NPC.
type Session struct {
	ID  int
	NPC types.NPCDef

	Lives         int
	Loading       bool
	ExplainFailed bool
	Explanation   string
	ChatHistory   []types.ChatTurn

	cfg      Config
	progress *types.Progress
	phase    Phase
	timers   []timer
	timerSeq int
	nextReq  int
	pending  map[int]int // request id -> chat index, or initialRequest
}

// Open starts a session at the NPC's stored question index and asks the
// current question.
func Open(id int, npc types.NPCDef, progress *types.Progress, cfg Config) (*Session, types.Result, error) {
	if len(npc.Questions) == 0 {
		return nil, types.Result{}, ErrNoQuestions
	}
	if progress.Completed || progress.Index >= len(npc.Questions) {
		return nil, types.Result{}, ErrCompleted
	}
	if cfg.Lives <= 0 {
		cfg.Lives = 3
	}
	s := &Session{
		ID:       id,
		NPC:      npc,
		Lives:    cfg.Lives,
		cfg:      cfg,
		progress: progress,
		phase:    Presenting,
		pending:  map[int]int{},
	}
	var r types.Result
	s.emit(&r, "dialogue_opened", map[string]any{"index": progress.Index, "lives": s.Lives})
	s.present(&r)
	return s, r, nil
}

// Phase returns the current state.
func (s *Session) Phase() Phase { return s.phase }

// Progress returns the NPC's quiz progress.
func (s *Session) Progress() types.Progress { return *s.progress }

// Question returns the question being asked, if any remain.
func (s *Session) Question() (types.Question, bool) {
	i := s.progress.Index
	if i < 0 || i >= len(s.NPC.Questions) {
		return types.Question{}, false
	}
	return s.NPC.Questions[i], true
}

// Done reports whether the session has closed.
func (s *Session) Done() bool { return s.phase == Closed }

// Matches reports whether a submitted answer equals the expected one,
// ignoring surrounding whitespace and case.
func Matches(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}

// Submit checks an answer. Answers are only accepted while a question is
// being presented; anything else is Ignored.
func (s *Session) Submit(answer string, now time.Duration) (Verdict, types.Result) {
	var r types.Result
	if s.phase != Presenting {
		return Ignored, r
	}
	q, ok := s.Question()
	if !ok {
		return Ignored, r
	}

	if !Matches(answer, q.Answer) {
		s.phase = Incorrect
		s.say(&r, s.line(s.cfg.Phrases.Incorrect, LineIncorrect))
		s.schedule(now+s.cfg.Timing.LifeLoss, s.loseLife)
		return Wrong, r
	}

	s.phase = Correct
	s.progress.Index++
	if s.progress.Index >= len(s.NPC.Questions) {
		s.progress.Index = len(s.NPC.Questions)
		s.progress.Completed = true
		s.say(&r, s.line(s.cfg.Phrases.Complete, LineComplete))
		s.emit(&r, "npc_completed", nil)
		s.schedule(now+s.cfg.Timing.Complete, s.complete)
		return Right, r
	}
	s.say(&r, s.line(s.cfg.Phrases.Correct, LineCorrect))
	s.emit(&r, "question_advanced", map[string]any{"index": s.progress.Index})
	s.schedule(now+s.cfg.Timing.Advance, func(time.Duration) types.Result {
		var r types.Result
		s.phase = Presenting
		s.present(&r)
		return r
	})
	return Right, r
}

func (s *Session) loseLife(time.Duration) types.Result {
	var r types.Result
	if s.Lives > 0 {
		s.Lives--
	}
	s.emit(&r, "lives_changed", map[string]any{"lives": s.Lives})
	if s.Lives > 0 {
		s.phase = Presenting
		return r
	}
	s.phase = AssistPopup
	s.Loading = true
	s.emit(&r, "assist_opened", nil)
	s.say(&r, s.line(s.cfg.Phrases.Assist, LineAssist))
	q, _ := s.Question()
	s.requestExplanation(&r, initialRequest, q.Prompt, "", false)
	return r
}

func (s *Session) complete(now time.Duration) types.Result {
	s.phase = Completed
	s.schedule(now+s.cfg.Timing.Close, func(time.Duration) types.Result {
		return s.Close("completed")
	})
	return types.Result{}
}

// Ask sends a free-form follow-up question to the assistant. Only valid in
// the assist popup; empty questions are dropped.
func (s *Session) Ask(question string) (types.Result, bool) {
	var r types.Result
	question = strings.TrimSpace(question)
	if s.phase != AssistPopup || question == "" {
		return r, false
	}
	s.ChatHistory = append(s.ChatHistory, types.ChatTurn{Question: question, Pending: true})
	q, _ := s.Question()
	s.requestExplanation(&r, len(s.ChatHistory)-1, question, q.Prompt, true)
	return r, true
}

func (s *Session) requestExplanation(r *types.Result, slot int, question, context string, followUp bool) {
	s.nextReq++
	s.pending[s.nextReq] = slot
	s.emit(r, "explain", map[string]any{
		"request":  s.nextReq,
		"question": question,
		"context":  context,
		"followup": followUp,
	})
}

// Deliver applies the result of an explanation request. Results for unknown
// requests or a closed session are dropped and reported as not applied.
func (s *Session) Deliver(request int, text string, err error) (types.Result, bool) {
	var r types.Result
	if s.phase == Closed {
		return r, false
	}
	slot, ok := s.pending[request]
	if !ok {
		return r, false
	}
	delete(s.pending, request)

	if slot == initialRequest {
		s.Loading = false
		if err != nil {
			s.ExplainFailed = true
			r.Output = append(r.Output, "[The explanation could not be loaded.]")
			return r, true
		}
		s.Explanation = text
		r.Output = append(r.Output, text)
		s.speak(&r, text)
		return r, true
	}

	turn := &s.ChatHistory[slot]
	turn.Pending = false
	if err != nil {
		turn.Failed = true
		r.Output = append(r.Output, "[No answer this time. Try asking again.]")
		return r, true
	}
	turn.Answer = text
	r.Output = append(r.Output, text)
	s.speak(&r, text)
	return r, true
}

// Advance fires every timer due at or before now, in due order.
func (s *Session) Advance(now time.Duration) types.Result {
	var r types.Result
	for len(s.timers) > 0 && s.timers[0].due <= now {
		t := s.timers[0]
		s.timers = s.timers[1:]
		step := t.fire(t.due)
		r.Events = append(r.Events, step.Events...)
		r.Output = append(r.Output, step.Output...)
	}
	return r
}

// Close ends the session from any phase. The chat history is discarded and
// late timers or explanation results become no-ops.
func (s *Session) Close(reason string) types.Result {
	var r types.Result
	if s.phase == Closed {
		return r
	}
	s.phase = Closed
	s.timers = nil
	s.pending = map[int]int{}
	s.ChatHistory = nil
	s.Loading = false
	s.emit(&r, "dialogue_closed", map[string]any{"reason": reason})
	return r
}

func (s *Session) present(r *types.Result) {
	q, ok := s.Question()
	if !ok {
		return
	}
	s.say(r, q.Prompt)
}

// say prints an NPC line and asks for it to be spoken.
func (s *Session) say(r *types.Result, text string) {
	r.Output = append(r.Output, fmt.Sprintf("%s: %s", s.NPC.Name, text))
	s.speak(r, text)
}

func (s *Session) speak(r *types.Result, text string) {
	s.emit(r, "speak", map[string]any{"text": text, "voice": s.NPC.Voice})
}

func (s *Session) emit(r *types.Result, typ string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["npc"] = s.NPC.ID
	data["session"] = s.ID
	r.Events = append(r.Events, types.Event{Type: typ, Data: data})
}

func (s *Session) schedule(due time.Duration, fire func(time.Duration) types.Result) {
	s.timerSeq++
	s.timers = append(s.timers, timer{due: due, seq: s.timerSeq, fire: fire})
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].due != s.timers[j].due {
			return s.timers[i].due < s.timers[j].due
		}
		return s.timers[i].seq < s.timers[j].seq
	})
}

func (s *Session) line(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	if s.cfg.Pick == nil {
		return options[0]
	}
	return s.cfg.Pick(options)
}
