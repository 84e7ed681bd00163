package quiz

import (
	"errors"
	"testing"
	"time"

	"github.com/nathoo/tinytalkers/types"
)

func mother() types.NPCDef {
	return types.NPCDef{
		ID:    "mother",
		Name:  "Mother",
		Voice: "mother",
		Questions: []types.Question{
			{Prompt: "What do we say when someone gives us a gift?", Answer: "thank you"},
			{Prompt: "How do we ask politely for something?", Answer: "please"},
			{Prompt: "What's the past tense of 'eat'?", Answer: "ate"},
			{Prompt: "How do we greet someone in the morning?", Answer: "good morning"},
			{Prompt: "What do we say before going to bed?", Answer: "good night"},
		},
	}
}

func testConfig() Config {
	return Config{Lives: 3, Timing: DefaultTiming}
}

func openSession(t *testing.T, p *types.Progress) *Session {
	t.Helper()
	s, _, err := Open(1, mother(), p, testConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func findEvent(r types.Result, typ string) (types.Event, bool) {
	for _, e := range r.Events {
		if e.Type == typ {
			return e, true
		}
	}
	return types.Event{}, false
}

func TestOpen_SpeaksCurrentQuestion(t *testing.T) {
	p := &types.Progress{Index: 2}
	s, r, err := Open(7, mother(), p, testConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Phase() != Presenting {
		t.Errorf("phase = %v, want presenting", s.Phase())
	}
	if s.Lives != 3 {
		t.Errorf("lives = %d, want 3", s.Lives)
	}
	ev, ok := findEvent(r, "speak")
	if !ok {
		t.Fatal("expected speak event")
	}
	if ev.Data["text"] != "What's the past tense of 'eat'?" {
		t.Errorf("spoke %q, want the resumed question", ev.Data["text"])
	}
	if ev.Data["voice"] != "mother" || ev.Data["session"] != 7 {
		t.Errorf("unexpected speak data: %v", ev.Data)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, _, err := Open(1, mother(), &types.Progress{Completed: true, Index: 5}, testConfig()); !errors.Is(err, ErrCompleted) {
		t.Errorf("expected ErrCompleted, got %v", err)
	}
	if _, _, err := Open(1, types.NPCDef{ID: "cat"}, &types.Progress{}, testConfig()); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("expected ErrNoQuestions, got %v", err)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		submitted, expected string
		want                bool
	}{
		{"thank you", "thank you", true},
		{"Thank You ", "thank you", true},
		{"  THANK YOU", "thank you", true},
		{"thankyou", "thank you", false},
		{"thank  you", "thank you", false},
		{"thank you!", "thank you", false},
		{"", "thank you", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.submitted, tt.expected); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.submitted, tt.expected, got, tt.want)
		}
	}
}

func TestSubmit_CorrectAdvancesAfterDelay(t *testing.T) {
	p := &types.Progress{}
	s := openSession(t, p)

	v, r := s.Submit("Thank You ", 0)
	if v != Right {
		t.Fatalf("verdict = %v, want Right", v)
	}
	if p.Index != 1 {
		t.Errorf("index = %d, want 1", p.Index)
	}
	if s.Phase() != Correct {
		t.Errorf("phase = %v, want correct", s.Phase())
	}
	if ev, _ := findEvent(r, "speak"); ev.Data["text"] != LineCorrect {
		t.Errorf("encouragement = %v", ev.Data["text"])
	}

	// Answers are not accepted between questions.
	if v, _ := s.Submit("please", time.Second); v != Ignored {
		t.Errorf("answer during transition verdict = %v", v)
	}

	r = s.Advance(1499 * time.Millisecond)
	if s.Phase() != Correct || len(r.Events) != 0 {
		t.Errorf("advanced early: phase %v events %v", s.Phase(), r.Events)
	}
	r = s.Advance(1500 * time.Millisecond)
	if s.Phase() != Presenting {
		t.Fatalf("phase = %v, want presenting", s.Phase())
	}
	if ev, _ := findEvent(r, "speak"); ev.Data["text"] != "How do we ask politely for something?" {
		t.Errorf("next question spoken = %v", ev.Data["text"])
	}
}

func TestSubmit_FiveCorrectCompletes(t *testing.T) {
	p := &types.Progress{}
	s := openSession(t, p)
	answers := []string{"thank you", "please", "ate", "good morning", "good night"}

	now := time.Duration(0)
	for i, a := range answers {
		if p.Completed {
			t.Fatalf("completed early after %d answers", i)
		}
		v, _ := s.Submit(a, now)
		if v != Right {
			t.Fatalf("answer %d verdict = %v", i, v)
		}
		now += 1500 * time.Millisecond
		s.Advance(now)
	}
	if !p.Completed || p.Index != 5 {
		t.Fatalf("progress = %+v, want completed at 5", *p)
	}

	// Last answer was submitted at 6s: Completed at 8s, Closed at 9s.
	last := 6 * time.Second
	s.Advance(last + 1999*time.Millisecond)
	if s.Phase() != Correct {
		t.Errorf("phase before completion delay = %v", s.Phase())
	}
	s.Advance(last + 2*time.Second)
	if s.Phase() != Completed {
		t.Errorf("phase = %v, want completed", s.Phase())
	}
	r := s.Advance(last + 3*time.Second)
	if s.Phase() != Closed {
		t.Fatalf("phase = %v, want closed", s.Phase())
	}
	ev, ok := findEvent(r, "dialogue_closed")
	if !ok || ev.Data["reason"] != "completed" {
		t.Errorf("expected dialogue_closed completed, got %v", r.Events)
	}
}

func TestSubmit_CompletionSpeaksSuccess(t *testing.T) {
	p := &types.Progress{Index: 4}
	s := openSession(t, p)
	_, r := s.Submit("good night", 0)
	if ev, _ := findEvent(r, "speak"); ev.Data["text"] != LineComplete {
		t.Errorf("success line = %v", ev.Data["text"])
	}
	if _, ok := findEvent(r, "npc_completed"); !ok {
		t.Error("expected npc_completed event")
	}
}

func TestSubmit_WrongAnswerCostsOneLife(t *testing.T) {
	p := &types.Progress{}
	s := openSession(t, p)

	v, r := s.Submit("thanks", 0)
	if v != Wrong {
		t.Fatalf("verdict = %v", v)
	}
	if ev, _ := findEvent(r, "speak"); ev.Data["text"] != LineIncorrect {
		t.Errorf("discouragement = %v", ev.Data["text"])
	}
	if s.Lives != 3 {
		t.Errorf("life removed before the delay: %d", s.Lives)
	}
	if v, _ := s.Submit("thanks", 500*time.Millisecond); v != Ignored {
		t.Error("second answer before heart removal should be ignored")
	}

	r = s.Advance(800 * time.Millisecond)
	if s.Lives != 2 {
		t.Errorf("lives = %d, want 2", s.Lives)
	}
	if ev, ok := findEvent(r, "lives_changed"); !ok || ev.Data["lives"] != 2 {
		t.Errorf("lives_changed = %v", r.Events)
	}
	if s.Phase() != Presenting {
		t.Errorf("phase = %v, want presenting", s.Phase())
	}
	if p.Index != 0 {
		t.Errorf("index moved on a wrong answer: %d", p.Index)
	}
}

func TestSubmit_ThreeWrongOpensAssist(t *testing.T) {
	p := &types.Progress{}
	s := openSession(t, p)

	var r types.Result
	now := time.Duration(0)
	for i := 0; i < 3; i++ {
		if v, _ := s.Submit("nope", now); v != Wrong {
			t.Fatalf("wrong answer %d not accepted", i+1)
		}
		now += time.Second
		r = s.Advance(now)
	}
	if s.Phase() != AssistPopup {
		t.Fatalf("phase = %v, want assist", s.Phase())
	}
	if s.Lives != 0 {
		t.Errorf("lives = %d", s.Lives)
	}
	if !s.Loading {
		t.Error("expected loading while explanation is fetched")
	}
	ev, ok := findEvent(r, "explain")
	if !ok {
		t.Fatal("expected explain event")
	}
	if ev.Data["question"] != "What do we say when someone gives us a gift?" || ev.Data["followup"] != false {
		t.Errorf("explain data = %v", ev.Data)
	}

	// A fourth answer cannot be submitted.
	if v, _ := s.Submit("thank you", now); v != Ignored {
		t.Error("answers must be ignored in the assist popup")
	}
	if s.Lives != 0 {
		t.Errorf("lives went negative: %d", s.Lives)
	}
}

func assistSession(t *testing.T) (*Session, int) {
	t.Helper()
	s := openSession(t, &types.Progress{})
	var r types.Result
	now := time.Duration(0)
	for i := 0; i < 3; i++ {
		s.Submit("nope", now)
		now += time.Second
		r = s.Advance(now)
	}
	ev, ok := findEvent(r, "explain")
	if !ok {
		t.Fatal("no explain event")
	}
	return s, ev.Data["request"].(int)
}

func TestDeliver_Explanation(t *testing.T) {
	s, req := assistSession(t)
	r, ok := s.Deliver(req, "When someone gives you a present you say thank you.", nil)
	if !ok {
		t.Fatal("delivery not applied")
	}
	if s.Loading || s.ExplainFailed {
		t.Errorf("loading=%v failed=%v", s.Loading, s.ExplainFailed)
	}
	if ev, ok := findEvent(r, "speak"); !ok || ev.Data["text"] != s.Explanation {
		t.Errorf("explanation not spoken: %v", r.Events)
	}
	if _, ok := s.Deliver(req, "again", nil); ok {
		t.Error("duplicate delivery should be dropped")
	}
}

func TestDeliver_ExplanationFailure(t *testing.T) {
	s, req := assistSession(t)
	r, ok := s.Deliver(req, "", errors.New("timeout"))
	if !ok {
		t.Fatal("delivery not applied")
	}
	if s.Loading {
		t.Error("loading indicator left spinning")
	}
	if !s.ExplainFailed {
		t.Error("expected failure flag")
	}
	if _, spoke := findEvent(r, "speak"); spoke {
		t.Error("nothing should be spoken on failure")
	}
}

func TestAsk_FollowUps(t *testing.T) {
	s, _ := assistSession(t)

	r1, ok := s.Ask("What is a gift?")
	if !ok {
		t.Fatal("Ask rejected")
	}
	r2, _ := s.Ask("  Why do we say thanks? ")
	if len(s.ChatHistory) != 2 {
		t.Fatalf("chat history = %+v", s.ChatHistory)
	}
	if s.ChatHistory[1].Question != "Why do we say thanks?" || !s.ChatHistory[1].Pending {
		t.Errorf("second turn = %+v", s.ChatHistory[1])
	}

	ev1, _ := findEvent(r1, "explain")
	ev2, _ := findEvent(r2, "explain")
	if ev1.Data["followup"] != true || ev1.Data["context"] != "What do we say when someone gives us a gift?" {
		t.Errorf("follow-up data = %v", ev1.Data)
	}

	// Answers arrive out of order.
	s.Deliver(ev2.Data["request"].(int), "Because it is kind.", nil)
	s.Deliver(ev1.Data["request"].(int), "", errors.New("boom"))
	if s.ChatHistory[1].Answer != "Because it is kind." || s.ChatHistory[1].Pending {
		t.Errorf("turn 2 = %+v", s.ChatHistory[1])
	}
	if !s.ChatHistory[0].Failed || s.ChatHistory[0].Pending {
		t.Errorf("turn 1 = %+v", s.ChatHistory[0])
	}

	if _, ok := s.Ask("   "); ok {
		t.Error("blank follow-up should be rejected")
	}
}

func TestAsk_OnlyInAssist(t *testing.T) {
	s := openSession(t, &types.Progress{})
	if _, ok := s.Ask("hello?"); ok {
		t.Error("Ask should be rejected while presenting")
	}
}

func TestClose_DropsLateResults(t *testing.T) {
	s, req := assistSession(t)
	s.Ask("more?")
	r := s.Close("dismissed")
	if ev, ok := findEvent(r, "dialogue_closed"); !ok || ev.Data["reason"] != "dismissed" {
		t.Errorf("close events = %v", r.Events)
	}
	if s.ChatHistory != nil {
		t.Error("chat history should be discarded")
	}
	if _, ok := s.Deliver(req, "late", nil); ok {
		t.Error("late delivery applied to closed session")
	}
	if again := s.Close("dismissed"); len(again.Events) != 0 {
		t.Error("closing twice should be a no-op")
	}
}

func TestClose_CancelsTimers(t *testing.T) {
	p := &types.Progress{}
	s := openSession(t, p)
	s.Submit("thank you", 0)
	s.Close("dismissed")
	if r := s.Advance(10 * time.Second); len(r.Events) != 0 {
		t.Errorf("timers fired after close: %v", r.Events)
	}
	if p.Index != 1 {
		t.Errorf("progress should persist after close, got %+v", *p)
	}

	// Reopening resumes at the stored index.
	s2, r, err := Open(2, mother(), p, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if q, _ := s2.Question(); q.Answer != "please" {
		t.Errorf("resumed at %+v", q)
	}
	if ev, _ := findEvent(r, "speak"); ev.Data["session"] != 2 {
		t.Errorf("new session id not carried: %v", ev.Data)
	}
}

func TestPhrases_Pick(t *testing.T) {
	cfg := testConfig()
	cfg.Phrases = types.Phrases{Correct: []string{"Great!", "Super!"}}
	cfg.Pick = func(opts []string) string { return opts[len(opts)-1] }
	s, _, err := Open(1, mother(), &types.Progress{}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, r := s.Submit("thank you", 0)
	if ev, _ := findEvent(r, "speak"); ev.Data["text"] != "Super!" {
		t.Errorf("picked %v", ev.Data["text"])
	}
}

func TestPhaseString(t *testing.T) {
	if AssistPopup.String() != "assist" || Phase(42).String() != "phase(42)" {
		t.Errorf("unexpected phase names: %s %s", AssistPopup, Phase(42))
	}
}
