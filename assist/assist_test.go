package assist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nathoo/tinytalkers/types"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	reply string
	err   error
	reqs  []openaigo.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openaigo.ChatCompletionRequest) (openaigo.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openaigo.ChatCompletionResponse{}, f.err
	}
	if f.reply == "" {
		return openaigo.ChatCompletionResponse{}, nil
	}
	return openaigo.ChatCompletionResponse{
		Choices: []openaigo.ChatCompletionChoice{{Message: openaigo.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func TestExplainPrompt(t *testing.T) {
	first := ExplainPrompt("What is a verb?", "", false)
	assert.Equal(t, "Please explain this concept in a child-friendly way: What is a verb?\n"+
		"Make sure to break down the explanation into simple terms and include examples if possible.", first)

	follow := ExplainPrompt("Is run a verb?", "What is a verb?", true)
	assert.Equal(t, "Question: Is run a verb?\n"+
		"Context: This is a follow-up question about What is a verb?. Please provide a child-friendly explanation.", follow)
}

func TestChatExplainer_Explain(t *testing.T) {
	fc := &fakeCompleter{reply: "  A verb is a doing word!  "}
	e := NewChatExplainer(fc, "", zap.NewNop())

	text, err := e.Explain(context.Background(), "What is a verb?", "", false)
	require.NoError(t, err)
	assert.Equal(t, "A verb is a doing word!", text)

	require.Len(t, fc.reqs, 1)
	assert.Equal(t, DefaultChatModel, fc.reqs[0].Model)
	require.Len(t, fc.reqs[0].Messages, 1)
	assert.Equal(t, openaigo.ChatMessageRoleUser, fc.reqs[0].Messages[0].Role)
}

func TestChatExplainer_Errors(t *testing.T) {
	_, err := NewChatExplainer(&fakeCompleter{err: errors.New("boom")}, "m", nil).Explain(context.Background(), "q", "", false)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	_, err = NewChatExplainer(&fakeCompleter{}, "m", nil).Explain(context.Background(), "q", "", false)
	assert.ErrorIs(t, err, ErrGenerationFailed, "empty responses are failures")

	_, err = NewChatExplainer(nil, "m", nil).Explain(context.Background(), "q", "", false)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"plain array", `[{"text":"What color is grass?","answer":"green"}]`, 1, false},
		{"fenced", "```json\n[{\"text\":\"a?\",\"answer\":\"b\"},{\"text\":\"c?\",\"answer\":\"d\"}]\n```", 2, false},
		{"drops incomplete", `[{"text":"a?","answer":""},{"text":"c?","answer":"d"}]`, 1, false},
		{"not json", "Sure! Here are some questions.", 0, true},
		{"all incomplete", `[{"text":"a?"}]`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, err := ParseQuestions(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGenerationFailed)
				return
			}
			require.NoError(t, err)
			assert.Len(t, qs, tt.want)
		})
	}
}

func TestGenerator(t *testing.T) {
	fc := &fakeCompleter{reply: `[{"text":"What do you say when you get a gift?","answer":"thank you"}]`}
	g := NewGenerator(fc, "", nil)

	qs, err := g.GenerateQuestions(context.Background(), "mother")
	require.NoError(t, err)
	assert.Equal(t, []types.Question{{Prompt: "What do you say when you get a gift?", Answer: "thank you"}}, qs)

	req := fc.reqs[0]
	assert.Equal(t, DefaultQuestionModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openaigo.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "for the mother character")

	_, err = g.GenerateQuestions(context.Background(), "  ")
	assert.Error(t, err)
}

type recordingSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingSpeaker) Say(_ context.Context, text, voice string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, voice+":"+text)
}

type stubExplainer struct {
	gotQuestion, gotAbout string
	gotFollowUp           bool
	err                   error
}

func (s *stubExplainer) Explain(_ context.Context, question, about string, followUp bool) (string, error) {
	s.gotQuestion, s.gotAbout, s.gotFollowUp = question, about, followUp
	if s.err != nil {
		return "", s.err
	}
	return "because", nil
}

func TestServices_Handle(t *testing.T) {
	sp := &recordingSpeaker{}
	ex := &stubExplainer{}
	s := NewServices(ex, sp, 0, zap.NewNop())

	_, ok := s.Handle(context.Background(), types.Event{Type: "speak", Data: map[string]any{"text": "Hi!", "voice": "v1"}})
	assert.False(t, ok)
	assert.Equal(t, []string{"v1:Hi!"}, sp.lines)

	r, ok := s.Handle(context.Background(), types.Event{Type: "explain", Data: map[string]any{
		"session": 4, "request": 2, "question": "why?", "context": "sky", "followup": true,
	}})
	require.True(t, ok)
	assert.Equal(t, Reply{Session: 4, Request: 2, Text: "because"}, r)
	assert.Equal(t, "why?", ex.gotQuestion)
	assert.Equal(t, "sky", ex.gotAbout)
	assert.True(t, ex.gotFollowUp)

	_, ok = s.Handle(context.Background(), types.Event{Type: "npc_nearby"})
	assert.False(t, ok)
}

func TestServices_Degraded(t *testing.T) {
	r, ok := NewServices(nil, nil, 0, nil).Handle(context.Background(), types.Event{Type: "explain", Data: map[string]any{"session": 1, "request": 1}})
	require.True(t, ok)
	assert.ErrorIs(t, r.Err, ErrServiceUnavailable)
	assert.Equal(t, 1, r.Session)

	boom := errors.New("timeout")
	r, _ = NewServices(&stubExplainer{err: boom}, nil, 0, nil).Handle(context.Background(), types.Event{Type: "explain", Data: map[string]any{}})
	assert.ErrorIs(t, r.Err, boom)
}

func TestPending(t *testing.T) {
	evts := []types.Event{{Type: "speak"}, {Type: "explain"}, {Type: "explain"}}
	assert.Len(t, Pending(evts), 2)
}
