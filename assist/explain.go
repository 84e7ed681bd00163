package assist

import (
	"context"
	"fmt"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultChatModel answers explanation requests.
const DefaultChatModel = openaigo.GPT3Dot5Turbo

// Explainer produces a child-friendly explanation of a question.
type Explainer interface {
	Explain(ctx context.Context, question, about string, followUp bool) (string, error)
}

// ChatExplainer implements Explainer with a chat completion model.
type ChatExplainer struct {
	client Completer
	model  string
	log    *zap.Logger
}

// NewChatExplainer creates a ChatExplainer. An empty model uses DefaultChatModel.
func NewChatExplainer(client Completer, model string, log *zap.Logger) *ChatExplainer {
	if model == "" {
		model = DefaultChatModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatExplainer{client: client, model: model, log: log.Named("explainer")}
}

// ExplainPrompt builds the user prompt. Follow-ups carry the question that
// started the conversation as context.
func ExplainPrompt(question, about string, followUp bool) string {
	if followUp {
		return fmt.Sprintf("Question: %s\nContext: This is a follow-up question about %s. Please provide a child-friendly explanation.", question, about)
	}
	return fmt.Sprintf("Please explain this concept in a child-friendly way: %s\nMake sure to break down the explanation into simple terms and include examples if possible.", question)
}

// Explain implements Explainer.
func (e *ChatExplainer) Explain(ctx context.Context, question, about string, followUp bool) (string, error) {
	if e == nil || e.client == nil {
		return "", ErrServiceUnavailable
	}
	text, err := complete(ctx, e.client, "explain", openaigo.ChatCompletionRequest{
		Model: e.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: ExplainPrompt(question, about, followUp)},
		},
	})
	if err != nil {
		e.log.Warn("explanation failed", zap.Bool("followup", followUp), zap.Error(err))
		return "", err
	}
	e.log.Debug("explanation ready", zap.Int("chars", len(text)))
	return text, nil
}
