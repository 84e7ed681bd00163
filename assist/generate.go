package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nathoo/tinytalkers/types"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultQuestionModel writes new quiz questions.
const DefaultQuestionModel = openaigo.GPT4

// QuestionsPerCharacter is how many questions one request asks for.
const QuestionsPerCharacter = 5

const generatorSystemPrompt = `You are a cheerful cartoon voice assistant, helping children learn English in a fun and engaging way.
Your personality is cheerful, encouraging, and patient. You should:
1. Keep explanations simple and child-friendly
2. Use positive reinforcement
3. Break down complex concepts into easy steps
4. Stay friendly and supportive
5. Focus on practical, everyday English usage
6. Make learning fun through examples and stories

For each character, generate 5 age-appropriate English learning questions that match their personality:

Mother: Caring, nurturing, teaches basic life skills and manners
Father: Professional, teaches about work and responsibility
Brother: Playful, into games and modern technology
Neighbour: Friendly gardener, teaches about nature and community`

// Generator writes quiz questions for a character.
type Generator struct {
	client Completer
	model  string
	log    *zap.Logger
}

// NewGenerator creates a Generator. An empty model uses DefaultQuestionModel.
func NewGenerator(client Completer, model string, log *zap.Logger) *Generator {
	if model == "" {
		model = DefaultQuestionModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{client: client, model: model, log: log.Named("generator")}
}

// GenerateQuestions asks the model for QuestionsPerCharacter questions
// suited to character.
func (g *Generator) GenerateQuestions(ctx context.Context, character string) ([]types.Question, error) {
	if g == nil || g.client == nil {
		return nil, ErrServiceUnavailable
	}
	character = strings.TrimSpace(character)
	if character == "" {
		return nil, fmt.Errorf("assist: character is required")
	}

	text, err := complete(ctx, g.client, "generate_questions", openaigo.ChatCompletionRequest{
		Model: g.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: fmt.Sprintf(
				"Generate %d English learning questions for the %s character.\n"+
					"Each question should be appropriate for their personality and role.\n"+
					"Format the response as a JSON array of objects with 'text' and 'answer' properties.\n"+
					"Make sure the questions are simple enough for children learning English.",
				QuestionsPerCharacter, character)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		g.log.Warn("question generation failed", zap.String("character", character), zap.Error(err))
		return nil, err
	}

	qs, err := ParseQuestions(text)
	if err != nil {
		g.log.Warn("unparseable questions", zap.String("character", character), zap.Error(err))
		return nil, err
	}
	return qs, nil
}

// ParseQuestions decodes a JSON array of {text, answer} objects. Markdown
// code fences around the array are ignored, as are entries missing either
// field.
func ParseQuestions(text string) ([]types.Question, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "["); i >= 0 {
		if j := strings.LastIndex(text, "]"); j > i {
			text = text[i : j+1]
		}
	}
	var raw []types.Question
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: questions are not a JSON array: %v", ErrGenerationFailed, err)
	}
	out := make([]types.Question, 0, len(raw))
	for _, q := range raw {
		q.Prompt = strings.TrimSpace(q.Prompt)
		q.Answer = strings.TrimSpace(q.Answer)
		if q.Prompt != "" && q.Answer != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable questions", ErrGenerationFailed)
	}
	return out, nil
}
