package advice

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GeminiProvider talks to Gemini through its OpenAI-compatible chat
// completions endpoint.
type GeminiProvider struct {
	client openai.Client
	model  string
}

func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(1),
	)
	return &GeminiProvider{client: client, model: model}
}

func (p *GeminiProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
