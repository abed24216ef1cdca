package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrMissingAPIKey is returned when the OpenAI backend has no key.
var ErrMissingAPIKey = errors.New("openai: api key is required")

// OpenAIAdapter implements ports.LLMService using the Chat Completions API.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIAdapter creates a new OpenAI adapter. baseURL may point at any
// compatible endpoint; empty means the public API.
func NewOpenAIAdapter(apiKey, baseURL, model string, temperature float64) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "gpt-4o"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(120 * time.Second),
		option.WithMaxRetries(2),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIAdapter{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate produces a completion for prompt under the given system prompt.
func (a *OpenAIAdapter) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Messages:    messages,
		Temperature: openai.Float(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (a *OpenAIAdapter) Model() string {
	return a.model
}
