package ai

import (
	"context"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	maxTokens          = 4096
)

var errEmptyChoices = errors.NewSentinel("completion returned no choices")

type openAIBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(apiKey string, model string, baseURL string) *openAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIBackend{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (b *openAIBackend) complete(ctx context.Context, req completionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.turns)+1)
	if req.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    openai.ChatMessageRoleSystem,
			Content: req.system,
		})
	}
	for _, t := range req.turns {
		r := openai.ChatMessageRoleUser
		if t.role == roleModel {
			r = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    r,
			Content: t.text,
		})
	}

	request := openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:     b.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.format != formatText {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	completion, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errEmptyChoices
	}
	return completion.Choices[0].Message.Content, nil
}
