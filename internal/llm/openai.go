package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"songmoment/internal/core"
)

const (
	openaiTemperature  = 0.1
	openaiMaxTokens    = 800
	openaiDefaultModel = "gpt-4o-mini"
)

type openaiClient struct {
	config *core.LLMConfig
	logger *zap.Logger
	client *openai.Client
}

func newOpenAIClient(config *core.LLMConfig, logger *zap.Logger) (*openaiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &openaiClient{config: config, logger: logger, client: &client}, nil
}

func (o *openaiClient) complete(ctx context.Context, system, user string) (string, error) {
	model := o.config.Model
	if model == "" {
		model = openaiDefaultModel
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       model,
		Temperature: openai.Float(openaiTemperature),
		MaxTokens:   openai.Int(openaiMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("OpenAI response received", zap.String("content", content))
	return content, nil
}
