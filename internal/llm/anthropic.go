package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kpssprep/marathon/internal/llm/prompts"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient generates questions with the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic-backed generator. SDK-level retries
// are disabled; the batch fetcher owns the retry policy.
func NewAnthropic(apiKey, modelName string, opts ...option.RequestOption) *AnthropicClient {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: modelName}
}

// Name identifies the provider and model in logs.
func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }

// GenerateQuestions asks Claude for one batch of questions.
func (c *AnthropicClient) GenerateQuestions(ctx context.Context, req Request) ([]Question, error) {
	system, err := prompts.System()
	if err != nil {
		return nil, err
	}
	user, err := prompts.BuildBatchPrompt(prompts.BatchData{
		Subject:     req.Subject,
		Count:       req.Count,
		BatchNumber: req.BatchIndex + 1,
		Target:      req.Target,
	})
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   16384,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", classifyAnthropicError(err))
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("%w: no text content", ErrInvalidResponse)
	}
	slog.Debug("LLM response", "provider", c.Name(), "batch", req.BatchIndex,
		"input_tokens", message.Usage.InputTokens, "output_tokens", message.Usage.OutputTokens)

	return ParseBatch(responseText)
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	if isConnectivityError(err) {
		return transient(err)
	}
	return err
}
