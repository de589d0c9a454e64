package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kpssprep/marathon/internal/llm/prompts"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new client for an OpenAI-compatible endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Name identifies the provider and model in logs.
func (c *Client) Name() string { return "openai:" + c.model }

// Ping checks that the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM ping: %w", classifyOpenAIError(err))
	}
	return nil
}

// GenerateQuestions asks the model for one batch of questions.
func (c *Client) GenerateQuestions(ctx context.Context, req Request) ([]Question, error) {
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

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", classifyOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "provider", c.Name(), "batch", req.BatchIndex, "bytes", len(raw))

	return ParseBatch(raw)
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	if isConnectivityError(err) {
		return transient(err)
	}
	return err
}
