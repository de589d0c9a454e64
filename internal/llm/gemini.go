package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kpssprep/marathon/internal/llm/prompts"

	"google.golang.org/genai"
)

// questionBatchSchema constrains Gemini output to the batch envelope.
var questionBatchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text": {Type: genai.TypeString},
					"options": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"A": {Type: genai.TypeString},
							"B": {Type: genai.TypeString},
							"C": {Type: genai.TypeString},
							"D": {Type: genai.TypeString},
							"E": {Type: genai.TypeString},
						},
						Required: []string{"A", "B", "C", "D", "E"},
					},
					"correctAnswer": {Type: genai.TypeString, Enum: []string{"A", "B", "C", "D", "E"}},
					"explanation":   {Type: genai.TypeString},
				},
				Required: []string{"text", "options", "correctAnswer", "explanation"},
			},
		},
	},
	Required: []string{"questions"},
}

// GeminiClient generates questions with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: modelName}, nil
}

// Name identifies the provider and model in logs.
func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// GenerateQuestions asks Gemini for one batch of questions.
func (g *GeminiClient) GenerateQuestions(ctx context.Context, req Request) ([]Question, error) {
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

	temperature := float32(0.8)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    questionBatchSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call: %w", classifyGeminiError(err))
	}

	switch {
	case resp == nil || len(resp.Candidates) == 0:
		return nil, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, fmt.Errorf("%w: content blocked by safety filters", ErrInvalidResponse)
	case resp.Candidates[0].Content == nil:
		return nil, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	slog.Debug("LLM response", "provider", g.Name(), "batch", req.BatchIndex, "bytes", sb.Len())

	return ParseBatch(sb.String())
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	if isConnectivityError(err) {
		return transient(err)
	}
	return err
}
