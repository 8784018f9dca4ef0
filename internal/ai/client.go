package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/payrollcheck/payrollcheck-backend/internal/errors"
)

// TokenUsage reports the token consumption of one generation call
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Generator is the structured-output text generation contract. Generate
// returns the raw model response text which the caller validates.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error)
	Model() string
}

// OpenAIGenerator calls the OpenAI chat completion API in JSON-object mode
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIGenerator creates a generator for the given API key and model
func NewOpenAIGenerator(apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Model returns the configured model name
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate sends the prompts and returns the raw response plus token usage
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: DefaultTemperature,
		MaxTokens:   MaxCompletionTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", nil, apperrors.ErrEmptyAIResponse
	}

	usage := &TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}
