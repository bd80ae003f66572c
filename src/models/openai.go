package models

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAILLM speaks any OpenAI-compatible chat completion API. Groq
// exposes one, so the default remote provider is this client pointed
// at the Groq endpoint. Generation parameters are fixed per session.
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAILLM targets the stock OpenAI endpoint.
func NewOpenAILLM(apiKey, model string, temperature float32, maxTokens int) *OpenAILLM {
	return newOpenAICompatible(openai.DefaultConfig(apiKey), model, temperature, maxTokens)
}

// NewGroqLLM targets Groq's OpenAI-compatible endpoint.
func NewGroqLLM(apiKey, model string, temperature float32, maxTokens int) *OpenAILLM {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = groqBaseURL
	return newOpenAICompatible(cfg, model, temperature, maxTokens)
}

func newOpenAICompatible(cfg openai.ClientConfig, model string, temperature float32, maxTokens int) *OpenAILLM {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &OpenAILLM{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Agent = (*OpenAILLM)(nil)
