package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/xonecas/relic-console/internal/telemetry"
)

// OpenAIProvider implements Provider for any OpenAI Chat Completions endpoint,
// including Ollama's /v1 surface.
type OpenAIProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
}

// NewOllama creates a provider for an Ollama server. Ollama exposes an
// OpenAI-compatible API at /v1.
func NewOllama(name, endpoint, model string, temperature float64, limiter *rate.Limiter) *OpenAIProvider {
	baseURL := strings.TrimRight(endpoint, "/") + "/v1"
	return NewOpenAI(name, baseURL, "", model, temperature, limiter)
}

// NewOpenAI creates a provider for an OpenAI-compatible base URL.
func NewOpenAI(name, baseURL, apiKey, model string, temperature float64, limiter *rate.Limiter) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &OpenAIProvider{
		name:        name,
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		limiter:     limiter,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Chat sends messages and returns the complete response.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    mergeSystemMessages(toOpenAIMessages(messages)),
		Temperature: float32(p.temperature),
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.AssistantDuration.WithLabelValues(p.name, status).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Str("provider", p.name).Str("model", p.model).Msg("Chat completion failed")
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return result
}

// mergeSystemMessages collects every system message into one leading message.
// Chat Completions wants the system prompt first and at least one non-system
// message after it.
func mergeSystemMessages(messages []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	if len(messages) == 0 {
		return messages
	}

	var systemBuffer strings.Builder
	rest := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == openai.ChatMessageRoleSystem {
			if systemBuffer.Len() > 0 {
				systemBuffer.WriteString("\n\n")
			}
			systemBuffer.WriteString(msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}

	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemBuffer.Len() > 0 {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemBuffer.String(),
		})
	}
	result = append(result, rest...)

	if len(rest) == 0 && len(result) > 0 {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: "Begin.",
		})
	}

	return result
}
