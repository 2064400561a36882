package textgen

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// openAIClient реализует TextGenerator через OpenAI-совместимый API (OpenAI, OpenRouter).
type openAIClient struct {
	client      *openaigo.Client
	model       string
	temperature float32
	maxTokens   int
	log         *zap.Logger
}

func newOpenAIClient(cfg config.TextGenConfig, log *zap.Logger) *openAIClient {
	oc := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	model := modelOrDefault(cfg.Model, DefaultOpenAIModel)
	log.Info("OpenAI client created", zap.String("base_url", oc.BaseURL), zap.String("model", model))
	return &openAIClient{
		client:      openaigo.NewClientWithConfig(oc),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log,
	}
}

func (c *openAIClient) Model() string { return c.model }

// GenerateText генерирует текст на основе системного промпта и ввода пользователя.
func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, UsageInfo, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", UsageInfo{}, err
	}

	var messages []openaigo.ChatCompletionMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: prompt})

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		observe("openai", c.model, "error", started, UsageInfo{})
		c.log.Warn("OpenAI request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observe("openai", c.model, "error_empty_response", started, UsageInfo{})
		return "", UsageInfo{}, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	text := resp.Choices[0].Message.Content
	usage := UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(systemPrompt, prompt, text)
	}
	observe("openai", c.model, "success", started, usage)
	c.log.Debug("OpenAI response received",
		zap.Duration("duration", time.Since(started)),
		zap.Int("length", len(text)),
		zap.Int("total_tokens", usage.TotalTokens))
	return text, usage, nil
}
