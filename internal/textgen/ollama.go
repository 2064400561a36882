package textgen

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// ollamaClient реализует TextGenerator через нативный API Ollama.
type ollamaClient struct {
	client      *api.Client
	model       string
	temperature float32
	maxTokens   int
	log         *zap.Logger
}

func newOllamaClient(cfg config.TextGenConfig, log *zap.Logger) (*ollamaClient, error) {
	// api.NewClient требует URL без суффикса /v1
	base := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if base == "" {
		base = "http://localhost:11434"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", base, err)
	}
	model := modelOrDefault(cfg.Model, DefaultOllamaModel)
	log.Info("Ollama client created", zap.String("base_url", base), zap.String("model", model))
	return &ollamaClient{
		client:      api.NewClient(parsed, &http.Client{Timeout: cfg.Timeout}),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		log:         log,
	}, nil
}

func (c *ollamaClient) Model() string { return c.model }

// GenerateText генерирует текст без стриминга, сохраняя последний ответ.
func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, UsageInfo, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", UsageInfo{}, err
	}

	var messages []api.Message
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, api.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Format:   []byte(`"json"`),
		Options: map[string]interface{}{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	started := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		observe("ollama", c.model, "error", started, UsageInfo{})
		c.log.Warn("Ollama request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		observe("ollama", c.model, "error_empty_response", started, UsageInfo{})
		return "", UsageInfo{}, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	text := resp.Message.Content
	usage := UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(systemPrompt, prompt, text)
	}
	observe("ollama", c.model, "success", started, usage)
	c.log.Debug("Ollama response received",
		zap.Duration("duration", time.Since(started)),
		zap.Int("length", len(text)),
		zap.Int("total_tokens", usage.TotalTokens))
	return text, usage, nil
}
