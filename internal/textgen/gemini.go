package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"storybook-server/internal/config"
)

// geminiClient реализует TextGenerator через Gemini API.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
	log         *zap.Logger
}

func newGeminiClient(ctx context.Context, cfg config.TextGenConfig, log *zap.Logger) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrGenerationFailed)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := modelOrDefault(cfg.Model, DefaultGeminiModel)
	log.Info("Gemini client created", zap.String("model", model))
	return &geminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     cfg.Timeout,
		log:         log,
	}, nil
}

func (c *geminiClient) Model() string { return c.model }

// GenerateText отправляет один запрос generateContent.
func (c *geminiClient) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, UsageInfo, error) {
	if err := validatePrompt(prompt); err != nil {
		return "", UsageInfo{}, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if strings.TrimSpace(systemPrompt) != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	started := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		observe("gemini", c.model, "error", started, UsageInfo{})
		c.log.Warn("Gemini request failed", zap.Duration("duration", time.Since(started)), zap.Error(err))
		return "", UsageInfo{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		observe("gemini", c.model, "error_empty_response", started, UsageInfo{})
		return "", UsageInfo{}, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	var usage UsageInfo
	if md := resp.UsageMetadata; md != nil && md.TotalTokenCount > 0 {
		usage = UsageInfo{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	} else {
		usage = estimateUsage(systemPrompt, prompt, text)
	}
	observe("gemini", c.model, "success", started, usage)
	c.log.Debug("Gemini response received",
		zap.Duration("duration", time.Since(started)),
		zap.Int("length", len(text)),
		zap.Int("total_tokens", usage.TotalTokens))
	return text, usage, nil
}
