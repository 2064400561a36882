// Package textgen содержит клиентов текстовых моделей, которые пишут истории.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/metrics"
)

// ErrGenerationFailed - ошибка при генерации текста AI.
var ErrGenerationFailed = errors.New("text generation failed")

// Модели по умолчанию для провайдеров
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.1"
)

// UsageInfo содержит информацию об использовании токенов.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool // Счетчики посчитаны локально, провайдер их не вернул
}

// TextGenerator - промпт на входе, текст на выходе.
type TextGenerator interface {
	// GenerateText генерирует текст по системному промпту (может быть пустым) и вводу пользователя.
	GenerateText(ctx context.Context, systemPrompt, prompt string) (string, UsageInfo, error)
	// Model возвращает имя используемой модели.
	Model() string
}

// New создает клиент текстовой модели в зависимости от конфигурации.
func New(ctx context.Context, cfg config.TextGenConfig, log *zap.Logger) (TextGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return newGeminiClient(ctx, cfg, log)
	case "openai":
		return newOpenAIClient(cfg, log), nil
	case "ollama":
		return newOllamaClient(cfg, log)
	default:
		return nil, fmt.Errorf("unknown AI provider: '%s'", cfg.Provider)
	}
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) == "" {
		return def
	}
	return model
}

func validatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrGenerationFailed)
	}
	return nil
}

// observe записывает метрики завершенного запроса.
func observe(provider, model, status string, started time.Time, usage UsageInfo) {
	metrics.AIRequestsTotal.WithLabelValues(provider, model, status).Inc()
	if status != "success" {
		return
	}
	metrics.AIRequestDuration.WithLabelValues(provider, model).Observe(time.Since(started).Seconds())
	if usage.TotalTokens == 0 {
		return
	}
	promptKind := "prompt"
	if usage.Estimated {
		promptKind = "estimated_prompt"
	}
	metrics.AITokens.WithLabelValues(provider, model, promptKind).Observe(float64(usage.PromptTokens))
	if usage.CompletionTokens > 0 {
		metrics.AITokens.WithLabelValues(provider, model, "completion").Observe(float64(usage.CompletionTokens))
	}
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens оценивает число токенов текста через tiktoken (cl100k_base).
// Возвращает 0, если словарь недоступен.
func EstimateTokens(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil || text == "" {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// estimateUsage заполняет usage локальной оценкой, если провайдер не вернул счетчики.
func estimateUsage(systemPrompt, prompt, completion string) UsageInfo {
	p := EstimateTokens(systemPrompt) + EstimateTokens(prompt)
	c := EstimateTokens(completion)
	return UsageInfo{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c, Estimated: true}
}
