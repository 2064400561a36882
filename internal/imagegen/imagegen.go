// Package imagegen строит иллюстрации к страницам истории.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/metrics"
)

// ErrImageGenerationFailed - ошибка при генерации изображения.
var ErrImageGenerationFailed = errors.New("image generation failed")

// ErrImageSaveFailed - ошибка при сохранении файла изображения.
var ErrImageSaveFailed = errors.New("image save failed")

// DefaultPromptPrefix используется, когда у страницы нет собственного описания иллюстрации.
const DefaultPromptPrefix = "Children's storybook illustration of: "

const pageTextPromptLimit = 100

// ImageGenerator превращает промпт и seed в адрес изображения.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, seed int64) (string, error)
}

// Page - данные страницы, нужные для иллюстрации.
type Page struct {
	Text        string
	ImagePrompt string
}

// PagePrompt возвращает промпт страницы: ее описание иллюстрации или начало текста.
func PagePrompt(p Page) string {
	if strings.TrimSpace(p.ImagePrompt) != "" {
		return p.ImagePrompt
	}
	text := []rune(p.Text)
	if len(text) > pageTextPromptLimit {
		text = text[:pageTextPromptLimit]
	}
	return DefaultPromptPrefix + string(text)
}

// New создает генератор изображений в зависимости от конфигурации.
func New(cfg config.ImageGenConfig, log *zap.Logger) (ImageGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "pollinations":
		return NewPollinations(cfg), nil
	case "sana":
		return NewSana(cfg, log)
	default:
		return nil, fmt.Errorf("unknown image provider: '%s'", cfg.Provider)
	}
}

// Illustrator иллюстрирует истории постранично: последовательно, с паузой между запросами.
type Illustrator struct {
	gen   ImageGenerator
	delay time.Duration
	log   *zap.Logger
}

// NewIllustrator создает Illustrator. delay - пауза между запросами страниц.
func NewIllustrator(gen ImageGenerator, delay time.Duration, log *zap.Logger) *Illustrator {
	return &Illustrator{gen: gen, delay: delay, log: log}
}

// GenerateStoryImages возвращает по одному адресу на страницу. seed страницы = baseSeed + индекс.
// Первая ошибка прерывает обработку.
func (il *Illustrator) GenerateStoryImages(ctx context.Context, pages []Page, baseSeed int64) ([]string, error) {
	urls := make([]string, 0, len(pages))
	for i, p := range pages {
		url, err := il.gen.GenerateImage(ctx, PagePrompt(p), baseSeed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		urls = append(urls, url)

		if i < len(pages)-1 && il.delay > 0 {
			if err := sleep(ctx, il.delay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
			}
		}
	}
	il.log.Debug("Story images generated", zap.Int("pages", len(urls)), zap.Int64("base_seed", baseSeed))
	return urls, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func countRequest(provider string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ImageRequestsTotal.WithLabelValues(provider, status).Inc()
}
