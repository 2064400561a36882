package imagegen

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"storybook-server/internal/config"
)

// Pollinations строит адрес изображения Pollinations. Сеть не используется:
// изображение рендерится, когда клиент открывает адрес.
type Pollinations struct {
	baseURL     string
	styleSuffix string
	width       int
	height      int
}

// NewPollinations создает построитель адресов Pollinations.
func NewPollinations(cfg config.ImageGenConfig) *Pollinations {
	base := cfg.BaseURL
	if base == "" {
		base = "https://image.pollinations.ai/prompt/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 600
	}
	return &Pollinations{baseURL: base, styleSuffix: cfg.StyleSuffix, width: w, height: h}
}

// GenerateImage возвращает адрес изображения. Нулевой seed не передается.
func (p *Pollinations) GenerateImage(ctx context.Context, prompt string, seed int64) (string, error) {
	if err := ctx.Err(); err != nil {
		countRequest("pollinations", err)
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if strings.TrimSpace(prompt) == "" {
		countRequest("pollinations", ErrImageGenerationFailed)
		return "", fmt.Errorf("%w: prompt is empty", ErrImageGenerationFailed)
	}
	var b strings.Builder
	b.WriteString(p.baseURL)
	b.WriteString(encodeComponent(prompt + p.styleSuffix))
	fmt.Fprintf(&b, "?width=%d&height=%d&nologo=true", p.width, p.height)
	if seed != 0 {
		fmt.Fprintf(&b, "&seed=%d", seed)
	}
	countRequest("pollinations", nil)
	return b.String(), nil
}

// encodeComponent кодирует строку как отдельный сегмент пути (пробел = %20).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
