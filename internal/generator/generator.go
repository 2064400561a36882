// Package generator превращает персонажа и тему в готовую иллюстрированную историю.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/domain"
	"storybook-server/internal/imagegen"
	"storybook-server/internal/scene"
	"storybook-server/internal/textgen"
)

// ErrNoJSONObject - в ответе модели нет JSON объекта.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// Generator создает историю о персонаже на заданную тему.
// Единственная возвращаемая ошибка сбоя - domain.ErrInvalidInput (нет персонажа);
// сбои внешних сервисов скрываются упрощенной историей.
type Generator interface {
	Generate(ctx context.Context, character *domain.Character, topic string) (*domain.Story, error)
}

// Deps - внешние зависимости генераторов.
type Deps struct {
	Text       textgen.TextGenerator
	Images     imagegen.ImageGenerator
	Classifier *scene.Classifier
	Log        *zap.Logger
	Now        func() time.Time
}

// New выбирает реализацию по конфигурации: AI при наличии учетных данных, иначе mock.
func New(cfg *config.Config, deps Deps) (Generator, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Classifier == nil {
		deps.Classifier = scene.Default
	}

	if !cfg.UseAI() {
		mode := IllustrationMode(cfg.Generation.MockIllustrations)
		deps.Log.Info("Using mock story generator", zap.String("illustrations", string(mode)))
		return NewMock(MockOptions{
			Illustrations: mode,
			Latency:       cfg.Generation.MockLatency,
			Classifier:    deps.Classifier,
			Now:           deps.Now,
		}), nil
	}

	if deps.Text == nil || deps.Images == nil {
		return nil, fmt.Errorf("AI generator requires text and image generators")
	}
	deps.Log.Info("Using AI story generator",
		zap.String("model", deps.Text.Model()),
		zap.String("language", cfg.Generation.Language),
		zap.Duration("timeout", cfg.Generation.Timeout))
	return NewAI(AIOptions{
		Text:        deps.Text,
		Illustrator: imagegen.NewIllustrator(deps.Images, cfg.Generation.ImageDelay, deps.Log.Named("images")),
		Classifier:  deps.Classifier,
		Language:    Language(cfg.Generation.Language),
		Timeout:     cfg.Generation.Timeout,
		Now:         deps.Now,
		Log:         deps.Log,
	}), nil
}

// FromConfig строит генератор вместе с внешними клиентами: текстовая модель и иллюстрации
// создаются только в AI режиме.
func FromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	deps := Deps{Log: log.Named("generator")}
	if cfg.UseAI() {
		text, err := textgen.New(ctx, cfg.TextGen, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create text generator: %w", err)
		}
		images, err := imagegen.New(cfg.ImageGen, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create image generator: %w", err)
		}
		deps.Text, deps.Images = text, images
	}
	return New(cfg, deps)
}
