package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/imagegen"
	"storybook-server/internal/metrics"
	"storybook-server/internal/scene"
	"storybook-server/internal/textgen"
)

// Причины перехода на упрощенную историю
const (
	reasonText    = "text_error"
	reasonParse   = "parse_error"
	reasonImages  = "image_error"
	reasonTimeout = "timeout"
)

// AIOptions - настройки AIGenerator.
type AIOptions struct {
	Text        textgen.TextGenerator
	Illustrator *imagegen.Illustrator
	Classifier  *scene.Classifier
	Language    Language
	Timeout     time.Duration
	Now         func() time.Time
	Log         *zap.Logger
}

// AIGenerator пишет историю текстовой моделью и иллюстрирует ее генератором изображений.
type AIGenerator struct {
	opts AIOptions
	log  *zap.Logger
}

// NewAI создает AIGenerator.
func NewAI(opts AIOptions) *AIGenerator {
	if opts.Language != LanguageEN {
		opts.Language = LanguageZH
	}
	if opts.Classifier == nil {
		opts.Classifier = scene.Default
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &AIGenerator{opts: opts, log: opts.Log.Named("generator")}
}

// Generate возвращает историю от модели, а при любом сбое - упрощенную историю
// со стоковыми иллюстрациями. Ошибка возвращается только без персонажа.
func (g *AIGenerator) Generate(ctx context.Context, ch *domain.Character, topic string) (*domain.Story, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: character is required", domain.ErrInvalidInput)
	}
	started := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(started).Seconds()) }()

	log := g.log.With(zap.String("character_id", ch.ID), zap.String("topic", topic))

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	story, reason, err := g.generate(ctx, ch, topic, log)
	if err != nil {
		if ctx.Err() != nil {
			reason = reasonTimeout
		}
		metrics.FallbacksTotal.WithLabelValues(reason).Inc()
		log.Warn("Story generation failed, using fallback story", zap.String("reason", reason), zap.Error(err))
		story = g.fallbackStory(ch, topic)
	}
	metrics.StoriesGeneratedTotal.WithLabelValues(string(story.Origin)).Inc()
	log.Info("Story generated",
		zap.String("story_id", story.ID),
		zap.String("origin", string(story.Origin)),
		zap.Int("pages", len(story.Pages)),
		zap.Duration("duration", time.Since(started)))
	return story, nil
}

func (g *AIGenerator) generate(ctx context.Context, ch *domain.Character, topic string, log *zap.Logger) (*domain.Story, string, error) {
	text, usage, err := g.opts.Text.GenerateText(ctx, "", BuildPrompt(g.opts.Language, ch, topic))
	if err != nil {
		return nil, reasonText, err
	}
	log.Debug("Model response received", zap.Int("length", len(text)), zap.Int("total_tokens", usage.TotalTokens))

	origin := domain.OriginAI
	data, err := parseStoryData(text)
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues(reasonParse).Inc()
		log.Warn("Failed to parse model response, using template pages", zap.Error(err))
		data = parseFallback(g.opts.Language, ch, topic)
		origin = domain.OriginFallback
	}
	if data.Title == "" {
		data.Title = parseFallback(g.opts.Language, ch, topic).Title
	}

	now := g.opts.Now()
	id := domain.NewStoryID(now)

	reqs := make([]imagegen.Page, len(data.Pages))
	for i, p := range data.Pages {
		reqs[i] = imagegen.Page{Text: p.Text, ImagePrompt: p.ImagePrompt}
	}
	urls, err := g.opts.Illustrator.GenerateStoryImages(ctx, reqs, now.UnixMilli())
	if err != nil {
		return nil, reasonImages, err
	}
	if len(urls) != len(data.Pages) {
		return nil, reasonImages, errors.New("illustrator returned wrong number of images")
	}

	pages := make([]domain.StoryPage, len(data.Pages))
	for i, p := range data.Pages {
		pages[i] = domain.StoryPage{Text: p.Text, ImageURL: urls[i]}
	}
	story := &domain.Story{
		ID:          id,
		Title:       data.Title,
		CoverImage:  urls[0],
		Pages:       pages,
		CharacterID: ch.ID,
		Topic:       topic,
		CreatedAt:   now.UnixMilli(),
		Origin:      origin,
	}
	if err := story.Validate(); err != nil {
		return nil, reasonImages, err
	}
	return story, "", nil
}

// fallbackStory собирает упрощенную историю без сети.
func (g *AIGenerator) fallbackStory(ch *domain.Character, topic string) *domain.Story {
	now := g.opts.Now()
	title, texts := simpleFallback(g.opts.Language, ch, topic)
	urls := g.opts.Classifier.MatchStoryIllustrations(texts)
	pages := make([]domain.StoryPage, len(texts))
	for i, t := range texts {
		pages[i] = domain.StoryPage{Text: t, ImageURL: urls[i]}
	}
	return &domain.Story{
		ID:          domain.NewStoryID(now),
		Title:       title,
		CoverImage:  urls[0],
		Pages:       pages,
		CharacterID: ch.ID,
		Topic:       topic,
		CreatedAt:   now.UnixMilli(),
		Origin:      domain.OriginFallback,
	}
}
