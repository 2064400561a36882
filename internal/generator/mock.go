package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storybook-server/internal/domain"
	"storybook-server/internal/metrics"
	"storybook-server/internal/scene"
)

// IllustrationMode - источник иллюстраций mock генератора.
type IllustrationMode string

const (
	IllustrationsPicsum IllustrationMode = "picsum" // Статичные картинки picsum по seed
	IllustrationsScene  IllustrationMode = "scene"  // Стоковые картинки по ключевым словам
)

const picsumURL = "https://picsum.photos/seed/%s/800/600"

// MockOptions - настройки MockGenerator.
type MockOptions struct {
	Illustrations IllustrationMode
	Latency       time.Duration
	Classifier    *scene.Classifier
	Now           func() time.Time
}

// MockGenerator пишет историю из трех страниц по шаблонам. Сеть не используется.
type MockGenerator struct {
	opts MockOptions
}

// NewMock создает MockGenerator.
func NewMock(opts MockOptions) *MockGenerator {
	if opts.Illustrations != IllustrationsScene {
		opts.Illustrations = IllustrationsPicsum
	}
	if opts.Classifier == nil {
		opts.Classifier = scene.Default
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MockGenerator{opts: opts}
}

// Generate создает историю. Ошибка возвращается только без персонажа или при отмене ctx во время задержки.
func (g *MockGenerator) Generate(ctx context.Context, ch *domain.Character, topic string) (*domain.Story, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: character is required", domain.ErrInvalidInput)
	}
	if g.opts.Latency > 0 {
		t := time.NewTimer(g.opts.Latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	now := g.opts.Now()
	id := domain.NewStoryID(now)
	texts := []string{
		fmt.Sprintf("Once upon a time, %s decided to go on a big adventure. \"%s\" they said excitedly!", ch.Name, topic),
		fmt.Sprintf("%s's journey was long and full of surprises. They saw sparkle stars and dancing clouds.", ch.Name),
		fmt.Sprintf("Finally, %s found exactly what they were looking for! It was the best day ever.", ch.Name),
	}

	var images []string
	var cover string
	if g.opts.Illustrations == IllustrationsScene {
		images = g.opts.Classifier.MatchStoryIllustrations(texts)
		cover = images[0]
	} else {
		for i := range texts {
			images = append(images, fmt.Sprintf(picsumURL, fmt.Sprintf("%s-%d", id, i+1)))
		}
		cover = fmt.Sprintf(picsumURL, id+"-cover")
	}

	pages := make([]domain.StoryPage, len(texts))
	for i, text := range texts {
		pages[i] = domain.StoryPage{Text: text, ImageURL: images[i]}
	}

	metrics.StoriesGeneratedTotal.WithLabelValues(string(domain.OriginMock)).Inc()
	return &domain.Story{
		ID:          id,
		Title:       mockTitle(ch.Name, topic),
		CoverImage:  cover,
		Pages:       pages,
		CharacterID: ch.ID,
		Topic:       topic,
		CreatedAt:   now.UnixMilli(),
		Origin:      domain.OriginMock,
	}, nil
}

func mockTitle(name, topic string) string {
	if mentionsMoon(topic) {
		return name + "'s Moon Adventure"
	}
	return name + "'s Big Day"
}

func mentionsMoon(topic string) bool {
	return strings.Contains(topic, "moon") || strings.Contains(topic, "月球") || strings.Contains(topic, "月亮")
}
