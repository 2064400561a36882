package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/catalog"
	"storybook-server/internal/config"
	"storybook-server/internal/domain"
	"storybook-server/internal/imagegen"
	"storybook-server/internal/scene"
	"storybook-server/internal/textgen"
)

var fixedNow = time.UnixMilli(1700000000000)

func clock() time.Time { return fixedNow }

func lion(t *testing.T) *domain.Character {
	t.Helper()
	ch, err := catalog.NewBuiltin().Get("lion")
	require.NoError(t, err)
	return ch
}

// --- Моки внешних сервисов ---

type mockText struct{ mock.Mock }

func (m *mockText) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, textgen.UsageInfo, error) {
	args := m.Called(ctx, systemPrompt, prompt)
	return args.String(0), args.Get(1).(textgen.UsageInfo), args.Error(2)
}

func (m *mockText) Model() string { return "test-model" }

type mockImages struct{ mock.Mock }

func (m *mockImages) GenerateImage(ctx context.Context, prompt string, seed int64) (string, error) {
	args := m.Called(ctx, prompt, seed)
	return args.String(0), args.Error(1)
}

func newAI(text textgen.TextGenerator, images imagegen.ImageGenerator, timeout time.Duration) *AIGenerator {
	return NewAI(AIOptions{
		Text:        text,
		Illustrator: imagegen.NewIllustrator(images, 0, zap.NewNop()),
		Language:    LanguageZH,
		Timeout:     timeout,
		Now:         clock,
	})
}

// --- Mock генератор ---

func TestMockGenerateTreasure(t *testing.T) {
	g := NewMock(MockOptions{Now: clock})
	story, err := g.Generate(context.Background(), lion(t), "a hidden treasure")
	require.NoError(t, err)

	assert.Equal(t, "1700000000000", story.ID)
	assert.Equal(t, "Leo the Lion's Big Day", story.Title)
	assert.Equal(t, "lion", story.CharacterID)
	assert.Equal(t, "a hidden treasure", story.Topic)
	assert.Equal(t, domain.OriginMock, story.Origin)
	assert.Equal(t, "https://picsum.photos/seed/1700000000000-cover/800/600", story.CoverImage)
	require.Len(t, story.Pages, 3)
	assert.Contains(t, story.Pages[0].Text, `"a hidden treasure"`)
	for i, p := range story.Pages {
		assert.Contains(t, p.Text, "Leo the Lion", "page %d names the character", i+1)
		assert.Equal(t, fmt.Sprintf("https://picsum.photos/seed/1700000000000-%d/800/600", i+1), p.ImageURL)
	}
	require.NoError(t, story.Validate())
}

func TestMockMoonTitle(t *testing.T) {
	g := NewMock(MockOptions{Now: clock})
	story, err := g.Generate(context.Background(), lion(t), "a trip to the moon")
	require.NoError(t, err)
	assert.Equal(t, "Leo the Lion's Moon Adventure", story.Title)
}

func TestMockSceneIllustrations(t *testing.T) {
	g := NewMock(MockOptions{Illustrations: IllustrationsScene, Now: clock})
	story, err := g.Generate(context.Background(), lion(t), "ice cream")
	require.NoError(t, err)
	for i, p := range story.Pages {
		assert.Equal(t, scene.SelectIllustration(p.Text, i), p.ImageURL)
	}
	assert.Equal(t, story.Pages[0].ImageURL, story.CoverImage)
}

func TestMockRequiresCharacter(t *testing.T) {
	_, err := NewMock(MockOptions{}).Generate(context.Background(), nil, "anything")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestMockLatencyHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock(MockOptions{Latency: time.Hour}).Generate(ctx, lion(t), "x")
	assert.ErrorIs(t, err, context.Canceled)
}

// --- AI генератор ---

const modelReply = "好的！\n```json\n" + `{
  "title": "小狮子的月球冒险",
  "pages": [
    {"text": "从前，有一只勇敢的小狮子。", "imagePrompt": "A lion cub looking at the moon"},
    {"text": "他坐上了火箭 {飞向} 月球。"},
    {"text": ""}
  ]
}` + "\n```"

func TestAIGenerateSuccess(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, "", mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Leo the Lion") && strings.Contains(p, "月球")
	})).Return(modelReply, textgen.UsageInfo{TotalTokens: 10}, nil).Once()

	images := new(mockImages)
	images.On("GenerateImage", mock.Anything, "A lion cub looking at the moon", int64(1700000000000)).Return("img-0", nil).Once()
	images.On("GenerateImage", mock.Anything, imagegen.DefaultPromptPrefix+"他坐上了火箭 {飞向} 月球。", int64(1700000000001)).Return("img-1", nil).Once()

	story, err := newAI(text, images, time.Second).Generate(context.Background(), lion(t), "月球")
	require.NoError(t, err)

	assert.Equal(t, "小狮子的月球冒险", story.Title)
	assert.Equal(t, domain.OriginAI, story.Origin)
	assert.Equal(t, "img-0", story.CoverImage)
	require.Len(t, story.Pages, 2, "pages without text are dropped")
	assert.Equal(t, "img-1", story.Pages[1].ImageURL)
	text.AssertExpectations(t)
	images.AssertExpectations(t)
}

func TestAIGenerateNoJSONUsesTemplatePages(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("Sorry, I cannot write stories today.", textgen.UsageInfo{}, nil)
	images := new(mockImages)
	images.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything).Return("img", nil)

	story, err := newAI(text, images, time.Second).Generate(context.Background(), lion(t), "a hidden treasure")
	require.NoError(t, err)

	assert.Equal(t, "Leo the Lion的冒险", story.Title)
	assert.Equal(t, domain.OriginFallback, story.Origin)
	require.Len(t, story.Pages, 3)
	assert.Contains(t, story.Pages[0].Text, "a hidden treasure")
	images.AssertNumberOfCalls(t, "GenerateImage", 3)
}

func TestAIGenerateTextErrorFallsBack(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", textgen.UsageInfo{}, textgen.ErrGenerationFailed)
	images := new(mockImages)

	story, err := newAI(text, images, time.Second).Generate(context.Background(), lion(t), "a hidden treasure")
	require.NoError(t, err)

	assert.Equal(t, "Leo the Lion的故事", story.Title)
	assert.Equal(t, domain.OriginFallback, story.Origin)
	require.Len(t, story.Pages, 3)
	assert.Equal(t, "从前，有一个Brave and loud的Leo the Lion。", story.Pages[0].Text)
	for i, p := range story.Pages {
		assert.Equal(t, scene.SelectIllustration(p.Text, i), p.ImageURL)
	}
	images.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAIGenerateImageErrorFallsBack(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return(modelReply, textgen.UsageInfo{}, nil)
	images := new(mockImages)
	images.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything).Return("", imagegen.ErrImageGenerationFailed)

	story, err := newAI(text, images, time.Second).Generate(context.Background(), lion(t), "a hidden treasure")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginFallback, story.Origin)
	for _, p := range story.Pages {
		assert.NotEmpty(t, p.ImageURL)
	}
	require.NoError(t, story.Validate())
}

func TestAIGenerateTimeoutFallsBack(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", textgen.UsageInfo{}, context.DeadlineExceeded)

	started := time.Now()
	story, err := newAI(text, new(mockImages), 50*time.Millisecond).Generate(context.Background(), lion(t), "x")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginFallback, story.Origin)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestAIGenerateEnglish(t *testing.T) {
	text := new(mockText)
	text.On("GenerateText", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Character: Leo the Lion (Brave and loud)")
	})).Return("", textgen.UsageInfo{}, textgen.ErrGenerationFailed)

	g := NewAI(AIOptions{
		Text:        text,
		Illustrator: imagegen.NewIllustrator(new(mockImages), 0, zap.NewNop()),
		Language:    LanguageEN,
		Now:         clock,
	})
	story, err := g.Generate(context.Background(), lion(t), "the sea")
	require.NoError(t, err)
	assert.Equal(t, "Leo the Lion's Story", story.Title)
	assert.Equal(t, "Once upon a time there was Leo the Lion, brave and loud.", story.Pages[0].Text)
	text.AssertExpectations(t)
}

func TestAIRequiresCharacter(t *testing.T) {
	_, err := newAI(new(mockText), new(mockImages), time.Second).Generate(context.Background(), nil, "x")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// --- Выбор реализации ---

func TestNewSelectsByConfig(t *testing.T) {
	cfg := &config.Config{Generation: config.GenerationConfig{Mode: config.ModeAuto, MockIllustrations: "picsum"}}
	cfg.TextGen.Provider = "gemini"

	g, err := New(cfg, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &MockGenerator{}, g)

	cfg.TextGen.APIKey = "key"
	_, err = New(cfg, Deps{})
	assert.Error(t, err, "AI mode without collaborators")

	g, err = New(cfg, Deps{Text: new(mockText), Images: new(mockImages)})
	require.NoError(t, err)
	assert.IsType(t, &AIGenerator{}, g)

	cfg.Generation.Mode = config.ModeMock
	g, err = New(cfg, Deps{Text: new(mockText), Images: new(mockImages)})
	require.NoError(t, err)
	assert.IsType(t, &MockGenerator{}, g)
}
