package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/catalog"
	"storybook-server/internal/domain"
	"storybook-server/internal/generator"
	"storybook-server/internal/middleware"
	"storybook-server/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = func() time.Time { return time.UnixMilli(1700000000000) }

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, ch *domain.Character, topic string) (*domain.Story, error) {
	args := m.Called(ctx, ch, topic)
	story, _ := args.Get(0).(*domain.Story)
	return story, args.Error(1)
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
}

func newEnv(t *testing.T, gen generator.Generator, limiter gin.HandlerFunc) *testEnv {
	t.Helper()
	st := store.New(context.Background(), nil, zap.NewNop(), store.Options{})
	t.Cleanup(st.Close)
	if gen == nil {
		gen = generator.NewMock(generator.MockOptions{Now: fixedNow})
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	NewStoryHandler(st, catalog.NewBuiltin(), gen, nil, nil, zap.NewNop()).RegisterRoutes(router, limiter)
	return &testEnv{router: router, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndCharacters(t *testing.T) {
	env := newEnv(t, nil, nil)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/v1/characters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[characterListResponse](t, rec)
	assert.Len(t, resp.Characters, 7)
	assert.Equal(t, "lion", resp.Characters[0].ID)
}

func TestGenerateFlow(t *testing.T) {
	env := newEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no character selected")

	rec = env.do(t, http.MethodPut, "/api/v1/session/character", map[string]any{"characterId": "lion"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPut, "/api/v1/session/topic", map[string]any{"topic": " treasure "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "treasure", decode[domain.Session](t, rec).RecordedTopic)

	rec = env.do(t, http.MethodPost, "/api/v1/session/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	story := decode[domain.Story](t, rec)
	assert.Equal(t, "1700000000000", story.ID)
	assert.Equal(t, "Leo the Lion's Big Day", story.Title)
	assert.Len(t, story.Pages, 3)
	assert.Equal(t, domain.OriginMock, story.Origin)

	sess := env.store.Snapshot().Session
	assert.False(t, sess.IsGenerating)
	require.NotNil(t, sess.CurrentStory)
	assert.Equal(t, story.ID, sess.CurrentStory.ID)

	rec = env.do(t, http.MethodPost, "/api/v1/library", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/library", nil)
	lib := decode[libraryResponse](t, rec)
	require.Len(t, lib.SavedStories, 1)
	assert.Equal(t, story.ID, lib.SavedStories[0].ID)
}

func TestGenerateWithBodyOverrides(t *testing.T) {
	env := newEnv(t, nil, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", map[string]any{"characterId": "astronaut", "topic": "trip to the moon"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Astro Kid's Moon Adventure", decode[domain.Story](t, rec).Title)

	sess := env.store.Snapshot().Session
	assert.Equal(t, "astronaut", sess.SelectedCharacter.ID)
	assert.Equal(t, "trip to the moon", sess.RecordedTopic)

	rec = env.do(t, http.MethodPost, "/api/v1/session/generate", map[string]any{"characterId": "dragon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateErrorClearsFlag(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, "x").Return(nil, context.Canceled)
	env := newEnv(t, gen, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", map[string]any{"characterId": "lion", "topic": "x"})
	assert.Equal(t, 499, rec.Code)
	assert.False(t, env.store.Snapshot().Session.IsGenerating)
	assert.Nil(t, env.store.Snapshot().Session.CurrentStory)
}

func TestGenerateConflictWhileGenerating(t *testing.T) {
	gen := new(mockGenerator)
	env := newEnv(t, gen, nil)
	env.store.SelectCharacter(&domain.Character{ID: "lion", Name: "Leo"})
	_, err := env.store.BeginGeneration()
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrCodeConflict, decode[ErrorResponse](t, rec).Code)
	assert.True(t, env.store.Snapshot().Session.IsGenerating, "the running generation keeps its flag")
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateInternalError(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	env := newEnv(t, gen, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", map[string]any{"characterId": "lion"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.store.Snapshot().Session.IsGenerating)
}

func TestSelectCharacterNullClears(t *testing.T) {
	env := newEnv(t, nil, nil)
	env.do(t, http.MethodPut, "/api/v1/session/character", map[string]any{"characterId": "robot"})
	rec := env.do(t, http.MethodPut, "/api/v1/session/character", map[string]any{"characterId": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[domain.Session](t, rec).SelectedCharacter)

	rec = env.do(t, http.MethodPut, "/api/v1/session/character", map[string]any{"characterId": "unknown"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLibraryEndpoints(t *testing.T) {
	env := newEnv(t, nil, nil)
	story := domain.Story{ID: "42", Title: "Space", Pages: []domain.StoryPage{{Text: "Zoom", ImageURL: "u"}}}

	rec := env.do(t, http.MethodPost, "/api/v1/library", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no current story")

	rec = env.do(t, http.MethodPost, "/api/v1/library", map[string]any{"id": "x", "title": "t", "pages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/library", story)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/library/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Space", decode[domain.Story](t, rec).Title)

	rec = env.do(t, http.MethodGet, "/api/v1/library/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/library/42/pages", map[string]any{"pages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pages := []domain.StoryPage{{Text: "Edited", ImageURL: "u"}, {Text: "More", ImageURL: "v"}}
	rec = env.do(t, http.MethodPut, "/api/v1/library/42/pages", map[string]any{"pages": pages})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pages, decode[domain.Story](t, rec).Pages)

	rec = env.do(t, http.MethodPut, "/api/v1/library/missing/pages", map[string]any{"pages": pages})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/library/42", nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/library/42", nil).Code)
	assert.Empty(t, env.store.Library())
}

func TestResetSession(t *testing.T) {
	env := newEnv(t, nil, nil)
	env.do(t, http.MethodPut, "/api/v1/session/topic", map[string]any{"topic": "moon"})
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/session", nil).Code)
	assert.Equal(t, domain.Session{}, env.store.Snapshot().Session)
}

func TestClassifyScene(t *testing.T) {
	env := newEnv(t, nil, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/scenes/classify", map[string]any{"text": "A rocket flew to the moon", "pageIndex": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[classifyResponse](t, rec)
	assert.Equal(t, "space", resp.Category)
	assert.NotEmpty(t, resp.ImageURL)

	rec = env.do(t, http.MethodPost, "/api/v1/scenes/classify", map[string]any{"pageIndex": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRateLimit(t *testing.T) {
	env := newEnv(t, nil, NewGenerateRateLimiter(2, zap.NewNop()))
	body := map[string]any{"characterId": "lion", "topic": "t"}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/session/generate", body).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/session/generate", body).Code)

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, ErrCodeRateLimited, decode[ErrorResponse](t, rec).Code)

	// остальные маршруты не ограничены
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/session", nil).Code)
}

// switchingStore меняет персонажа прямо перед подъемом флага, как параллельный PUT /session/character.
type switchingStore struct {
	*store.Store
	next *domain.Character
}

func (s *switchingStore) BeginGeneration() (domain.Session, error) {
	s.SelectCharacter(s.next)
	return s.Store.BeginGeneration()
}

func newSwitchingEnv(t *testing.T, gen generator.Generator, next *domain.Character) *testEnv {
	t.Helper()
	st := store.New(context.Background(), nil, zap.NewNop(), store.Options{})
	t.Cleanup(st.Close)
	router := gin.New()
	NewStoryHandler(&switchingStore{Store: st, next: next}, catalog.NewBuiltin(), gen, nil, nil, zap.NewNop()).
		RegisterRoutes(router, nil)
	return &testEnv{router: router, store: st}
}

func TestGenerateUsesCharacterSelectedAtStart(t *testing.T) {
	astronaut := &domain.Character{ID: "astronaut", Name: "Astro Kid"}
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(ch *domain.Character) bool {
		return ch != nil && ch.ID == "astronaut"
	}), "moon").Return(&domain.Story{
		ID: "1", Title: "t", Pages: []domain.StoryPage{{Text: "a", ImageURL: "b"}},
	}, nil)

	env := newSwitchingEnv(t, gen, astronaut)
	env.store.SelectCharacter(&domain.Character{ID: "lion", Name: "Leo the Lion"})
	env.store.SetTopic("moon")

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen.AssertExpectations(t)
	assert.False(t, env.store.Snapshot().Session.IsGenerating)
}

func TestGenerateCharacterClearedBeforeStart(t *testing.T) {
	gen := new(mockGenerator)
	env := newSwitchingEnv(t, gen, nil)
	env.store.SelectCharacter(&domain.Character{ID: "lion", Name: "Leo the Lion"})

	rec := env.do(t, http.MethodPost, "/api/v1/session/generate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.store.Snapshot().Session.IsGenerating, "the flag is released")
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}
