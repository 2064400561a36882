package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-server/internal/domain"
	"storybook-server/internal/scene"
	"storybook-server/internal/speech"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("STORYCTL_STYLE", "notty")
	t.Setenv("STORYCTL_PUSHGATEWAY_URL", "")
	t.Setenv("STORYCTL_CATALOG_FILE", "")
	t.Setenv("GENERATION_MODE", "mock")
	t.Setenv("MOCK_LATENCY", "0s")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func decodeStory(t *testing.T, out string) domain.Story {
	t.Helper()
	var s domain.Story
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	return s
}

func TestCharactersJSON(t *testing.T) {
	out, _, err := execute(t, "", "characters", "--json")
	require.NoError(t, err)

	var chars []domain.Character
	require.NoError(t, json.Unmarshal([]byte(out), &chars))
	require.Len(t, chars, 7)
	assert.Equal(t, "lion", chars[0].ID)
}

func TestCharactersTable(t *testing.T) {
	out, _, err := execute(t, "", "characters")
	require.NoError(t, err)
	assert.Contains(t, out, "Leo the Lion")
	assert.Contains(t, out, "Sun Wukong")
}

func TestClassify(t *testing.T) {
	out, _, err := execute(t, "", "classify", "A", "rocket", "flew", "to", "the", "moon", "--page", "1")
	require.NoError(t, err)
	assert.Equal(t, "space\t"+scene.Default.Illustrations(scene.Space)[1]+"\n", out)

	out, _, err = execute(t, "", "classify", "--json", "hello")
	require.NoError(t, err)
	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "adventure", res["category"])
	assert.Equal(t, scene.Default.Illustrations(scene.Adventure)[0], res["imageUrl"])
}

func TestGenerateJSON(t *testing.T) {
	out, _, err := execute(t, "", "generate", "-c", "lion", "-t", "a trip to the moon", "--json")
	require.NoError(t, err)

	s := decodeStory(t, out)
	assert.Equal(t, "Leo the Lion's Moon Adventure", s.Title)
	assert.Equal(t, "lion", s.CharacterID)
	assert.Equal(t, domain.OriginMock, s.Origin)
	assert.Len(t, s.Pages, 3)
	assert.NoError(t, s.Validate())
}

func TestGenerateMarkdown(t *testing.T) {
	out, _, err := execute(t, "", "generate", "-c", "astronaut")
	require.NoError(t, err)
	assert.Contains(t, out, "Astro Kid's Big Day")
	assert.Contains(t, out, "Page 3")
}

func TestGenerateErrors(t *testing.T) {
	_, _, err := execute(t, "", "generate")
	require.Error(t, err, "character flag is required")

	_, _, err = execute(t, "", "generate", "-c", "dragon")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func writeStory(t *testing.T) string {
	t.Helper()
	story := domain.Story{
		ID:    "7",
		Title: "Moon Picnic",
		Pages: []domain.StoryPage{
			{Text: "Leo packed a basket.", ImageURL: "https://example.com/1.jpg"},
			{Text: "They ate on the moon.", ImageURL: "https://example.com/2.jpg"},
		},
	}
	data, err := json.Marshal(story)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "story.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadFromFileAndStdin(t *testing.T) {
	path := writeStory(t)

	out, _, err := execute(t, "", "read", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Moon Picnic")
	assert.Contains(t, out, "Leo packed a basket.")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out, _, err = execute(t, string(data), "read")
	require.NoError(t, err)
	assert.Contains(t, out, "They ate on the moon.")
}

func TestReadRejectsInvalidStory(t *testing.T) {
	_, _, err := execute(t, `{"id":"1","title":"","pages":[]}`, "read", "-")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, _, err = execute(t, "not json", "read")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestReadSpeakWithCommand(t *testing.T) {
	t.Setenv("STORYCTL_TTS_COMMAND", "cat")
	path := writeStory(t)

	_, _, err := execute(t, "", "read", "--speak", path)
	require.NoError(t, err)
}

func TestReadSpeakCommandFailure(t *testing.T) {
	t.Setenv("STORYCTL_TTS_COMMAND", "false")
	path := writeStory(t)

	_, _, err := execute(t, "", "read", "--speak", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 0")
}

func TestListenPrintsTopic(t *testing.T) {
	out, status, err := execute(t, "~a rock\na rocket\nto the moon\n\n", "listen")
	require.NoError(t, err)
	assert.Equal(t, "a rocket to the moon\n", out)
	assert.Contains(t, status, "... a rock")
}

func TestListenGeneratesStory(t *testing.T) {
	out, _, err := execute(t, "a trip to the moon\n", "listen", "-c", "lion", "--json")
	require.NoError(t, err)

	s := decodeStory(t, out)
	assert.Equal(t, "a trip to the moon", s.Topic)
	assert.Equal(t, "Leo the Lion's Moon Adventure", s.Title)
}

func TestListenErrors(t *testing.T) {
	_, _, err := execute(t, "!not-allowed\n", "listen", "--lang", "zh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "麦克风权限被拒绝")
	var recErr *speech.RecognitionError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, speech.CategoryNotAllowed, recErr.Category)

	_, _, err = execute(t, "\n", "listen")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestStoryMarkdown(t *testing.T) {
	md := storyMarkdown(&domain.Story{
		Title:      "T",
		Topic:      "moon",
		CoverImage: "c.jpg",
		Pages:      []domain.StoryPage{{Text: "one", ImageURL: "1.jpg"}, {Text: "two"}},
	})
	want := "# T\n\n*moon*\n\n![cover](c.jpg)\n\n## Page 1\n\none\n\n![page 1](1.jpg)\n\n## Page 2\n\ntwo\n\n"
	assert.Equal(t, want, md)
}

func TestCharactersMarkdownEscapesPipes(t *testing.T) {
	md := charactersMarkdown([]domain.Character{{ID: "x", Name: "A|B", Description: "line\nbreak"}})
	assert.Contains(t, md, `| x | A\|B | line break |`)
}

func TestGenerateSaveAndLibrary(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("STORAGE_FILE_DIR", t.TempDir())

	out, _, err := execute(t, "", "library", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, _, err = execute(t, "", "generate", "-c", "robot", "--save", "--json")
	require.NoError(t, err)
	saved := decodeStory(t, out)

	out, _, err = execute(t, "", "library", "--json")
	require.NoError(t, err)
	var stories []domain.Story
	require.NoError(t, json.Unmarshal([]byte(out), &stories))
	require.Len(t, stories, 1)
	assert.Equal(t, saved.ID, stories[0].ID)
	assert.Equal(t, "Robo-friend's Big Day", stories[0].Title)

	out, _, err = execute(t, "", "library")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID)

	_, _, err = execute(t, "", "library", "delete", saved.ID)
	require.NoError(t, err)
	_, _, err = execute(t, "", "library", "delete", saved.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	out, _, err = execute(t, "", "library", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
