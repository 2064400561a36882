package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybook-server/internal/domain"
)

func TestBuiltin(t *testing.T) {
	c := NewBuiltin()
	list := c.List()
	require.Len(t, list, 7)
	assert.Equal(t, "lion", list[0].ID)
	assert.Equal(t, "archie", list[6].ID)

	lion, err := c.Get("lion")
	require.NoError(t, err)
	assert.Equal(t, "Leo the Lion", lion.Name)
	assert.Equal(t, "Brave and loud", lion.Description)
}

func TestGetUnknown(t *testing.T) {
	_, err := NewBuiltin().Get("dragon")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = New([]domain.Character{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = New([]domain.Character{{ID: "", Name: "A"}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestListReturnsCopy(t *testing.T) {
	c := NewBuiltin()
	list := c.List()
	list[0].Name = "changed"
	got, err := c.Get("lion")
	require.NoError(t, err)
	assert.Equal(t, "Leo the Lion", got.Name)
}

const catalogYAML = `characters:
  - id: dragon
    name: Dara the Dragon
    avatarUrl: https://example.com/dara.svg
    description: Breathes bubbles
  - id: owl
    name: Wise Owl
    avatarUrl: https://example.com/owl.svg
    soundEffect: hoot.mp3
    description: Knows every star
`

func TestParseYAML(t *testing.T) {
	chars, err := ParseYAML([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, chars, 2)
	assert.Equal(t, domain.Character{
		ID: "owl", Name: "Wise Owl", AvatarURL: "https://example.com/owl.svg",
		SoundEffect: "hoot.mp3", Description: "Knows every star",
	}, chars[1])

	_, err = ParseYAML([]byte("characters: [oops"))
	assert.Error(t, err)
}

func TestReloadFileKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("characters: []\n"), 0o644))

	c := NewBuiltin()
	require.Error(t, c.ReloadFile(path))
	assert.Len(t, c.List(), 7)

	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))
	require.NoError(t, c.ReloadFile(path))
	assert.Len(t, c.List(), 2)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("characters:\n  - id: a\n    name: A\n"), 0o644))

	c, err := New([]domain.Character{{ID: "a", Name: "A"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, path, zap.NewNop()) }()

	// Повторяем запись, пока наблюдатель не подхватит файл
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(catalogYAML), 0o644)
		_, err := c.Get("dragon")
		return err == nil
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
