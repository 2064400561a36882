package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storybook-server/internal/config"
	"storybook-server/internal/domain"
)

func sampleStories() []domain.Story {
	return []domain.Story{
		{
			ID: "42", Title: "Leo's Big Day", CoverImage: "c", CharacterID: "lion", Topic: "treasure", CreatedAt: 42,
			Pages: []domain.StoryPage{{Text: "Once upon a time", ImageURL: "https://example.com/1.jpg"}},
		},
		{
			ID: "41", Title: "Space", CoverImage: "c2", CharacterID: "astronaut", Topic: "moon", CreatedAt: 41, Origin: domain.OriginAI,
			Pages: []domain.StoryPage{{Text: "Zoom", ImageURL: "u", AudioURL: "a.mp3"}},
		},
	}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"savedStories":[]}`, string(data))
}

// slotStoreContract проверяет общее поведение всех реализаций SlotStore.
func slotStoreContract(t *testing.T, store SlotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "story-maker-storage")
	require.True(t, errors.Is(err, ErrSlotNotFound), "got %v", err)

	require.NoError(t, store.Put(ctx, "story-maker-storage", []byte(`{"savedStories":[]}`)))
	require.NoError(t, store.Put(ctx, "story-maker-storage", []byte(`{"savedStories":[{"id":"1"}]}`)))
	require.NoError(t, store.Put(ctx, "other", []byte(`x`)))

	got, err := store.Get(ctx, "story-maker-storage")
	require.NoError(t, err)
	assert.Equal(t, `{"savedStories":[{"id":"1"}]}`, string(got))
}

func TestMemoryStore(t *testing.T) {
	slotStoreContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	slotStoreContract(t, store)

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp files must be renamed away")
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "library.db"))
	require.NoError(t, err)
	defer store.Close()
	slotStoreContract(t, store)
}

func TestLibraryRoundTrip(t *testing.T) {
	lib := NewLibrary(NewMemoryStore(), "story-maker-storage", "memory", zap.NewNop())
	ctx := context.Background()

	empty, err := lib.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, lib.Save(ctx, sampleStories()))
	got, err := lib.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleStories(), got); diff != "" {
		t.Errorf("library mismatch (-want +got):\n%s", diff)
	}
}

func TestLibraryCorruptPayloadIsEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "slot", []byte("{not json")))

	got, err := NewLibrary(store, "slot", "memory", zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLibrarySkipsInvalidStories(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "slot",
		[]byte(`{"savedStories":[{"id":"1","title":"t","pages":[]},{"id":"2","title":"ok","pages":[{"text":"a","imageUrl":"b"}]}]}`)))

	got, err := NewLibrary(store, "slot", "memory", zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestLibraryDropsDuplicateIDs(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "slot", []byte(`{"savedStories":[
		{"id":"1","title":"newest","pages":[{"text":"a","imageUrl":"b"}]},
		{"id":"2","title":"other","pages":[{"text":"a","imageUrl":"b"}]},
		{"id":"1","title":"stale copy","pages":[{"text":"a","imageUrl":"b"}]}]}`)))

	core, logs := observer.New(zap.WarnLevel)
	got, err := NewLibrary(store, "slot", "memory", zap.New(core)).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].Title)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, 1, logs.FilterMessage("Skipping duplicate stored story").Len())
}

type failingStore struct{ MemoryStore }

func (*failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}
func (*failingStore) Put(context.Context, string, []byte) error { return errors.New("disk on fire") }

func TestLibraryPropagatesStoreErrors(t *testing.T) {
	lib := NewLibrary(&failingStore{}, "slot", "memory", zap.NewNop())
	_, err := lib.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, lib.Save(context.Background(), sampleStories()))
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{"memory", "file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := &config.Config{Storage: config.StorageConfig{
				Driver: driver, Slot: "story-maker-storage",
				FileDir: filepath.Join(dir, driver), SQLitePath: filepath.Join(dir, driver, "library.db"),
			}}
			lib, err := Open(context.Background(), cfg, zap.NewNop())
			require.NoError(t, err)
			defer lib.Close()

			require.NoError(t, lib.Save(context.Background(), sampleStories()[:1]))
			got, err := lib.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "42", got[0].ID)
		})
	}

	_, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "mongo"}}, zap.NewNop())
	assert.Error(t, err)
}
