// Package catalog хранит фиксированный набор персонажей, о которых пишутся истории.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"storybook-server/internal/domain"
)

// Builtin возвращает встроенный каталог из семи персонажей.
func Builtin() []domain.Character {
	const avatar = "https://api.dicebear.com/7.x/fun-emoji/svg?seed="
	return []domain.Character{
		{ID: "lion", Name: "Leo the Lion", AvatarURL: avatar + "Leo", SoundEffect: "roar.mp3", Description: "Brave and loud"},
		{ID: "astronaut", Name: "Astro Kid", AvatarURL: avatar + "Astro", SoundEffect: "beep.mp3", Description: "Loves stars"},
		{ID: "princess", Name: "Princess Pea", AvatarURL: avatar + "Princess", SoundEffect: "magic.mp3", Description: "Kind and magical"},
		{ID: "robot", Name: "Robo-friend", AvatarURL: avatar + "Robot", SoundEffect: "boop.mp3", Description: "Smart and helpful"},
		{ID: "ultraman", Name: "Ultraman", AvatarURL: avatar + "Ultraman", SoundEffect: "hero.mp3", Description: "Protector of Earth"},
		{ID: "wukong", Name: "Sun Wukong", AvatarURL: avatar + "Monkey", SoundEffect: "monkey.mp3", Description: "Monkey King"},
		{ID: "archie", Name: "Archie", AvatarURL: avatar + "Archie", SoundEffect: "woof.mp3", Description: "Loyal friend"},
	}
}

// Catalog - потокобезопасный каталог персонажей с возможностью замены целиком.
type Catalog struct {
	mu    sync.RWMutex
	list  []domain.Character
	index map[string]int
}

// New создает каталог. Персонажи проверяются на пустые и повторяющиеся id.
func New(chars []domain.Character) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(chars); err != nil {
		return nil, err
	}
	return c, nil
}

// NewBuiltin создает каталог со встроенными персонажами.
func NewBuiltin() *Catalog {
	c, err := New(Builtin())
	if err != nil {
		panic(err) // встроенный список валиден
	}
	return c
}

// Replace атомарно заменяет содержимое каталога.
func (c *Catalog) Replace(chars []domain.Character) error {
	if len(chars) == 0 {
		return fmt.Errorf("%w: catalog must contain at least one character", domain.ErrInvalidInput)
	}
	index := make(map[string]int, len(chars))
	for i, ch := range chars {
		if strings.TrimSpace(ch.ID) == "" || strings.TrimSpace(ch.Name) == "" {
			return fmt.Errorf("%w: character #%d has empty id or name", domain.ErrInvalidInput, i)
		}
		if _, dup := index[ch.ID]; dup {
			return fmt.Errorf("%w: duplicate character id %q", domain.ErrInvalidInput, ch.ID)
		}
		index[ch.ID] = i
	}
	list := make([]domain.Character, len(chars))
	copy(list, chars)

	c.mu.Lock()
	c.list, c.index = list, index
	c.mu.Unlock()
	return nil
}

// List возвращает копию списка персонажей в порядке каталога.
func (c *Catalog) List() []domain.Character {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Character, len(c.list))
	copy(out, c.list)
	return out
}

// Get возвращает персонажа по id или domain.ErrNotFound.
func (c *Catalog) Get(id string) (*domain.Character, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("character %q: %w", id, domain.ErrNotFound)
	}
	ch := c.list[i]
	return &ch, nil
}

// fileFormat - формат YAML файла каталога.
type fileFormat struct {
	Characters []domain.Character `yaml:"characters"`
}

// ParseYAML разбирает каталог из YAML.
func ParseYAML(data []byte) ([]domain.Character, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	return f.Characters, nil
}

// LoadFile читает персонажей из YAML файла.
func LoadFile(path string) ([]domain.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ReloadFile перечитывает файл и заменяет каталог. При ошибке каталог не меняется.
func (c *Catalog) ReloadFile(path string) error {
	chars, err := LoadFile(path)
	if err != nil {
		return err
	}
	return c.Replace(chars)
}
