package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Origin описывает, каким путем была получена история.
type Origin string

const (
	OriginMock     Origin = "mock"     // Детерминированный генератор без сети
	OriginAI       Origin = "ai"       // Текст и иллюстрации от AI
	OriginFallback Origin = "fallback" // Упрощенная история после ошибки AI
)

// Character - персонаж из каталога, о котором пишется история.
type Character struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	AvatarURL   string `json:"avatarUrl" yaml:"avatarUrl"`
	SoundEffect string `json:"soundEffect,omitempty" yaml:"soundEffect,omitempty"`
	Description string `json:"description" yaml:"description"`
}

// StoryPage - одна страница истории.
type StoryPage struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	AudioURL string `json:"audioUrl,omitempty"`
}

// Story - титулованная упорядоченная последовательность страниц.
// После создания изменяемым остается только Pages (замена целиком).
type Story struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	CoverImage  string      `json:"coverImage"`
	Pages       []StoryPage `json:"pages"`
	CharacterID string      `json:"characterId"`
	Topic       string      `json:"topic"`
	CreatedAt   int64       `json:"createdAt"` // epoch ms
	Origin      Origin      `json:"origin,omitempty"`
}

// NewStoryID возвращает идентификатор истории на основе времени (epoch ms).
func NewStoryID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// Validate проверяет инварианты истории: непустые id, заголовок и страницы.
func (s *Story) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: story is nil", ErrInvalidInput)
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: story id is empty", ErrInvalidInput)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: story title is empty", ErrInvalidInput)
	}
	return ValidatePages(s.Pages)
}

// ValidatePages проверяет, что последовательность страниц не пуста и каждая
// страница содержит текст и иллюстрацию.
func ValidatePages(pages []StoryPage) error {
	if len(pages) == 0 {
		return fmt.Errorf("%w: story must have at least one page", ErrInvalidInput)
	}
	for i, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: page %d has empty text", ErrInvalidInput, i)
		}
		if strings.TrimSpace(p.ImageURL) == "" {
			return fmt.Errorf("%w: page %d has empty image url", ErrInvalidInput, i)
		}
	}
	return nil
}

// Clone возвращает глубокую копию истории, чтобы наблюдатели не делили срез страниц.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	c := *s
	c.Pages = ClonePages(s.Pages)
	return &c
}

// ClonePages копирует срез страниц.
func ClonePages(pages []StoryPage) []StoryPage {
	if pages == nil {
		return nil
	}
	out := make([]StoryPage, len(pages))
	copy(out, pages)
	return out
}
