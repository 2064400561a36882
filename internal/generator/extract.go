package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject возвращает первый JSON объект верхнего уровня из текста модели:
// от первой '{' до парной ей '}' с учетом строк и экранирования.
// Если скобки не сходятся, берется участок до последней '}'.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}
	part := text[start:]

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(part); i++ {
		c := part[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return part[:i+1], nil
			}
		}
	}

	if end := strings.LastIndexByte(part, '}'); end > 0 {
		return part[:end+1], nil
	}
	return "", ErrNoJSONObject
}

// storyData - структура ответа модели.
type storyData struct {
	Title string     `json:"title"`
	Pages []pageData `json:"pages"`
}

type pageData struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
}

// parseStoryData извлекает и разбирает историю. Страницы без текста отбрасываются.
func parseStoryData(text string) (*storyData, error) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var data storyData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story JSON: %w", err)
	}
	pages := data.Pages[:0]
	for _, p := range data.Pages {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}
		pages = append(pages, p)
	}
	data.Pages = pages
	data.Title = strings.TrimSpace(data.Title)
	if len(data.Pages) == 0 {
		return nil, fmt.Errorf("story JSON has no pages")
	}
	return &data, nil
}
