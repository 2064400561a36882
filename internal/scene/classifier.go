// Package scene подбирает стоковую иллюстрацию к тексту страницы по ключевым словам.
package scene

import "strings"

// Classifier сопоставляет текст с одной из категорий фиксированной таблицы.
// Чистая функция от (text, pageIndex) и таблицы, безопасна для конкурентного использования.
type Classifier struct {
	scenes []Scene
	index  map[Category]int
}

// New создает классификатор по таблице сцен. Порядок таблицы задает приоритет при равенстве очков.
// Сцены без иллюстраций пропускаются.
func New(scenes []Scene) *Classifier {
	c := &Classifier{index: make(map[Category]int, len(scenes))}
	for _, s := range scenes {
		if len(s.Images) == 0 {
			continue
		}
		if _, dup := c.index[s.Category]; dup {
			continue
		}
		c.index[s.Category] = len(c.scenes)
		c.scenes = append(c.scenes, s)
	}
	return c
}

// Default - классификатор со встроенной таблицей из 15 категорий.
var Default = New(defaultScenes)

// Score возвращает число различных ключевых слов категории, встречающихся в тексте.
func (c *Classifier) Score(text string, category Category) int {
	i, ok := c.index[category]
	if !ok {
		return 0
	}
	return score(text, c.scenes[i].Keywords)
}

func score(text string, keywords []string) int {
	n := 0
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// Classify возвращает категорию со строго наибольшим счетом.
// При равенстве побеждает объявленная раньше, без совпадений - DefaultCategory.
func (c *Classifier) Classify(text string) Category {
	best := DefaultCategory
	bestScore := 0
	for _, s := range c.scenes {
		if sc := score(text, s.Keywords); sc > bestScore {
			best, bestScore = s.Category, sc
		}
	}
	return best
}

// SelectIllustration выбирает иллюстрацию категории текста по индексу страницы (pageIndex mod len).
func (c *Classifier) SelectIllustration(text string, pageIndex int) string {
	images := c.Illustrations(c.Classify(text))
	if len(images) == 0 {
		return ""
	}
	i := pageIndex % len(images)
	if i < 0 {
		i += len(images)
	}
	return images[i]
}

// MatchStoryIllustrations подбирает иллюстрацию для каждой страницы, индекс = позиция страницы.
func (c *Classifier) MatchStoryIllustrations(texts []string) []string {
	urls := make([]string, len(texts))
	for i, t := range texts {
		urls[i] = c.SelectIllustration(t, i)
	}
	return urls
}

// Categories возвращает категории в порядке объявления.
func (c *Classifier) Categories() []Category {
	out := make([]Category, len(c.scenes))
	for i, s := range c.scenes {
		out[i] = s.Category
	}
	return out
}

// Illustrations возвращает копию списка иллюстраций категории.
func (c *Classifier) Illustrations(category Category) []string {
	i, ok := c.index[category]
	if !ok {
		return nil
	}
	return append([]string(nil), c.scenes[i].Images...)
}

// Classify классифицирует текст встроенной таблицей.
func Classify(text string) Category { return Default.Classify(text) }

// SelectIllustration выбирает иллюстрацию встроенной таблицей.
func SelectIllustration(text string, pageIndex int) string {
	return Default.SelectIllustration(text, pageIndex)
}

// MatchStoryIllustrations подбирает иллюстрации для всех страниц встроенной таблицей.
func MatchStoryIllustrations(texts []string) []string {
	return Default.MatchStoryIllustrations(texts)
}
