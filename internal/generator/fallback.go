package generator

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"storybook-server/internal/domain"
)

// parseFallback - заготовка истории, когда ответ модели не удалось разобрать.
// Иллюстрации для нее все равно запрашиваются у генератора изображений.
func parseFallback(lang Language, ch *domain.Character, topic string) *storyData {
	if lang == LanguageEN {
		return &storyData{
			Title: fmt.Sprintf("%s's Adventure", ch.Name),
			Pages: []pageData{
				{Text: fmt.Sprintf("Once upon a time there was %s, %s. One day something happened about %s...", ch.Name, lowerFirst(ch.Description), topic)},
				{Text: fmt.Sprintf("%s bravely faced the challenge and learned a lot.", ch.Name)},
				{Text: "In the end everything turned out well. What a happy day!"},
			},
		}
	}
	return &storyData{
		Title: fmt.Sprintf("%s的冒险", ch.Name),
		Pages: []pageData{
			{Text: fmt.Sprintf("从前，有一个%s的%s。有一天，关于%s的事情发生了...", ch.Description, ch.Name, topic)},
			{Text: fmt.Sprintf("%s勇敢地面对挑战，学到了很多东西。", ch.Name)},
			{Text: "最后，一切都变得美好了。这真是快乐的一天！"},
		},
	}
}

// simpleFallback - тексты упрощенной истории, когда модель или иллюстратор недоступны.
func simpleFallback(lang Language, ch *domain.Character, topic string) (string, []string) {
	if lang == LanguageEN {
		return fmt.Sprintf("%s's Story", ch.Name), []string{
			fmt.Sprintf("Once upon a time there was %s, %s.", ch.Name, lowerFirst(ch.Description)),
			fmt.Sprintf("One day, %s found something fun about %s.", ch.Name, topic),
			fmt.Sprintf("%s learned a lot and had a happy day!", ch.Name),
		}
	}
	return fmt.Sprintf("%s的故事", ch.Name), []string{
		fmt.Sprintf("从前，有一个%s的%s。", ch.Description, ch.Name),
		fmt.Sprintf("有一天，%s遇到了关于%s的有趣事情。", ch.Name, topic),
		fmt.Sprintf("%s学到了很多，度过了快乐的一天！", ch.Name),
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
