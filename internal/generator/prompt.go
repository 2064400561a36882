package generator

import (
	"fmt"

	"storybook-server/internal/domain"
)

// Language - язык текста истории.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// BuildPrompt собирает промпт для модели: персонаж, тема, 5-6 страниц,
// текст каждой страницы и английское описание иллюстрации, ответ только в JSON.
func BuildPrompt(lang Language, ch *domain.Character, topic string) string {
	if lang == LanguageEN {
		return fmt.Sprintf(promptEN, ch.Name, ch.Description, topic)
	}
	return fmt.Sprintf(promptZH, ch.Name, ch.Description, topic)
}

const promptZH = `你是一位专业的儿童故事作家。请根据下面的信息，为5岁的孩子写一个故事：

角色：%s（%s）
主题：%s

要求：
1. 阅读时间约3分钟（300-400字）
2. 分成5-6页
3. 语言简单，适合5岁儿童
4. 情节积极，有教育意义
5. 每一页包含：
   - 故事文字（50-80字）
   - 英文插图描述（用于生成儿童绘本风格的插图）

只返回 JSON，不要包含任何其他文字：
{
  "title": "故事标题",
  "pages": [
    {
      "text": "这一页的故事文字（50-80字）",
      "imagePrompt": "English prompt for the illustration: A cute cartoon illustration of..."
    }
  ]
}

示例：
{
  "title": "小狮子的月球冒险",
  "pages": [
    {
      "text": "从前，有一只勇敢的小狮子叫雷欧。他总是梦想着去月球看看。有一天，他决定实现这个梦想！",
      "imagePrompt": "A cute cartoon lion cub looking up at the moon in the night sky, children's book illustration style, colorful and friendly"
    }
  ]
}`

const promptEN = `You are a professional children's story writer. Write a story for a 5-year-old child:

Character: %s (%s)
Topic: %s

Requirements:
1. About 3 minutes of reading (300-400 words)
2. Split into 5-6 pages
3. Simple language a 5-year-old understands
4. Positive plot with a gentle lesson
5. Every page contains:
   - story text (50-80 words)
   - an English illustration prompt in children's picture book style

Reply with JSON only, no other text:
{
  "title": "Story title",
  "pages": [
    {
      "text": "Text of this page (50-80 words)",
      "imagePrompt": "A cute cartoon illustration of..."
    }
  ]
}`
