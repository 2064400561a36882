package store

import (
	"time"

	"storybook-server/internal/domain"
)

const unsplashDemo = "https://images.unsplash.com/"

func demoImage(photo string) string {
	return unsplashDemo + photo + "?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3"
}

// DemoStories возвращает две демонстрационные истории для пустой полки.
func DemoStories() []domain.Story {
	now := time.Now().UnixMilli()
	return []domain.Story{
		{
			ID:          "1",
			Title:       "The Brave Little Lion",
			CharacterID: "lion",
			Topic:       "Adventure in the jungle",
			CoverImage:  demoImage("photo-1546182990-dffeafbe841d"),
			CreatedAt:   now,
			Pages: []domain.StoryPage{
				{Text: "Once upon a time, a brave little lion wanted to see the world.", ImageURL: demoImage("photo-1546182990-dffeafbe841d")},
				{Text: "He walked through the green jungle and met many friends.", ImageURL: demoImage("photo-1564767667-8541e24fb141")},
				{Text: "At night, he slept under the bright stars.", ImageURL: demoImage("photo-1534447677768-be436bb09401")},
			},
		},
		{
			ID:          "2",
			Title:       "Space Adventure",
			CharacterID: "astronaut",
			Topic:       "Rocket ship to the moon",
			CoverImage:  demoImage("photo-1451187580459-43490279c0fa"),
			CreatedAt:   now - 100000,
			Pages: []domain.StoryPage{
				{Text: "Zoom! The rocket ship blasted off into space.", ImageURL: demoImage("photo-1451187580459-43490279c0fa")},
				{Text: "They landed on a red planet with bumpy rocks.", ImageURL: demoImage("photo-1614730341194-75c60740a070")},
				{Text: "Aliens came out to say hello!", ImageURL: demoImage("photo-1589476993333-f55b84301219")},
			},
		},
	}
}
