package handler

import "storybook-server/internal/domain"

type selectCharacterRequest struct {
	// nil снимает выбор
	CharacterID *string `json:"characterId"`
}

type setTopicRequest struct {
	Topic string `json:"topic"`
}

// generateRequest - необязательные переопределения персонажа и темы сессии.
type generateRequest struct {
	CharacterID string `json:"characterId"`
	Topic       string `json:"topic"`
}

type updatePagesRequest struct {
	Pages []domain.StoryPage `json:"pages"`
}

type classifyRequest struct {
	Text      string `json:"text" binding:"required"`
	PageIndex int    `json:"pageIndex"`
}

type classifyResponse struct {
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

type characterListResponse struct {
	Characters []domain.Character `json:"characters"`
}

type libraryResponse struct {
	SavedStories []domain.Story `json:"savedStories"`
}
