package domain

// Session - временное состояние создания истории, не сохраняется между запусками.
type Session struct {
	SelectedCharacter *Character `json:"selectedCharacter"`
	RecordedTopic     string     `json:"recordedTopic"`
	IsGenerating      bool       `json:"isGenerating"`
	CurrentStory      *Story     `json:"currentStory"`
}

// Snapshot - неизменяемый снимок всего состояния (сессия + библиотека),
// который получают наблюдатели после каждой операции.
type Snapshot struct {
	Version      uint64  `json:"version"`
	Session      Session `json:"session"`
	SavedStories []Story `json:"savedStories"`
}
