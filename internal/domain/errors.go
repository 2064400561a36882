package domain

import "errors"

// Общие ошибки приложения
var (
	// ErrInvalidInput - вызов невозможен при таких входных данных (например, нет персонажа).
	ErrInvalidInput = errors.New("invalid input data")
	// ErrNotFound - история или персонаж не найдены.
	ErrNotFound = errors.New("resource not found")
	// ErrGenerationInProgress - в текущей сессии уже идет генерация.
	ErrGenerationInProgress = errors.New("generation is already in progress")
	// ErrNoCurrentStory - в сессии нет сгенерированной истории для сохранения.
	ErrNoCurrentStory = errors.New("session has no current story")
)
