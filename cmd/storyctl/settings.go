package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// settings - настройки CLI из окружения с префиксом STORYCTL_.
type settings struct {
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
	CatalogFile    string `envconfig:"CATALOG_FILE"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"warn"`

	// Оформление вывода glamour: auto, dark, light, notty
	Style    string `envconfig:"STYLE" default:"auto"`
	WordWrap int    `envconfig:"WORD_WRAP" default:"80"`

	// Пусто = первая найденная команда из espeak-ng, espeak, say
	TTSCommand string  `envconfig:"TTS_COMMAND"`
	TTSLang    string  `envconfig:"TTS_LANG" default:"zh-CN"`
	TTSRate    float64 `envconfig:"TTS_RATE" default:"0.9"`
}

func loadSettings() (settings, error) {
	var s settings
	if err := envconfig.Process("storyctl", &s); err != nil {
		return s, fmt.Errorf("failed to load storyctl settings: %w", err)
	}
	return s, nil
}
