// Package speech содержит адаптеры распознавания и синтеза речи поверх платформенных движков.
//
// Оба адаптера - явные конечные автоматы. Каждый Start/Speak открывает сессию движка,
// которая завершается через Stop, Cancel или сигнал движка; после остановки колбэки не начинаются.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnsupported - движок недоступен на этой платформе.
	ErrUnsupported = errors.New("speech engine is not supported")
	// ErrAlreadyActive - сессия уже запущена, нужен Stop перед новым Start.
	ErrAlreadyActive = errors.New("speech session is already active")
	// ErrEmptyText - нечего произносить.
	ErrEmptyText = errors.New("text to speak is empty")
	// ErrPauseUnsupported - движок не умеет приостанавливать речь.
	ErrPauseUnsupported = errors.New("pause is not supported by speech engine")
)

// State - состояние адаптера.
type State int

const (
	StateIdle State = iota
	StateListening
	StateSpeaking
	StatePaused
	StateStopped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrorCategory - класс ошибки распознавания.
type ErrorCategory string

const (
	CategoryNoSpeech     ErrorCategory = "no-speech"
	CategoryAudioCapture ErrorCategory = "audio-capture"
	CategoryNotAllowed   ErrorCategory = "not-allowed"
	CategoryNetwork      ErrorCategory = "network"
	CategoryUnknown      ErrorCategory = "unknown"
)

var messages = map[string]map[ErrorCategory]string{
	"en": {
		CategoryNoSpeech:     "No speech detected, please try again",
		CategoryAudioCapture: "Cannot access the microphone",
		CategoryNotAllowed:   "Microphone permission denied",
		CategoryNetwork:      "Network error, please check the connection",
		CategoryUnknown:      "Speech recognition error",
	},
	"zh": {
		CategoryNoSpeech:     "没有检测到语音，请重试",
		CategoryAudioCapture: "无法访问麦克风",
		CategoryNotAllowed:   "麦克风权限被拒绝",
		CategoryNetwork:      "网络错误，请检查连接",
		CategoryUnknown:      "语音识别出错",
	},
}

// EngineError - ошибка, о которой сообщил движок, с платформенным кодом.
type EngineError struct {
	Code string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech engine error %s: %v", e.Code, e.Err)
	}
	return "speech engine error " + e.Code
}

func (e *EngineError) Unwrap() error { return e.Err }

// RecognitionError - ошибка распознавания, доставляемая в onError.
type RecognitionError struct {
	Category ErrorCategory
	Err      error
}

// Error возвращает понятное пользователю сообщение на английском.
func (e *RecognitionError) Error() string { return e.Message("en") }

func (e *RecognitionError) Unwrap() error { return e.Err }

// Message возвращает сообщение на языке lang ("zh" или "en").
func (e *RecognitionError) Message(lang string) string {
	table, ok := messages[lang]
	if !ok {
		table = messages["en"]
	}
	if msg, ok := table[e.Category]; ok {
		return msg
	}
	return table[CategoryUnknown]
}

// Categorize сопоставляет ошибку движка с категорией.
func Categorize(err error) ErrorCategory {
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		return CategoryUnknown
	}
	switch c := ErrorCategory(engErr.Code); c {
	case CategoryNoSpeech, CategoryAudioCapture, CategoryNotAllowed, CategoryNetwork:
		return c
	default:
		return CategoryUnknown
	}
}

// session - одна активная сессия движка. Поля active и delivering защищены мьютексом владельца.
type session struct {
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	active     bool
	delivering bool
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{ctx: ctx, cancel: cancel, done: make(chan struct{}), active: true}
}

// deliver вызывает fn, если сессия еще активна. mu - мьютекс владельца, на входе не захвачен.
// prepare выполняется под мьютексом и может отменить доставку, вернув false.
func (s *session) deliver(mu *sync.Mutex, prepare func() bool, fn func()) {
	mu.Lock()
	if !s.active || (prepare != nil && !prepare()) {
		mu.Unlock()
		return
	}
	s.delivering = true
	mu.Unlock()

	fn()

	mu.Lock()
	s.delivering = false
	mu.Unlock()
}

// stopLocked деактивирует сессию под мьютексом владельца.
// Возвращает true, если вызывающему нужно дождаться освобождения движка.
// Ожидание пропускается во время доставки колбэка, иначе Stop из колбэка зависнет.
func (s *session) stopLocked() bool {
	if !s.active {
		return false
	}
	s.active = false
	s.cancel()
	return !s.delivering
}
