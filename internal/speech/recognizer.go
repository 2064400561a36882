package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Result - очередной фрагмент распознанной речи.
type Result struct {
	Text  string
	Final bool
}

// RecognitionEngine - платформенный движок распознавания.
// Listen блокируется до конца речи, ошибки или отмены ctx и вызывает emit для каждого фрагмента.
// Завершение по отмене ctx не считается ошибкой. После возврата движок освобожден.
type RecognitionEngine interface {
	Listen(ctx context.Context, emit func(Result)) error
}

// Recognizer - адаптер распознавания речи: Idle -> Listening -> Stopped | Errored.
type Recognizer struct {
	engine RecognitionEngine
	log    *zap.Logger

	mu         sync.Mutex
	state      State
	cur        *session
	transcript string
	interim    string
}

// NewRecognizer создает адаптер. nil engine означает, что распознавание не поддерживается.
func NewRecognizer(engine RecognitionEngine, log *zap.Logger) *Recognizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recognizer{engine: engine, log: log.Named("recognizer")}
}

// IsSupported сообщает, есть ли движок распознавания.
func (r *Recognizer) IsSupported() bool { return r.engine != nil }

// State возвращает текущее состояние.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start начинает сессию распознавания.
// onUpdate получает накопленный текст, onError - *RecognitionError, onEnd - сигнал о штатном конце.
// Сессия завершается ровно одним из onError/onEnd, если ее не остановили раньше.
func (r *Recognizer) Start(onUpdate func(text string), onError func(err error), onEnd func()) error {
	if r.engine == nil {
		return ErrUnsupported
	}

	r.mu.Lock()
	if r.state == StateListening {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	ss := newSession()
	r.cur = ss
	r.state = StateListening
	r.transcript = ""
	r.interim = ""
	r.mu.Unlock()

	r.log.Debug("Voice recognition started")
	go r.listen(ss, onUpdate, onError, onEnd)
	return nil
}

func (r *Recognizer) listen(ss *session, onUpdate func(string), onError func(error), onEnd func()) {
	defer close(ss.done)
	defer ss.cancel()

	err := r.engine.Listen(ss.ctx, func(res Result) {
		var text string
		ss.deliver(&r.mu, func() bool {
			text = r.applyLocked(res)
			return text != "" && onUpdate != nil
		}, func() { onUpdate(text) })
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	var recErr *RecognitionError
	ss.deliver(&r.mu, func() bool {
		ss.active = false
		if err != nil {
			recErr = &RecognitionError{Category: Categorize(err), Err: err}
			r.state = StateErrored
			r.log.Warn("Voice recognition failed", zap.String("category", string(recErr.Category)), zap.Error(err))
			return onError != nil
		}
		r.state = StateStopped
		return onEnd != nil
	}, func() {
		if recErr != nil {
			onError(recErr)
			return
		}
		onEnd()
	})
}

// applyLocked добавляет фрагмент и возвращает текущий текст (финальный + промежуточный).
func (r *Recognizer) applyLocked(res Result) string {
	if res.Final {
		r.transcript += res.Text + " "
		r.interim = ""
	} else {
		r.interim = res.Text
	}
	return strings.TrimSpace(r.transcript + r.interim)
}

// Stop останавливает распознавание и возвращает итоговый текст.
func (r *Recognizer) Stop() string {
	r.mu.Lock()
	ss := r.cur
	wait := ss != nil && ss.stopLocked()
	if r.state == StateListening {
		r.state = StateStopped
	}
	text := strings.TrimSpace(r.transcript)
	r.mu.Unlock()

	if wait {
		<-ss.done
	}
	r.log.Debug("Voice recognition stopped", zap.Int("transcript_len", len(text)))
	return text
}

// Cancel прерывает распознавание и сбрасывает накопленный текст.
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	ss := r.cur
	wait := ss != nil && ss.stopLocked()
	if r.state == StateListening {
		r.state = StateStopped
	}
	r.transcript = ""
	r.interim = ""
	r.mu.Unlock()

	if wait {
		<-ss.done
	}
}
