package speech

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Voice - параметры голоса для движка синтеза.
type Voice struct {
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// DefaultVoice - чуть медленнее и выше обычного, для детей.
var DefaultVoice = Voice{Lang: "zh-CN", Rate: 0.9, Pitch: 1.1, Volume: 1.0}

// SpeakOptions - параметры одного высказывания.
type SpeakOptions struct {
	Voice   Voice
	OnStart func()
	OnEnd   func()
	OnError func(err error)
}

// SynthesisEngine - платформенный движок синтеза.
// Speak блокируется до конца высказывания или отмены ctx. Pause и Resume действуют на текущее высказывание.
type SynthesisEngine interface {
	Speak(ctx context.Context, text string, voice Voice) error
	Pause() error
	Resume() error
}

// Synthesizer - адаптер синтеза речи: Idle -> Speaking <-> Paused -> Idle.
type Synthesizer struct {
	engine SynthesisEngine
	log    *zap.Logger

	mu    sync.Mutex
	state State
	cur   *session
}

// NewSynthesizer создает адаптер. nil engine означает, что синтез не поддерживается.
func NewSynthesizer(engine SynthesisEngine, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{engine: engine, log: log.Named("synthesizer")}
}

// IsSupported сообщает, есть ли движок синтеза.
func (s *Synthesizer) IsSupported() bool { return s.engine != nil }

// State возвращает текущее состояние.
func (s *Synthesizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsSpeaking возвращает true, пока высказывание не закончилось, в том числе на паузе.
func (s *Synthesizer) IsSpeaking() bool {
	st := s.State()
	return st == StateSpeaking || st == StatePaused
}

// IsPaused возвращает true, если высказывание приостановлено.
func (s *Synthesizer) IsPaused() bool { return s.State() == StatePaused }

// Speak произносит text, прерывая предыдущее высказывание. Прерванное высказывание не вызывает OnEnd.
func (s *Synthesizer) Speak(text string, opts SpeakOptions) error {
	if s.engine == nil {
		return ErrUnsupported
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	voice := withDefaults(opts.Voice)
	ss := newSession()

	// Смена высказывания атомарна: параллельный Speak не может потерять текущую сессию
	s.mu.Lock()
	prev := s.cur
	wait := prev != nil && prev.stopLocked()
	s.cur = ss
	s.state = StateSpeaking
	s.mu.Unlock()

	if wait {
		<-prev.done
	}
	go s.speak(ss, text, voice, opts)
	return nil
}

func (s *Synthesizer) speak(ss *session, text string, voice Voice, opts SpeakOptions) {
	defer close(ss.done)
	defer ss.cancel()

	// Сессию уже сменил следующий Speak
	if ss.ctx.Err() != nil {
		return
	}
	if opts.OnStart != nil {
		ss.deliver(&s.mu, nil, opts.OnStart)
	}
	err := s.engine.Speak(ss.ctx, text, voice)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	ss.deliver(&s.mu, func() bool {
		ss.active = false
		s.state = StateIdle
		if err != nil {
			s.log.Warn("Speech synthesis failed", zap.Error(err))
			return opts.OnError != nil
		}
		return opts.OnEnd != nil
	}, func() {
		if err != nil {
			opts.OnError(err)
			return
		}
		opts.OnEnd()
	})
}

// Pause приостанавливает текущее высказывание. Без активного высказывания ничего не делает.
func (s *Synthesizer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSpeaking {
		return nil
	}
	if err := s.engine.Pause(); err != nil {
		return err
	}
	s.state = StatePaused
	return nil
}

// Resume продолжает приостановленное высказывание.
func (s *Synthesizer) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return nil
	}
	if err := s.engine.Resume(); err != nil {
		return err
	}
	s.state = StateSpeaking
	return nil
}

// Stop прерывает текущее высказывание и освобождает движок.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	ss := s.cur
	wait := ss != nil && ss.stopLocked()
	s.state = StateIdle
	s.mu.Unlock()

	if wait {
		<-ss.done
	}
}

func withDefaults(v Voice) Voice {
	if v.Lang == "" {
		v.Lang = DefaultVoice.Lang
	}
	if v.Rate == 0 {
		v.Rate = DefaultVoice.Rate
	}
	if v.Pitch == 0 {
		v.Pitch = DefaultVoice.Pitch
	}
	if v.Volume == 0 {
		v.Volume = DefaultVoice.Volume
	}
	return v
}
