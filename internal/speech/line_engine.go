package speech

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

type line struct {
	text string
	err  error
}

// LineEngine - движок распознавания, который читает набранные строки.
// Обычная строка - финальный фрагмент, строка с "~" - промежуточный,
// "!код" - ошибка движка с этим кодом, пустая строка или конец ввода завершают речь.
type LineEngine struct {
	r     io.Reader
	once  sync.Once
	lines chan line
	done  chan struct{}
	stop  sync.Once
}

// NewLineEngine создает движок поверх r. Чтение начинается при первом Listen.
func NewLineEngine(r io.Reader) *LineEngine {
	return &LineEngine{r: r, lines: make(chan line), done: make(chan struct{})}
}

func (e *LineEngine) read() {
	defer close(e.lines)
	sc := bufio.NewScanner(e.r)
	for sc.Scan() {
		select {
		case e.lines <- line{text: strings.TrimRight(sc.Text(), "\r")}:
		case <-e.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case e.lines <- line{err: err}:
		case <-e.done:
		}
	}
}

// Listen читает строки до конца высказывания.
func (e *LineEngine) Listen(ctx context.Context, emit func(Result)) error {
	e.once.Do(func() { go e.read() })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case l, ok := <-e.lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return &EngineError{Code: string(CategoryAudioCapture), Err: l.err}
			}
			text := strings.TrimSpace(l.text)
			switch {
			case text == "":
				return nil
			case strings.HasPrefix(text, "!"):
				return &EngineError{Code: strings.TrimPrefix(text, "!")}
			case strings.HasPrefix(text, "~"):
				emit(Result{Text: strings.TrimSpace(strings.TrimPrefix(text, "~"))})
			default:
				emit(Result{Text: text, Final: true})
			}
		}
	}
}

// Close останавливает фоновое чтение. Чтение, уже заблокированное в r, завершится после его возврата.
func (e *LineEngine) Close() {
	e.stop.Do(func() { close(e.done) })
}
