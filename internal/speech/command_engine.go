package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// ArgsFunc строит аргументы команды синтеза для голоса. Текст передается через stdin.
type ArgsFunc func(v Voice) []string

// CommandEngine - движок синтеза, запускающий внешнюю команду (espeak, say).
type CommandEngine struct {
	name string
	args ArgsFunc

	mu   sync.Mutex
	proc *os.Process
}

// NewCommandEngine создает движок для команды name.
func NewCommandEngine(name string, args ArgsFunc) *CommandEngine {
	if args == nil {
		args = func(Voice) []string { return nil }
	}
	return &CommandEngine{name: name, args: args}
}

// LookupCommandEngine ищет известную команду синтеза в PATH. Возвращает nil, если ничего нет.
func LookupCommandEngine() *CommandEngine {
	candidates := []struct {
		name string
		args ArgsFunc
	}{
		{"espeak-ng", EspeakArgs},
		{"espeak", EspeakArgs},
		{"say", SayArgs},
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c.name); err == nil {
			return NewCommandEngine(path, c.args)
		}
	}
	return nil
}

// EspeakArgs - аргументы espeak/espeak-ng.
func EspeakArgs(v Voice) []string {
	lang := strings.ToLower(v.Lang)
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	args := []string{"--stdin"}
	if lang != "" {
		args = append(args, "-v", lang)
	}
	return append(args,
		"-s", strconv.Itoa(clamp(int(175*v.Rate), 80, 450)),
		"-p", strconv.Itoa(clamp(int(50*v.Pitch), 0, 99)),
		"-a", strconv.Itoa(clamp(int(100*v.Volume), 0, 200)),
	)
}

// SayArgs - аргументы say (macOS), без текста say читает stdin.
func SayArgs(v Voice) []string {
	return []string{"-r", strconv.Itoa(clamp(int(175*v.Rate), 50, 500))}
}

// Speak запускает команду и ждет ее завершения.
func (e *CommandEngine) Speak(ctx context.Context, text string, v Voice) error {
	cmd := exec.CommandContext(ctx, e.name, e.args(v)...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.name, err)
	}
	e.mu.Lock()
	e.proc = cmd.Process
	e.mu.Unlock()

	err := cmd.Wait()

	e.mu.Lock()
	e.proc = nil
	e.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", e.name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Pause приостанавливает процесс синтеза.
func (e *CommandEngine) Pause() error { return e.signal(sigPause) }

// Resume продолжает процесс синтеза.
func (e *CommandEngine) Resume() error { return e.signal(sigResume) }

func (e *CommandEngine) signal(sig os.Signal) error {
	if sig == nil {
		return ErrPauseUnsupported
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil {
		return nil
	}
	if err := e.proc.Signal(sig); err != nil {
		return fmt.Errorf("failed to signal %s: %w", e.name, err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
