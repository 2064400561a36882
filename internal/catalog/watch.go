package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// Watch следит за файлом каталога и перечитывает его при изменении.
// Блокируется до отмены ctx. Следит за каталогом файла, чтобы переживать атомарную замену.
func (c *Catalog) Watch(ctx context.Context, path string, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch catalog dir: %w", err)
	}
	log.Info("Watching character catalog", zap.String("path", abs))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// Редакторы пишут файл в несколько приемов, перечитываем после паузы
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			if err := c.ReloadFile(abs); err != nil {
				log.Warn("Catalog reload failed, keeping previous characters", zap.Error(err))
				continue
			}
			log.Info("Character catalog reloaded", zap.Int("count", len(c.List())))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Catalog watcher error", zap.Error(err))
		}
	}
}
