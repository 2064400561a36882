package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore хранит каждый слот JSON файлом в каталоге. Запись атомарная (tmp + rename).
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore создает хранилище в каталоге dir, создавая его при необходимости.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(slot string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, slot)
	return filepath.Join(f.dir, name+".json")
}

func (f *FileStore) Get(_ context.Context, slot string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotNotFound
	}
	return data, err
}

func (f *FileStore) Put(_ context.Context, slot string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(slot)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
