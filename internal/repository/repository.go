// Package repository хранит библиотеку историй в одном именованном слоте.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/metrics"
)

// ErrSlotNotFound - слот еще ни разу не сохранялся.
var ErrSlotNotFound = errors.New("storage slot not found")

// LibraryRepository - долговременное хранилище библиотеки.
type LibraryRepository interface {
	// Load возвращает сохраненные истории. Отсутствующий или поврежденный слот дает пустую библиотеку.
	Load(ctx context.Context) ([]domain.Story, error)
	// Save перезаписывает слот целиком.
	Save(ctx context.Context, stories []domain.Story) error
	Close() error
}

// SlotStore - хранилище сырых байтов по имени слота.
type SlotStore interface {
	Get(ctx context.Context, slot string) ([]byte, error)
	Put(ctx context.Context, slot string, data []byte) error
	Close() error
}

// payload - формат содержимого слота.
type payload struct {
	SavedStories []domain.Story `json:"savedStories"`
}

// Encode сериализует библиотеку в формат слота.
func Encode(stories []domain.Story) ([]byte, error) {
	if stories == nil {
		stories = []domain.Story{}
	}
	data, err := json.Marshal(payload{SavedStories: stories})
	if err != nil {
		return nil, fmt.Errorf("failed to encode library: %w", err)
	}
	return data, nil
}

// Decode разбирает содержимое слота.
func Decode(data []byte) ([]domain.Story, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode library: %w", err)
	}
	return p.SavedStories, nil
}

// Library реализует LibraryRepository поверх SlotStore.
type Library struct {
	store   SlotStore
	slot    string
	driver  string
	timeout time.Duration
	log     *zap.Logger
}

// NewLibrary создает репозиторий библиотеки для слота slot.
func NewLibrary(store SlotStore, slot, driver string, log *zap.Logger) *Library {
	return &Library{store: store, slot: slot, driver: driver, timeout: 5 * time.Second, log: log}
}

// Load читает слот. Поврежденные данные дают пустую библиотеку с предупреждением.
func (l *Library) Load(ctx context.Context) ([]domain.Story, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := l.store.Get(ctx, l.slot)
	if errors.Is(err, ErrSlotNotFound) {
		l.count("load", "empty")
		return nil, nil
	}
	if err != nil {
		l.count("load", "error")
		return nil, fmt.Errorf("failed to load slot %s: %w", l.slot, err)
	}

	stories, err := Decode(data)
	if err != nil {
		l.count("load", "corrupt")
		l.log.Warn("Library slot is corrupt, starting with empty library", zap.String("slot", l.slot), zap.Error(err))
		return nil, nil
	}
	valid := stories[:0]
	seen := make(map[string]struct{}, len(stories))
	for _, s := range stories {
		if err := s.Validate(); err != nil {
			l.log.Warn("Skipping invalid stored story", zap.String("story_id", s.ID), zap.Error(err))
			continue
		}
		// id уникален в библиотеке: остается первое (самое новое) вхождение
		if _, dup := seen[s.ID]; dup {
			l.log.Warn("Skipping duplicate stored story", zap.String("story_id", s.ID))
			continue
		}
		seen[s.ID] = struct{}{}
		valid = append(valid, s)
	}
	l.count("load", "success")
	return valid, nil
}

// Save перезаписывает слот.
func (l *Library) Save(ctx context.Context, stories []domain.Story) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := Encode(stories)
	if err != nil {
		l.count("save", "error")
		return err
	}
	if err := l.store.Put(ctx, l.slot, data); err != nil {
		l.count("save", "error")
		return fmt.Errorf("failed to save slot %s: %w", l.slot, err)
	}
	l.count("save", "success")
	return nil
}

// Close закрывает хранилище.
func (l *Library) Close() error { return l.store.Close() }

func (l *Library) count(op, status string) {
	metrics.PersistenceOpsTotal.WithLabelValues(l.driver, op, status).Inc()
}
