// Package store держит состояние сессии создания истории и библиотеку сохраненных историй.
package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/metrics"
	"storybook-server/internal/repository"
)

// Observer получает снимок состояния после каждого изменения.
// Вызывается синхронно, в порядке версий; не должен вызывать методы Store.
type Observer func(domain.Snapshot)

// Options - необязательные параметры хранилища.
type Options struct {
	// SeedDemo заполняет пустую библиотеку демонстрационными историями.
	SeedDemo bool
}

// Store - сериализованное мьютексом состояние сессии и библиотеки.
type Store struct {
	mu      sync.Mutex
	session domain.Session
	library []domain.Story
	version uint64

	// pubMu удерживается от снятия снимка до конца оповещения, чтобы наблюдатели видели версии по порядку.
	pubMu     sync.Mutex
	observers map[uint64]Observer
	nextObs   uint64

	persister *persister
	log       *zap.Logger
}

// New создает хранилище и один раз загружает библиотеку из repo.
// Ошибка загрузки не фатальна: библиотека начинается пустой.
func New(ctx context.Context, repo repository.LibraryRepository, log *zap.Logger, opts Options) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")
	s := &Store{
		observers: make(map[uint64]Observer),
		log:       log,
	}

	if repo != nil {
		stories, err := repo.Load(ctx)
		if err != nil {
			log.Error("Failed to load library, starting empty", zap.Error(err))
		}
		s.library = stories
		s.persister = newPersister(repo, log)
	}
	if len(s.library) == 0 && opts.SeedDemo {
		s.library = DemoStories()
		log.Info("Library seeded with demo stories", zap.Int("count", len(s.library)))
	}
	metrics.LibrarySize.Set(float64(len(s.library)))
	log.Info("Store initialized", zap.Int("library_size", len(s.library)))
	return s
}

// Close дожидается записи последнего состояния библиотеки и останавливает фоновую запись.
func (s *Store) Close() {
	s.mu.Lock()
	p := s.persister
	s.persister = nil
	s.mu.Unlock()
	if p != nil {
		p.close()
	}
}

// Subscribe регистрирует наблюдателя. Возвращаемая функция снимает подписку.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot возвращает текущий снимок состояния.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Library возвращает копию библиотеки, самые новые истории первыми.
func (s *Store) Library() []domain.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStories(s.library)
}

// FindStory ищет историю в библиотеке, затем среди текущей истории сессии.
func (s *Store) FindStory(id string) (*domain.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.library[i].Clone(), nil
	}
	if cur := s.session.CurrentStory; cur != nil && cur.ID == id {
		return cur.Clone(), nil
	}
	return nil, fmt.Errorf("%w: story %s", domain.ErrNotFound, id)
}

// SelectCharacter выбирает персонажа, nil снимает выбор.
func (s *Store) SelectCharacter(ch *domain.Character) {
	s.update(func() (bool, bool) {
		if ch == nil {
			s.session.SelectedCharacter = nil
		} else {
			c := *ch
			s.session.SelectedCharacter = &c
		}
		return true, false
	})
}

// SetTopic запоминает тему истории.
func (s *Store) SetTopic(topic string) {
	s.update(func() (bool, bool) {
		s.session.RecordedTopic = topic
		return true, false
	})
}

// BeginGeneration поднимает флаг генерации и возвращает сессию, снятую под той же блокировкой:
// персонаж и тема в ней - те, с которыми началась генерация.
// Если генерация уже идет, состояние не меняется и возвращается ErrGenerationInProgress.
func (s *Store) BeginGeneration() (domain.Session, error) {
	var (
		sess domain.Session
		err  error
	)
	s.update(func() (bool, bool) {
		if s.session.IsGenerating {
			err = domain.ErrGenerationInProgress
			return false, false
		}
		s.session.IsGenerating = true
		sess = s.sessionLocked()
		return true, false
	})
	return sess, err
}

// CompleteGeneration снимает флаг генерации и делает story текущей историей.
func (s *Store) CompleteGeneration(story *domain.Story) {
	s.update(func() (bool, bool) {
		s.session.IsGenerating = false
		s.session.CurrentStory = story.Clone()
		return true, false
	})
}

// FailGeneration снимает флаг генерации, не трогая текущую историю.
func (s *Store) FailGeneration() {
	s.update(func() (bool, bool) {
		if !s.session.IsGenerating {
			return false, false
		}
		s.session.IsGenerating = false
		return true, false
	})
}

// SaveToLibrary добавляет историю в начало библиотеки.
// Повторное сохранение истории с тем же id ничего не делает.
func (s *Store) SaveToLibrary(story *domain.Story) error {
	if err := story.Validate(); err != nil {
		return err
	}
	s.update(func() (bool, bool) {
		if s.indexLocked(story.ID) >= 0 {
			return false, false
		}
		s.library = append([]domain.Story{*story.Clone()}, s.library...)
		return true, true
	})
	return nil
}

// SaveCurrentStory сохраняет текущую историю сессии в библиотеку.
func (s *Store) SaveCurrentStory() (*domain.Story, error) {
	s.mu.Lock()
	cur := s.session.CurrentStory.Clone()
	s.mu.Unlock()
	if cur == nil {
		return nil, domain.ErrNoCurrentStory
	}
	if err := s.SaveToLibrary(cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// DeleteFromLibrary удаляет историю по id. Возвращает false, если истории не было.
func (s *Store) DeleteFromLibrary(id string) bool {
	var found bool
	s.update(func() (bool, bool) {
		i := s.indexLocked(id)
		if i < 0 {
			return false, false
		}
		found = true
		s.library = append(s.library[:i:i], s.library[i+1:]...)
		return true, true
	})
	return found
}

// UpdatePages заменяет страницы истории с данным id в библиотеке и/или в текущей истории.
// Возвращает false, если история не найдена. Недопустимые страницы (пустой список, страница
// без текста или иллюстрации) дают domain.ErrInvalidInput; в обоих случаях ничего не меняется.
func (s *Store) UpdatePages(id string, pages []domain.StoryPage) (bool, error) {
	if err := domain.ValidatePages(pages); err != nil {
		return false, err
	}
	var found bool
	s.update(func() (bool, bool) {
		libChanged := false
		if i := s.indexLocked(id); i >= 0 {
			s.library[i].Pages = domain.ClonePages(pages)
			libChanged = true
		}
		if cur := s.session.CurrentStory; cur != nil && cur.ID == id {
			updated := cur.Clone()
			updated.Pages = domain.ClonePages(pages)
			s.session.CurrentStory = updated
			found = true
		}
		found = found || libChanged
		return found, libChanged
	})
	return found, nil
}

// ResetSession возвращает поля сессии к начальным значениям. Библиотека не меняется.
func (s *Store) ResetSession() {
	s.update(func() (bool, bool) {
		s.session = domain.Session{}
		return true, false
	})
}

// update применяет fn под мьютексом. fn возвращает (изменилось ли состояние, изменилась ли библиотека).
// После изменения снимок публикуется наблюдателям, а библиотека ставится в очередь на запись.
func (s *Store) update(fn func() (changed, libraryChanged bool)) {
	s.mu.Lock()
	changed, libraryChanged := fn()
	if !changed {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for id := uint64(0); id < s.nextObs; id++ {
		if obs, ok := s.observers[id]; ok {
			observers = append(observers, obs)
		}
	}
	if libraryChanged {
		metrics.LibrarySize.Set(float64(len(s.library)))
		if s.persister != nil {
			s.persister.enqueue(snap.SavedStories)
		}
	}
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, obs := range observers {
		obs(snap)
	}
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Version:      s.version,
		Session:      s.sessionLocked(),
		SavedStories: cloneStories(s.library),
	}
}

func (s *Store) sessionLocked() domain.Session {
	sess := domain.Session{
		RecordedTopic: s.session.RecordedTopic,
		IsGenerating:  s.session.IsGenerating,
		CurrentStory:  s.session.CurrentStory.Clone(),
	}
	if ch := s.session.SelectedCharacter; ch != nil {
		c := *ch
		sess.SelectedCharacter = &c
	}
	return sess
}

func (s *Store) indexLocked(id string) int {
	for i := range s.library {
		if s.library[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneStories(stories []domain.Story) []domain.Story {
	out := make([]domain.Story, len(stories))
	for i := range stories {
		out[i] = *stories[i].Clone()
	}
	return out
}
