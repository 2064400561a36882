package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/repository"
)

const persistTimeout = 10 * time.Second

// persister записывает библиотеку в фоне. Хранится только последнее состояние:
// промежуточные версии, не успевшие записаться, заменяются более новыми.
type persister struct {
	repo    repository.LibraryRepository
	pending chan []domain.Story
	done    chan struct{}
	log     *zap.Logger
}

func newPersister(repo repository.LibraryRepository, log *zap.Logger) *persister {
	p := &persister{
		repo:    repo,
		pending: make(chan []domain.Story, 1),
		done:    make(chan struct{}),
		log:     log,
	}
	go p.run()
	return p
}

// enqueue вызывается под мьютексом Store, поэтому производитель всегда один.
func (p *persister) enqueue(stories []domain.Story) {
	for {
		select {
		case p.pending <- stories:
			return
		default:
			select {
			case <-p.pending:
			default:
			}
		}
	}
}

func (p *persister) run() {
	defer close(p.done)
	for stories := range p.pending {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := p.repo.Save(ctx, stories); err != nil {
			// Состояние в памяти остается главным до конца жизни процесса
			p.log.Error("Failed to persist library", zap.Int("stories", len(stories)), zap.Error(err))
		} else {
			p.log.Debug("Library persisted", zap.Int("stories", len(stories)))
		}
		cancel()
	}
}

func (p *persister) close() {
	close(p.pending)
	<-p.done
}
