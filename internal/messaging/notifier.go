package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/metrics"
)

const (
	notifierQueueSize = 128
	publishTimeout    = 5 * time.Second
)

// Notifier превращает снимки store в события и публикует их в фоне.
type Notifier struct {
	pub   Publisher
	queue chan Event
	now   func() time.Time
	log   *zap.Logger

	mu   sync.Mutex
	prev domain.Snapshot
}

// NewNotifier создает наблюдателя. initial - снимок, от которого считаются изменения.
func NewNotifier(pub Publisher, initial domain.Snapshot, log *zap.Logger) *Notifier {
	return &Notifier{
		pub:   pub,
		queue: make(chan Event, notifierQueueSize),
		now:   time.Now,
		log:   log.Named("notifier"),
		prev:  initial,
	}
}

// Observe - наблюдатель для store.Subscribe. Не блокируется: при переполненной очереди событие теряется.
func (n *Notifier) Observe(snap domain.Snapshot) {
	n.mu.Lock()
	events := Diff(n.prev, snap, n.now())
	n.prev = snap
	n.mu.Unlock()

	for _, e := range events {
		select {
		case n.queue <- e:
		default:
			metrics.EventsPublishedTotal.WithLabelValues(string(e.Type), "dropped").Inc()
			n.log.Warn("Event queue is full, dropping event", zap.String("type", string(e.Type)))
		}
	}
}

// Run публикует события из очереди до отмены ctx. Оставшиеся события отправляются перед выходом.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case e := <-n.queue:
			n.publish(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-n.queue:
					n.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.pub.Publish(ctx, e); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(e.Type), "error").Inc()
		n.log.Error("Failed to publish event", zap.String("type", string(e.Type)), zap.String("story_id", e.StoryID), zap.Error(err))
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(e.Type), "success").Inc()
	n.log.Debug("Event published", zap.String("type", string(e.Type)), zap.Uint64("version", e.Version))
}
