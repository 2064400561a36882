// Package realtime рассылает снимки состояния по WebSocket соединениям.
package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"storybook-server/internal/domain"
	"storybook-server/internal/metrics"
)

// Message - конверт сообщения, отправляемого клиентам.
type Message struct {
	Type string          `json:"type"`
	Data domain.Snapshot `json:"data"`
}

// MessageTypeSnapshot - полный снимок сессии и библиотеки.
const MessageTypeSnapshot = "snapshot"

// Hub управляет активными WebSocket соединениями и рассылает им снимки.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	// last - последний разосланный снимок, новый клиент получает его сразу.
	last []byte
	log  *zap.Logger
}

// NewHub создает менеджер соединений. Цикл обработки запускается через Run.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log.Named("realtime"),
	}
}

// Run обрабатывает регистрацию и рассылку до отмены ctx, затем закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Hub started")
	defer func() {
		close(h.done)
		for id, c := range h.clients {
			h.drop(id, c)
		}
		h.log.Info("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c.ID] = c
			metrics.WebSocketConnections.Inc()
			h.log.Info("Client registered", zap.String("client_id", c.ID), zap.Int("clients", len(h.clients)))
			if h.last != nil {
				h.enqueue(c, h.last)
			}

		case c := <-h.unregister:
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				h.drop(c.ID, c)
				h.log.Info("Client unregistered", zap.String("client_id", c.ID), zap.Int("clients", len(h.clients)))
			}

		case msg := <-h.broadcast:
			h.last = msg
			for _, c := range h.clients {
				h.enqueue(c, msg)
			}
		}
	}
}

// enqueue кладет сообщение в очередь клиента. Переполненная очередь означает медленного клиента, он отключается.
func (h *Hub) enqueue(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("Client send queue is full, dropping connection", zap.String("client_id", c.ID))
		h.drop(c.ID, c)
	}
}

func (h *Hub) drop(id string, c *Client) {
	delete(h.clients, id)
	close(c.send)
	metrics.WebSocketConnections.Dec()
}

// Register добавляет клиента. Возвращает false, если менеджер уже остановлен.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish рассылает снимок всем клиентам. Подходит как наблюдатель store.Subscribe.
func (h *Hub) Publish(snap domain.Snapshot) {
	data, err := json.Marshal(Message{Type: MessageTypeSnapshot, Data: snap})
	if err != nil {
		h.log.Error("Failed to marshal snapshot", zap.Uint64("version", snap.Version), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}
