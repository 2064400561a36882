package realtime

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Период пингов, должен быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Клиент ничего не присылает, кроме служебных кадров.
	maxMessageSize = 512
	sendQueueSize  = 32
)

// Client - одно WebSocket соединение.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// Handler обновляет HTTP запросы до WebSocket и регистрирует соединения в Hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler создает обработчик. allowedOrigins со значением "*" разрешает любой Origin.
func NewHandler(hub *Hub, allowedOrigins []string, log *zap.Logger) *Handler {
	h := &Handler{hub: hub, log: log.Named("ws_handler")}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS обрабатывает входящий HTTP запрос для WebSocket.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		h.log.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	c := &Client{ID: uuid.NewString(), conn: conn, send: make(chan []byte, sendQueueSize)}
	if !h.hub.Register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	log := h.log.With(zap.String("client_id", c.ID))
	log.Info("WebSocket connection established", zap.String("remote_addr", r.RemoteAddr))
	go c.writePump(log)
	go c.readPump(h.hub, log)
}

// readPump читает служебные кадры и следит за pong. Сообщения от клиента игнорируются.
func (c *Client) readPump(hub *Hub, log *zap.Logger) {
	defer func() {
		hub.Unregister(c)
		_ = c.conn.Close()
		log.Debug("readPump finished")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			} else {
				log.Info("WebSocket connection closed")
			}
			return
		}
	}
}

// writePump отправляет сообщения из очереди send, каждое отдельным кадром.
func (c *Client) writePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		log.Debug("writePump finished")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
