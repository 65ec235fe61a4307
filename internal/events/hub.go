// Package events рассылает изменения заказов подключённым админским websocket-клиентам.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/linemk/orders-admin/internal/domain/models"
)

const (
	OrderCreated       = "order.created"
	OrderStatusUpdated = "order.status_updated"

	writeTimeout = 5 * time.Second
	// sendBuffer - сколько событий может ждать отправки одному клиенту
	sendBuffer = 32
)

// Event - сообщение в потоке изменений
type Event struct {
	Type  string        `json:"type"`
	Order *models.Order `json:"order"`
	At    time.Time     `json:"at"`
}

// Publisher - то, что нужно сервису заказов
type Publisher interface {
	Publish(e Event)
}

// Hub держит активные соединения и рассылает события всем.
// Каждому клиенту пишет своя горутина, Publish не ждёт сеть.
type Hub struct {
	log      *slog.Logger
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// drop убирает клиента; закрытие send завершает его writer. Вызывать под h.mu.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

// Clients - число подключений
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish ставит событие в очередь каждому клиенту. Клиент с переполненной
// очередью отключается.
func (h *Hub) Publish(e Event) {
	const op = "events.Hub.Publish"

	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	msg, err := json.Marshal(e)
	if err != nil {
		h.log.Error("failed to encode event", slog.String("op", op), slog.Any("error", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow websocket client", slog.String("op", op))
			h.drop(c)
		}
	}
}

// writeLoop - единственный писатель в соединение: gorilla не допускает конкурентных.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("websocket write failed", slog.String("op", "events.Hub.writeLoop"), slog.Any("error", err))
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(time.Second))
}

// ServeHTTP поднимает websocket и держит его, пока клиент не отключится.
// Входящие сообщения игнорируются, чтение нужно только для обработки close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "events.Hub.ServeHTTP"
	log := h.log.With(slog.String("op", op))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go h.writeLoop(c)
	log.Info("websocket client connected", slog.Int("clients", h.Clients()))

	defer func() {
		h.remove(c)
		log.Info("websocket client disconnected")
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close отключает всех клиентов при остановке сервера
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.drop(c)
	}
}
